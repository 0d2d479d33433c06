package domain

import "time"

// FallbackSelection is the conservative format expression used whenever
// stream analysis fails.
const FallbackSelection = "bestvideo[height<=1080]+bestaudio"

// FolderTimeLayout names output folders by minute, e.g. 202506271114.
const FolderTimeLayout = "200601021504"

// StreamKind tells video-only and audio-only encodings apart.
type StreamKind int

const (
	VideoOnly StreamKind = iota
	AudioOnly
)

func (k StreamKind) String() string {
	switch k {
	case VideoOnly:
		return "video only"
	case AudioOnly:
		return "audio only"
	default:
		return "unknown"
	}
}

// StreamDescriptor is one line of the downloader's format listing.
type StreamDescriptor struct {
	ID          string
	Kind        StreamKind
	Resolution  string // raw token, "N/A" when absent
	Height      int    // 0 when Resolution is not WIDTHxHEIGHT
	Codec       string
	Bitrate     string // raw token, "N/A" when absent
	BitrateKbps int    // 0 when Bitrate has no "k" suffix
	Line        string
}

// DownloadJob represents a single download run.
type DownloadJob struct {
	ID           string    `json:"job_id"`
	URL          string    `json:"url"`
	Proxy        string    `json:"proxy,omitempty"`
	CookiesPath  string    `json:"cookies_path,omitempty"`
	OutputFolder string    `json:"output_folder"`
	CreatedAt    time.Time `json:"created_at"`
}

// JobResult holds the outcome of a completed job.
type JobResult struct {
	Job               DownloadJob
	Selection         string
	SelectionFallback bool
	SummaryPath       string
	Success           bool
	ErrorMessage      string
	CompletedAt       time.Time
}

// VideoMetadata is the subset of the sidecar info file kept in the summary.
type VideoMetadata struct {
	ID          string
	Title       string
	Uploader    string
	UploadDate  string
	Description string
}

package ports

import (
	"context"

	"bestgrab/internal/core/domain"
)

// FetchOptions carries the per-job network settings passed to the downloader.
type FetchOptions struct {
	Proxy       string
	CookiesPath string
}

// Downloader defines the contract for the external video downloader.
type Downloader interface {
	// Version checks the executable is present and working.
	Version(ctx context.Context) (string, error)

	// ListFormats returns the raw human-readable format listing for the URL.
	ListFormats(ctx context.Context, videoURL string, opts FetchOptions) (string, error)

	// Download fetches the URL with the given format selection into outputDir.
	Download(ctx context.Context, videoURL, selection, outputDir string, opts FetchOptions) error
}

// StreamSelector turns a raw format listing into a selection expression.
// Implementations may be swapped without touching the orchestrator.
type StreamSelector interface {
	Select(listing string) (string, error)
}

// MetadataExtractor pulls summary fields out of a sidecar info file.
type MetadataExtractor interface {
	// Version checks the executable is present and working.
	Version(ctx context.Context) (string, error)

	// Extract reads the sidecar at path.
	Extract(ctx context.Context, path string) (*domain.VideoMetadata, error)
}

// Storage defines the contract for the per-run output folder.
type Storage interface {
	// InitJob creates the output folder. It succeeds if the folder exists.
	InitJob(ctx context.Context, folder string) error

	// GetJobPath returns the filesystem path of the output folder.
	GetJobPath(folder string) string

	// WriteSummary creates or truncates the summary file with the job header.
	WriteSummary(ctx context.Context, folder, videoURL, selection string) error

	// AppendMetadata appends one video's metadata block to the summary file.
	AppendMetadata(ctx context.Context, folder string, meta *domain.VideoMetadata) error

	// Sidecars lists the info JSON files left in the output folder.
	Sidecars(ctx context.Context, folder string) ([]string, error)

	// RemoveSidecar deletes one sidecar file.
	RemoveSidecar(ctx context.Context, path string) error

	// SummaryPath returns the summary file path for the folder.
	SummaryPath(folder string) string
}

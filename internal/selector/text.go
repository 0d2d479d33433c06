// Package selector picks a video and an audio stream from a downloader
// format listing.
package selector

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"bestgrab/internal/core/domain"
)

// Default codec preferences.
const (
	DefaultVideoCodec = "vp9"
	DefaultAudioCodec = "opus"
)

// Listing markers and placeholder values.
const (
	videoOnlyMarker = "video only"
	audioOnlyMarker = "audio only"
	notApplicable   = "N/A"
)

// TextSelector parses the human-readable `yt-dlp -F` table.
//
// Candidates are first ordered (video by descending height, audio by
// preferred codec then ascending bitrate) and then reduced: the first
// candidate wins unless a later one carries the preferred codec prefix
// and the current best does not. The codec therefore overrides the
// resolution order, so a 720p vp9 stream beats a 1080p avc1 stream.
type TextSelector struct {
	VideoCodec string
	AudioCodec string
}

// NewTextSelector creates a TextSelector with the default codec preferences.
func NewTextSelector() *TextSelector {
	return &TextSelector{
		VideoCodec: DefaultVideoCodec,
		AudioCodec: DefaultAudioCodec,
	}
}

// Select returns "<videoID>+<audioID>". Any parse problem or an empty
// candidate list yields an error marked domain.ErrSelection; callers use
// domain.FallbackSelection in that case.
func (s *TextSelector) Select(listing string) (string, error) {
	videos, audios, err := ParseListing(listing)
	if err != nil {
		return "", err
	}

	video := pick(sortVideos(videos, s.VideoCodec), s.VideoCodec)
	if video == nil {
		return "", errors.Mark(errors.New("no video-only streams in listing"), domain.ErrSelection)
	}
	audio := pick(sortAudios(audios, s.AudioCodec), s.AudioCodec)
	if audio == nil {
		return "", errors.Mark(errors.New("no audio-only streams in listing"), domain.ErrSelection)
	}

	return fmt.Sprintf("%s+%s", video.ID, audio.ID), nil
}

// ParseListing classifies each line and extracts the stream fields.
func ParseListing(listing string) (videos, audios []domain.StreamDescriptor, err error) {
	for n, line := range strings.Split(listing, "\n") {
		switch {
		case strings.Contains(line, videoOnlyMarker):
			d, perr := parseVideoLine(line)
			if perr != nil {
				return nil, nil, errors.Mark(errors.Wrapf(perr, "line %d", n+1), domain.ErrSelection)
			}
			videos = append(videos, d)
		case strings.Contains(line, audioOnlyMarker):
			d, perr := parseAudioLine(line)
			if perr != nil {
				return nil, nil, errors.Mark(errors.Wrapf(perr, "line %d", n+1), domain.ErrSelection)
			}
			audios = append(audios, d)
		}
	}
	return videos, audios, nil
}

func parseVideoLine(line string) (domain.StreamDescriptor, error) {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		return domain.StreamDescriptor{}, errors.Newf("video line has %d fields, want at least 4", len(parts))
	}

	resolution := parts[2]
	if resolution == "audio" {
		resolution = notApplicable
	}
	height, err := parseHeight(resolution)
	if err != nil {
		return domain.StreamDescriptor{}, err
	}

	return domain.StreamDescriptor{
		ID:         parts[0],
		Kind:       domain.VideoOnly,
		Resolution: resolution,
		Height:     height,
		Codec:      parts[3],
		Bitrate:    notApplicable,
		Line:       line,
	}, nil
}

func parseAudioLine(line string) (domain.StreamDescriptor, error) {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		return domain.StreamDescriptor{}, errors.Newf("audio line has %d fields, want at least 4", len(parts))
	}

	bitrate := parts[len(parts)-2]
	if !strings.Contains(bitrate, "k") {
		bitrate = notApplicable
	}
	kbps, err := parseKbps(bitrate)
	if err != nil {
		return domain.StreamDescriptor{}, err
	}

	return domain.StreamDescriptor{
		ID:          parts[0],
		Kind:        domain.AudioOnly,
		Resolution:  notApplicable,
		Codec:       parts[3],
		Bitrate:     bitrate,
		BitrateKbps: kbps,
		Line:        line,
	}, nil
}

// parseHeight reads HEIGHT out of WIDTHxHEIGHT. Tokens without an "x" are
// not applicable and rank as 0.
func parseHeight(resolution string) (int, error) {
	if !strings.Contains(resolution, "x") {
		return 0, nil
	}
	h, err := strconv.Atoi(strings.Split(resolution, "x")[1])
	if err != nil {
		return 0, errors.Wrapf(err, "resolution %q", resolution)
	}
	return h, nil
}

// parseKbps reads N out of "Nk". Anything not ending in "k" ranks as 0.
func parseKbps(bitrate string) (int, error) {
	if !strings.HasSuffix(bitrate, "k") {
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSuffix(bitrate, "k"))
	if err != nil {
		return 0, errors.Wrapf(err, "bitrate %q", bitrate)
	}
	return v, nil
}

// sortVideos orders ascending by (-height, has preferred codec).
func sortVideos(in []domain.StreamDescriptor, codec string) []domain.StreamDescriptor {
	out := append([]domain.StreamDescriptor(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		hi, hj := -out[i].Height, -out[j].Height
		if hi != hj {
			return hi < hj
		}
		return !hasCodec(out[i], codec) && hasCodec(out[j], codec)
	})
	return out
}

// sortAudios orders descending by (has preferred codec, -kbps). Equal keys
// keep their listing order.
func sortAudios(in []domain.StreamDescriptor, codec string) []domain.StreamDescriptor {
	out := append([]domain.StreamDescriptor(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := hasCodec(out[i], codec), hasCodec(out[j], codec)
		if pi != pj {
			return pi
		}
		return -out[i].BitrateKbps > -out[j].BitrateKbps
	})
	return out
}

func pick(ordered []domain.StreamDescriptor, codec string) *domain.StreamDescriptor {
	var best *domain.StreamDescriptor
	for i := range ordered {
		s := &ordered[i]
		if best == nil || (hasCodec(*s, codec) && !hasCodec(*best, codec)) {
			best = s
		}
	}
	return best
}

func hasCodec(s domain.StreamDescriptor, codec string) bool {
	return strings.HasPrefix(s.Codec, codec)
}

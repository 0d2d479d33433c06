package ytdlp

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"bestgrab/internal/core/ports"
)

// Post-processing defaults applied to every download.
const (
	DefaultMergeFormat      = "mp4"
	DefaultSubLangs         = "en,zh-Hans"
	DefaultSubFormat        = "srt"
	DefaultThumbnailFormat  = "png"
	DefaultFilenameTemplate = "%(title)s.%(ext)s"
)

// Options controls the fixed post-processing flags of a download.
type Options struct {
	MergeFormat      string
	SubLangs         string
	SubFormat        string
	ThumbnailFormat  string
	FilenameTemplate string
}

// DefaultOptions returns the stock post-processing settings.
func DefaultOptions() Options {
	return Options{
		MergeFormat:      DefaultMergeFormat,
		SubLangs:         DefaultSubLangs,
		SubFormat:        DefaultSubFormat,
		ThumbnailFormat:  DefaultThumbnailFormat,
		FilenameTemplate: DefaultFilenameTemplate,
	}
}

// YtDlpDownloader drives the local yt-dlp binary.
type YtDlpDownloader struct {
	binaryPath string
	opts       Options
	logger     *logrus.Logger

	// Stdout and Stderr receive the live output of a download so the user
	// sees yt-dlp's progress. Stderr is also captured for error reports.
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultBinaryPath prefers a yt-dlp.exe next to the working directory and
// falls back to yt-dlp on PATH.
func DefaultBinaryPath() string {
	if _, err := os.Stat("yt-dlp.exe"); err == nil {
		return "." + string(filepath.Separator) + "yt-dlp.exe"
	}
	return "yt-dlp"
}

// NewYtDlpDownloader creates a new downloader.
func NewYtDlpDownloader(binaryPath string, opts Options, logger *logrus.Logger) *YtDlpDownloader {
	if binaryPath == "" {
		binaryPath = DefaultBinaryPath()
	}
	return &YtDlpDownloader{
		binaryPath: binaryPath,
		opts:       opts,
		logger:     logger,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
}

// Version runs yt-dlp --version.
func (d *YtDlpDownloader) Version(ctx context.Context) (string, error) {
	out, err := d.output(ctx, "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ListFormats runs yt-dlp -F and returns its standard output.
func (d *YtDlpDownloader) ListFormats(ctx context.Context, videoURL string, opts ports.FetchOptions) (string, error) {
	return d.output(ctx, ListArgs(videoURL, opts)...)
}

// Download runs the real download. Output is streamed to Stdout/Stderr.
func (d *YtDlpDownloader) Download(ctx context.Context, videoURL, selection, outputDir string, opts ports.FetchOptions) error {
	args := DownloadArgs(videoURL, selection, outputDir, d.opts, opts)
	cmd := exec.CommandContext(ctx, d.binaryPath, args...)

	var stderr bytes.Buffer
	cmd.Stdout = d.Stdout
	cmd.Stderr = io.MultiWriter(d.Stderr, &stderr)

	d.logCommand(args)
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "yt-dlp download failed, stderr: %s", lastLines(stderr.String()))
	}
	return nil
}

// output runs yt-dlp with args and captures stdout.
func (d *YtDlpDownloader) output(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, d.binaryPath, args...)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	d.logCommand(args)
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "yt-dlp failed, stderr: %s", strings.TrimSpace(stderr.String()))
	}
	return out.String(), nil
}

func (d *YtDlpDownloader) logCommand(args []string) {
	if d.logger == nil {
		return
	}
	d.logger.WithField("cmd", shellescape.QuoteCommand(append([]string{d.binaryPath}, args...))).Debug("running yt-dlp")
}

// ListArgs builds the arguments for the format listing call.
func ListArgs(videoURL string, fetch ports.FetchOptions) []string {
	args := networkArgs(fetch)
	return append(args, "-F", videoURL)
}

// DownloadArgs builds the arguments for the download call.
func DownloadArgs(videoURL, selection, outputDir string, opts Options, fetch ports.FetchOptions) []string {
	args := networkArgs(fetch)
	return append(args,
		"-f", selection,
		"--merge-output-format", opts.MergeFormat,
		"--output", filepath.Join(outputDir, opts.FilenameTemplate),
		"--write-subs",
		"--sub-langs", opts.SubLangs,
		"--convert-subs", opts.SubFormat,
		"--write-thumbnail",
		"--convert-thumbnails", opts.ThumbnailFormat,
		"--write-info-json",
		videoURL,
	)
}

// networkArgs puts --cookies ahead of --proxy, matching the order users
// see in logged commands.
func networkArgs(fetch ports.FetchOptions) []string {
	var args []string
	if fetch.CookiesPath != "" {
		args = append(args, "--cookies", fetch.CookiesPath)
	}
	if fetch.Proxy != "" {
		args = append(args, "--proxy", fetch.Proxy)
	}
	return args
}

// lastLines keeps the tail of a progress-heavy stderr stream.
func lastLines(s string) string {
	const keep = 10
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.Join(lines, "\n")
}

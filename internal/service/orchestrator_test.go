package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bestgrab/internal/adapters/localstorage"
	"bestgrab/internal/core/domain"
	"bestgrab/internal/core/ports"
	"bestgrab/internal/selector"
)

const testURL = "https://www.youtube.com/watch?v=abc"

const testListing = `[info] Available formats for abc:
137 mp4 1920x1080 avc1.640028 video only
247 webm 1280x720 vp9 video only
140 m4a audio mp4a.40.2 audio only 129k 3MiB
`

type downloadCall struct {
	url       string
	selection string
	outputDir string
	fetch     ports.FetchOptions
}

type fakeDownloader struct {
	version     string
	versionErr  error
	listing     string
	listErr     error
	listFetch   []ports.FetchOptions
	downloadErr error
	downloads   []downloadCall
	sidecars    []string
}

func (f *fakeDownloader) Version(ctx context.Context) (string, error) {
	return f.version, f.versionErr
}

func (f *fakeDownloader) ListFormats(ctx context.Context, videoURL string, opts ports.FetchOptions) (string, error) {
	f.listFetch = append(f.listFetch, opts)
	return f.listing, f.listErr
}

func (f *fakeDownloader) Download(ctx context.Context, videoURL, selection, outputDir string, opts ports.FetchOptions) error {
	f.downloads = append(f.downloads, downloadCall{url: videoURL, selection: selection, outputDir: outputDir, fetch: opts})
	if f.downloadErr != nil {
		return f.downloadErr
	}
	for _, name := range f.sidecars {
		if err := os.WriteFile(filepath.Join(outputDir, name), []byte(`{"id":"abc"}`), 0644); err != nil {
			return err
		}
	}
	return nil
}

type fakeExtractor struct {
	versionErr error
	meta       domain.VideoMetadata
	err        error
	paths      []string
}

func (f *fakeExtractor) Version(ctx context.Context) (string, error) {
	return "jq-1.7.1", f.versionErr
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (*domain.VideoMetadata, error) {
	f.paths = append(f.paths, path)
	if f.err != nil {
		return nil, f.err
	}
	m := f.meta
	return &m, nil
}

type harness struct {
	orch       *Orchestrator
	downloader *fakeDownloader
	extractor  *fakeExtractor
	storage    *localstorage.LocalStorage
	out        *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &harness{
		downloader: &fakeDownloader{version: "2025.06.09", listing: testListing, sidecars: []string{"My Video.info.json"}},
		extractor: &fakeExtractor{meta: domain.VideoMetadata{
			ID: "abc", Title: "My Video", Uploader: "Someone", UploadDate: "20250627", Description: "Hello",
		}},
		storage: localstorage.NewLocalStorage(t.TempDir()),
		out:     &bytes.Buffer{},
	}
	h.orch = NewOrchestrator(h.downloader, selector.NewTextSelector(), h.extractor, h.storage, logger, h.out)
	h.orch.now = func() time.Time { return time.Date(2025, 6, 27, 11, 14, 30, 0, time.Local) }
	return h
}

func TestOrchestrator_NewJob(t *testing.T) {
	h := newHarness(t)

	job := h.orch.NewJob(testURL, "http://127.0.0.1:54890", "cookies.txt")
	assert.Equal(t, "202506271114", job.OutputFolder)
	assert.Equal(t, testURL, job.URL)
	assert.Equal(t, "http://127.0.0.1:54890", job.Proxy)
	assert.Equal(t, "cookies.txt", job.CookiesPath)
	assert.NotEmpty(t, job.ID)
	assert.NotEqual(t, job.ID, h.orch.NewJob(testURL, "", "").ID)
}

func TestOrchestrator_RunJobSuccess(t *testing.T) {
	h := newHarness(t)
	job := h.orch.NewJob(testURL, "", "")

	result, err := h.orch.RunJob(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "247+140", result.Selection)
	assert.False(t, result.SelectionFallback)

	folder := h.storage.GetJobPath("202506271114")
	require.Len(t, h.downloader.downloads, 1)
	assert.Equal(t, downloadCall{url: testURL, selection: "247+140", outputDir: folder}, h.downloader.downloads[0])

	summary, err := os.ReadFile(result.SummaryPath)
	require.NoError(t, err)
	assert.Equal(t,
		"Video URL: "+testURL+"\n"+
			"Stream selection: 247+140\n"+
			"abc|My Video|Someone|20250627\n"+
			"\n------Description------\n"+
			"Hello\n",
		string(summary))

	_, err = os.Stat(filepath.Join(folder, "My Video.info.json"))
	assert.True(t, os.IsNotExist(err), "sidecar should be removed")
	assert.Contains(t, h.out.String(), "247+140")
	assert.Contains(t, h.out.String(), folder)
}

func TestOrchestrator_RunJobPassesNetworkOptions(t *testing.T) {
	h := newHarness(t)
	job := h.orch.NewJob(testURL, "http://127.0.0.1:54890", "cookies.txt")

	_, err := h.orch.RunJob(context.Background(), job)
	require.NoError(t, err)

	want := ports.FetchOptions{Proxy: "http://127.0.0.1:54890", CookiesPath: "cookies.txt"}
	require.Len(t, h.downloader.listFetch, 1)
	assert.Equal(t, want, h.downloader.listFetch[0])
	assert.Equal(t, want, h.downloader.downloads[0].fetch)
}

func TestOrchestrator_RunJobTwiceSameMinute(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 2; i++ {
		result, err := h.orch.RunJob(context.Background(), h.orch.NewJob(testURL, "", ""))
		require.NoError(t, err, "run %d", i)
		assert.True(t, result.Success)
	}
	assert.Equal(t, h.downloader.downloads[0].outputDir, h.downloader.downloads[1].outputDir)
}

func TestOrchestrator_SelectionFallback(t *testing.T) {
	tests := []struct {
		name    string
		listing string
		listErr error
		wantOut string
	}{
		{
			name:    "no audio-only streams",
			listing: "137 mp4 1920x1080 avc1 video only\n",
			wantOut: "no audio-only streams",
		},
		{
			name:    "listing fails",
			listErr: errors.New("yt-dlp failed, stderr: ERROR: Unsupported URL"),
			wantOut: "ERROR: Unsupported URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.downloader.listing = tt.listing
			h.downloader.listErr = tt.listErr

			result, err := h.orch.RunJob(context.Background(), h.orch.NewJob(testURL, "", ""))
			require.NoError(t, err)
			assert.True(t, result.SelectionFallback)
			assert.Equal(t, domain.FallbackSelection, result.Selection)
			assert.Equal(t, domain.FallbackSelection, h.downloader.downloads[0].selection)
			assert.Contains(t, h.out.String(), tt.wantOut)
		})
	}
}

func TestOrchestrator_DownloadFailure(t *testing.T) {
	h := newHarness(t)
	h.downloader.downloadErr = errors.New("yt-dlp download failed, stderr: ERROR: HTTP Error 403: Forbidden")

	var result *domain.JobResult
	var err error
	require.NotPanics(t, func() {
		result, err = h.orch.RunJob(context.Background(), h.orch.NewJob(testURL, "", ""))
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOperationFailure))
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "HTTP Error 403")
	assert.Contains(t, h.out.String(), "HTTP Error 403")

	info, statErr := os.Stat(h.storage.GetJobPath("202506271114"))
	require.NoError(t, statErr, "output folder is kept after failure")
	assert.True(t, info.IsDir())
}

func TestOrchestrator_ExtractFailure(t *testing.T) {
	h := newHarness(t)
	h.extractor.err = errors.New("jq failed, stderr: parse error")

	result, err := h.orch.RunJob(context.Background(), h.orch.NewJob(testURL, "", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOperationFailure))
	assert.False(t, result.Success)
	assert.Contains(t, h.out.String(), "parse error")
}

func TestOrchestrator_MultipleSidecars(t *testing.T) {
	h := newHarness(t)
	h.downloader.sidecars = []string{"Part 2.info.json", "Part 1.info.json"}

	result, err := h.orch.RunJob(context.Background(), h.orch.NewJob(testURL, "", ""))
	require.NoError(t, err)

	require.Len(t, h.extractor.paths, 2)
	assert.True(t, strings.HasSuffix(h.extractor.paths[0], "Part 1.info.json"))

	summary, err := os.ReadFile(result.SummaryPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(summary), "------Description------"))
}

func TestOrchestrator_CheckDependencies(t *testing.T) {
	t.Run("all present", func(t *testing.T) {
		h := newHarness(t)
		assert.NoError(t, h.orch.CheckDependencies(context.Background()))
	})

	t.Run("yt-dlp missing", func(t *testing.T) {
		h := newHarness(t)
		h.downloader.versionErr = errors.New(`exec: "yt-dlp": executable file not found in $PATH`)

		err := h.orch.CheckDependencies(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrDependencyMissing))
		assert.Contains(t, err.Error(), "yt-dlp")
	})

	t.Run("jq missing", func(t *testing.T) {
		h := newHarness(t)
		h.extractor.versionErr = errors.New(`exec: "jq": executable file not found in $PATH`)

		err := h.orch.CheckDependencies(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrDependencyMissing))
		assert.False(t, errors.Is(err, domain.ErrOperationFailure))
	})
}

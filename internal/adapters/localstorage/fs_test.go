package localstorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bestgrab/internal/core/domain"
)

func TestLocalStorage_InitJobIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorage(t.TempDir())

	require.NoError(t, s.InitJob(ctx, "202506271114"))
	require.NoError(t, s.InitJob(ctx, "202506271114"))

	info, err := os.Stat(s.GetJobPath("202506271114"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorage_InitJobBlockedByFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "202506271114"), nil, 0644))

	err := NewLocalStorage(base).InitJob(context.Background(), "202506271114")
	assert.Error(t, err)
}

func TestLocalStorage_Summary(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorage(t.TempDir())
	require.NoError(t, s.InitJob(ctx, "f"))

	require.NoError(t, s.WriteSummary(ctx, "f", "https://youtu.be/abc", "248+251"))
	require.NoError(t, s.AppendMetadata(ctx, "f", &domain.VideoMetadata{
		ID:          "abc",
		Title:       "My Video",
		Uploader:    "Someone",
		UploadDate:  "20250627",
		Description: "Hello",
	}))

	data, err := os.ReadFile(s.SummaryPath("f"))
	require.NoError(t, err)
	assert.Equal(t,
		"Video URL: https://youtu.be/abc\n"+
			"Stream selection: 248+251\n"+
			"abc|My Video|Someone|20250627\n"+
			"\n------Description------\n"+
			"Hello\n",
		string(data))
}

func TestLocalStorage_WriteSummaryTruncates(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorage(t.TempDir())
	require.NoError(t, s.InitJob(ctx, "f"))

	require.NoError(t, s.WriteSummary(ctx, "f", "https://first", "1+2"))
	require.NoError(t, s.WriteSummary(ctx, "f", "https://second", "3+4"))

	data, err := os.ReadFile(s.SummaryPath("f"))
	require.NoError(t, err)
	assert.Equal(t, "Video URL: https://second\nStream selection: 3+4\n", string(data))
}

func TestLocalStorage_Sidecars(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorage(t.TempDir())
	require.NoError(t, s.InitJob(ctx, "f"))

	dir := s.GetJobPath("f")
	for _, name := range []string{"b.info.json", "a.info.json", "a.mp4", "a.en.srt", "a.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.info.json"), 0755))

	got, err := s.Sidecars(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.info.json"), filepath.Join(dir, "b.info.json")}, got)

	require.NoError(t, s.RemoveSidecar(ctx, got[0]))
	_, err = os.Stat(got[0])
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, s.RemoveSidecar(ctx, got[0]))
}

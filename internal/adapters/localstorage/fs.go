package localstorage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bestgrab/internal/core/domain"
)

// File names inside an output folder.
const (
	SummaryFile   = "video_info.txt"
	SidecarSuffix = ".info.json"
)

// LocalStorage implements ports.Storage for the local filesystem.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// InitJob creates the output folder. An existing folder is not an error.
func (s *LocalStorage) InitJob(ctx context.Context, folder string) error {
	path := s.GetJobPath(folder)
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", path, err)
	}
	return nil
}

// GetJobPath returns the path for an output folder.
func (s *LocalStorage) GetJobPath(folder string) string {
	return filepath.Join(s.BaseDir, folder)
}

// SummaryPath returns the path of the summary file.
func (s *LocalStorage) SummaryPath(folder string) string {
	return filepath.Join(s.GetJobPath(folder), SummaryFile)
}

// WriteSummary creates the summary file with the URL and stream selection.
func (s *LocalStorage) WriteSummary(ctx context.Context, folder, videoURL, selection string) error {
	content := fmt.Sprintf("Video URL: %s\nStream selection: %s\n", videoURL, selection)
	if err := os.WriteFile(s.SummaryPath(folder), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", SummaryFile, err)
	}
	return nil
}

// AppendMetadata appends "id|title|uploader|upload_date" and the description.
func (s *LocalStorage) AppendMetadata(ctx context.Context, folder string, meta *domain.VideoMetadata) error {
	f, err := os.OpenFile(s.SummaryPath(folder), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", SummaryFile, err)
	}
	defer f.Close()

	fields := strings.Join([]string{meta.ID, meta.Title, meta.Uploader, meta.UploadDate}, "|")
	if _, err := fmt.Fprintf(f, "%s\n\n------Description------\n%s\n", fields, meta.Description); err != nil {
		return fmt.Errorf("failed to append to %s: %w", SummaryFile, err)
	}
	return f.Close()
}

// Sidecars lists the *.info.json files in the output folder, sorted by name.
func (s *LocalStorage) Sidecars(ctx context.Context, folder string) ([]string, error) {
	dir := s.GetJobPath(folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), SidecarSuffix) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// RemoveSidecar deletes a sidecar file.
func (s *LocalStorage) RemoveSidecar(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

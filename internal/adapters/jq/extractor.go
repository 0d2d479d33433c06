// Package jq reads sidecar info files through the jq command-line tool.
package jq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"bestgrab/internal/core/domain"
)

// MetadataFilter selects the summary fields as one compact JSON array.
const MetadataFilter = "[.id, .title, .uploader, .upload_date, .description]"

const metadataFields = 5

// Extractor implements ports.MetadataExtractor with the jq binary. Paths
// are passed as arguments, never through a shell.
type Extractor struct {
	binaryPath string
	logger     *logrus.Logger
}

// NewExtractor creates a new Extractor. An empty path means jq on PATH.
func NewExtractor(binaryPath string, logger *logrus.Logger) *Extractor {
	if binaryPath == "" {
		binaryPath = "jq"
	}
	return &Extractor{binaryPath: binaryPath, logger: logger}
}

// Version runs jq --version.
func (e *Extractor) Version(ctx context.Context) (string, error) {
	out, err := e.run(ctx, "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Extract reads id, title, uploader, upload date and description from the
// info file at path.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.VideoMetadata, error) {
	out, err := e.run(ctx, "-c", MetadataFilter, path)
	if err != nil {
		return nil, err
	}
	return ParseFields([]byte(out))
}

func (e *Extractor) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.binaryPath, args...)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if e.logger != nil {
		e.logger.WithField("cmd", shellescape.QuoteCommand(append([]string{e.binaryPath}, args...))).Debug("running jq")
	}
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "jq failed, stderr: %s", strings.TrimSpace(stderr.String()))
	}
	return out.String(), nil
}

// ParseFields decodes the array produced by MetadataFilter. Null fields
// become empty strings and non-string values are printed as-is.
func ParseFields(data []byte) (*domain.VideoMetadata, error) {
	var fields []any
	if err := json.Unmarshal(bytes.TrimSpace(data), &fields); err != nil {
		return nil, errors.Wrap(err, "decode jq output")
	}
	if len(fields) != metadataFields {
		return nil, errors.Newf("jq output has %d fields, want %d", len(fields), metadataFields)
	}

	s := make([]string, metadataFields)
	for i, f := range fields {
		switch v := f.(type) {
		case nil:
		case string:
			s[i] = v
		case float64:
			s[i] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			s[i] = fmt.Sprint(v)
		}
	}

	return &domain.VideoMetadata{
		ID:          s[0],
		Title:       s[1],
		Uploader:    s[2],
		UploadDate:  s[3],
		Description: s[4],
	}, nil
}

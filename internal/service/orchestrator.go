package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bestgrab/internal/core/domain"
	"bestgrab/internal/core/ports"
)

// Orchestrator coordinates the list, select, download and summarise workflow.
type Orchestrator struct {
	downloader ports.Downloader
	selector   ports.StreamSelector
	extractor  ports.MetadataExtractor
	storage    ports.Storage
	logger     *logrus.Logger
	out        io.Writer
	now        func() time.Time
}

// NewOrchestrator creates a new Orchestrator. User-facing status lines go
// to out; diagnostics go to logger.
func NewOrchestrator(
	downloader ports.Downloader,
	selector ports.StreamSelector,
	extractor ports.MetadataExtractor,
	storage ports.Storage,
	logger *logrus.Logger,
	out io.Writer,
) *Orchestrator {
	return &Orchestrator{
		downloader: downloader,
		selector:   selector,
		extractor:  extractor,
		storage:    storage,
		logger:     logger,
		out:        out,
		now:        time.Now,
	}
}

// NewJob builds the job for one URL. The output folder is named after the
// current local minute, so two runs in the same minute share a folder.
func (o *Orchestrator) NewJob(url, proxy, cookiesPath string) domain.DownloadJob {
	now := o.now()
	return domain.DownloadJob{
		ID:           uuid.New().String(),
		URL:          url,
		Proxy:        proxy,
		CookiesPath:  cookiesPath,
		OutputFolder: now.Format(domain.FolderTimeLayout),
		CreatedAt:    now,
	}
}

// CheckDependencies verifies both external tools run.
func (o *Orchestrator) CheckDependencies(ctx context.Context) error {
	v, err := o.downloader.Version(ctx)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "yt-dlp"), domain.ErrDependencyMissing)
	}
	o.logger.WithField("version", v).Debug("found yt-dlp")

	v, err = o.extractor.Version(ctx)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "jq"), domain.ErrDependencyMissing)
	}
	o.logger.WithField("version", v).Debug("found jq")
	return nil
}

// RunJob executes a complete download for the job. Failures are reported
// to the user and returned marked with domain.ErrOperationFailure. The
// output folder is left in place on failure.
func (o *Orchestrator) RunJob(ctx context.Context, job domain.DownloadJob) (*domain.JobResult, error) {
	result := &domain.JobResult{Job: job, Success: false}
	log := o.logger.WithField("job", job.ID)
	log.WithField("url", job.URL).Info("starting job")

	if err := o.storage.InitJob(ctx, job.OutputFolder); err != nil {
		return result, o.fail(log, result, err, "create output folder")
	}

	result.Selection, result.SelectionFallback = o.BestStreams(ctx, job)
	fmt.Fprintf(o.out, "\n🔍 Selected stream combination: %s\n", result.Selection)

	folder := o.storage.GetJobPath(job.OutputFolder)
	fmt.Fprintf(o.out, "\n%s🚀 Downloading into folder: %s%s\n", colorCyan, folder, colorReset)

	fetch := fetchOptions(job)
	if err := o.downloader.Download(ctx, job.URL, result.Selection, folder, fetch); err != nil {
		return result, o.fail(log, result, err, "download")
	}
	log.Info("download finished")

	if err := o.writeSummary(ctx, job, result.Selection); err != nil {
		return result, o.fail(log, result, err, "write summary")
	}
	result.SummaryPath = o.storage.SummaryPath(job.OutputFolder)

	result.Success = true
	result.CompletedAt = o.now()
	fmt.Fprintf(o.out, "\n%s✅ Download complete! Files saved in: %s%s%s\n", colorGreen, colorBlue, folder, colorReset)
	log.WithField("folder", folder).Info("job completed")

	return result, nil
}

// BestStreams lists the available formats and runs the selector. Any
// failure is reported and the conservative fallback expression returned.
func (o *Orchestrator) BestStreams(ctx context.Context, job domain.DownloadJob) (selection string, fallback bool) {
	log := o.logger.WithField("job", job.ID)

	listing, err := o.downloader.ListFormats(ctx, job.URL, fetchOptions(job))
	if err == nil {
		selection, err = o.selector.Select(listing)
	}
	if err != nil {
		fmt.Fprintf(o.out, "%s❌ Stream analysis failed: %v%s\n", colorRed, err, colorReset)
		log.WithError(err).Warn("falling back to conservative selection")
		return domain.FallbackSelection, true
	}

	log.WithField("selection", selection).Debug("selected streams")
	return selection, false
}

// writeSummary records the URL and selection, then folds every sidecar
// info file into the summary and removes it.
func (o *Orchestrator) writeSummary(ctx context.Context, job domain.DownloadJob, selection string) error {
	if err := o.storage.WriteSummary(ctx, job.OutputFolder, job.URL, selection); err != nil {
		return err
	}

	sidecars, err := o.storage.Sidecars(ctx, job.OutputFolder)
	if err != nil {
		return err
	}
	if len(sidecars) == 0 {
		o.logger.WithField("job", job.ID).Warn("no info json written by yt-dlp")
	}

	for _, path := range sidecars {
		meta, err := o.extractor.Extract(ctx, path)
		if err != nil {
			return errors.Wrapf(err, "extract %s", path)
		}
		if err := o.storage.AppendMetadata(ctx, job.OutputFolder, meta); err != nil {
			return err
		}
		if err := o.storage.RemoveSidecar(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) fail(log *logrus.Entry, result *domain.JobResult, err error, stage string) error {
	result.ErrorMessage = err.Error()
	result.CompletedAt = o.now()
	fmt.Fprintf(o.out, "%s❌ Download failed: %s%s\n", colorRed, result.ErrorMessage, colorReset)
	log.WithError(err).WithField("stage", stage).Error("job failed")
	return errors.Mark(errors.Wrap(err, stage), domain.ErrOperationFailure)
}

func fetchOptions(job domain.DownloadJob) ports.FetchOptions {
	return ports.FetchOptions{Proxy: job.Proxy, CookiesPath: job.CookiesPath}
}

package tasks

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/studyflow/internal/feed"
	"github.com/desertthunder/studyflow/internal/formatter"
	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
	"golang.org/x/time/rate"
)

// ExportOpts contains configuration for a feed export.
type ExportOpts struct {
	Format    formatter.Format // json, csv, markdown, txt
	Output    string           // Output file (default: {source}_{id}_posts.{ext})
	MaxPages  int              // Stop after this many pages; 0 exports everything
	RateLimit float64          // Pages per second; 0 disables throttling
}

// ExportResult summarizes a finished export.
type ExportResult struct {
	Export *models.FeedExport
	Path   string
	Record *models.Export
}

// ExportRecorder stores export history (repositories.ExportRepository).
type ExportRecorder interface {
	Create(e *models.Export) error
}

// FeedExporter pages through a feed and writes it to disk.
type FeedExporter struct {
	fetcher  feed.PageFetcher
	recorder ExportRecorder
	logger   *log.Logger
}

// NewFeedExporter creates an exporter. recorder and logger may be nil.
func NewFeedExporter(fetcher feed.PageFetcher, recorder ExportRecorder, logger *log.Logger) *FeedExporter {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &FeedExporter{fetcher: fetcher, recorder: recorder, logger: logger}
}

// Collect fetches pages of one source until it is exhausted or maxPages is reached.
func (e *FeedExporter) Collect(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	kind feed.SourceKind,
	sourceID string,
	maxPages int,
	limiter *rate.Limiter,
) (*models.FeedExport, error) {
	if e.fetcher == nil {
		return nil, fmt.Errorf("%w: feed fetcher not initialized", shared.ErrServiceUnavailable)
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	ctrl := feed.NewController(e.fetcher, feed.WithLogger(e.logger))
	label := sourceLabel(kind, sourceID)

	sendProgress(progress, fetchingPageUpdate(1, maxPages, label))
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := ctrl.ResetAndFetch(ctx, kind, sourceID); err != nil {
		return nil, fmt.Errorf("failed to fetch first page of %s: %w", label, err)
	}
	pages := 1
	sendProgress(progress, fetchedPageUpdate(pages, maxPages, ctrl.Offset()))

	for ctrl.HasMore() && (maxPages <= 0 || pages < maxPages) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sendProgress(progress, fetchingPageUpdate(pages+1, maxPages, label))
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if err := ctrl.LoadMore(ctx); err != nil {
			return nil, fmt.Errorf("failed to fetch page %d of %s: %w", pages+1, label, err)
		}
		pages++
		sendProgress(progress, fetchedPageUpdate(pages, maxPages, ctrl.Offset()))
	}

	e.logger.Info("collected feed", "source", label, "pages", pages, "posts", ctrl.Offset(), "has_more", ctrl.HasMore())

	return &models.FeedExport{
		Source:     kind.String(),
		SourceID:   sourceID,
		Pages:      pages,
		ExportedAt: time.Now().UTC(),
		Posts:      ctrl.Items(),
	}, nil
}

// Export collects the feed, writes it in opts.Format and records the export when a recorder is set.
func (e *FeedExporter) Export(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	kind feed.SourceKind,
	sourceID string,
	opts ExportOpts,
) (*ExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.JSON
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	export, err := e.Collect(ctx, progress, kind, sourceID, opts.MaxPages, limiter)
	if err != nil {
		return nil, err
	}

	path := opts.Output
	if path == "" {
		path = formatter.DefaultFilename(export, opts.Format)
	}
	sendProgress(progress, writingUpdate(string(opts.Format), path))

	path, err = formatter.WriteExport(export, opts.Format, path)
	if err != nil {
		return nil, err
	}
	result := &ExportResult{Export: export, Path: path}

	if e.recorder != nil {
		sendProgress(progress, ProgressUpdate{Phase: RecordExport, Step: 1, Total: 1, Message: "Recording export..."})
		record := &models.Export{
			SourceKind: export.Source,
			SourceID:   export.SourceID,
			Format:     string(opts.Format),
			Path:       path,
			PostCount:  len(export.Posts),
			Pages:      export.Pages,
		}
		if err := e.recorder.Create(record); err != nil {
			e.logger.Warn("failed to record export", "path", path, "error", err)
		} else {
			result.Record = record
		}
	}

	sendProgress(progress, doneUpdate(export, path))
	return result, nil
}

func sourceLabel(kind feed.SourceKind, sourceID string) string {
	if sourceID != "" {
		return kind.String() + "/" + sourceID
	}
	return kind.String()
}

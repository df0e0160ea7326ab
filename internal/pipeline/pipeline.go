// Package pipeline runs one refresh: fetch the CSV, import it into the store
// and rebuild the site, strictly in that order.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/kids-events/internal/config"
	"github.com/pfrederiksen/kids-events/internal/fetcher"
	"github.com/pfrederiksen/kids-events/internal/importer"
	"github.com/pfrederiksen/kids-events/internal/logger"
	"github.com/pfrederiksen/kids-events/internal/metrics"
	"github.com/pfrederiksen/kids-events/internal/site"
	"github.com/pfrederiksen/kids-events/internal/storage"
)

// Stage names used in logs and metrics.
const (
	StageFetch  = "fetch"
	StageStore  = "store"
	StageImport = "import"
	StageBuild  = "build"
)

// Report summarizes a completed run.
type Report struct {
	RunID    string
	Encoding string
	Bytes    int
	Import   importer.Stats
	Site     *site.Result
}

// Runner wires the components for one invocation.
type Runner struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Run
	runID   string

	fetcher  *fetcher.Fetcher
	importer *importer.Importer
	builder  *site.Builder
}

// New creates a Runner. Every log entry it writes carries a fresh run_id.
func New(cfg *config.Config, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	runID := uuid.NewString()
	log = log.With(logger.Fields{"run_id": runID})

	return &Runner{
		cfg:      cfg,
		log:      log,
		metrics:  metrics.New(),
		runID:    runID,
		fetcher:  fetcher.New(cfg.Source),
		importer: importer.New(cfg, log),
		builder:  site.New(cfg, log),
	}
}

// SetClock overrides the clock the page builder uses for "today".
func (r *Runner) SetClock(now func() time.Time) {
	r.builder.Now = now
}

// ID returns the run_id stamped on this run's log entries.
func (r *Runner) ID() string {
	return r.runID
}

// Metrics returns the run's metrics.
func (r *Runner) Metrics() *metrics.Run {
	return r.metrics
}

// Run performs fetch, import and build. Any stage error ends the run; the
// store keeps its previous contents if the import did not commit.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: r.runID}

	err := r.run(ctx, report)
	r.finish(err)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Runner) run(ctx context.Context, report *Report) error {
	r.log.Info("Fetching events CSV", logger.Fields{
		"url":     r.fetcher.URL(),
		"timeout": r.fetcher.Timeout().String(),
	})
	start := time.Now()
	fetched, err := r.fetcher.Fetch(ctx)
	r.metrics.ObserveStage(StageFetch, start)
	if err != nil {
		return r.fail(StageFetch, fmt.Errorf("fetching events: %w", err))
	}
	report.Encoding = fetched.Encoding
	report.Bytes = fetched.Bytes
	r.metrics.FetchedBytes.Set(float64(fetched.Bytes))
	r.log.Info("Fetched events CSV", logger.Fields{
		"bytes":    fetched.Bytes,
		"encoding": fetched.Encoding,
	})
	if fetched.Encoding == fetcher.EncodingReplace {
		r.log.Warn("CSV was not valid in any known encoding; invalid bytes replaced", nil)
	}

	store, err := storage.Open(ctx, r.cfg.Store)
	if err != nil {
		return r.fail(StageStore, fmt.Errorf("opening store: %w", err))
	}
	defer store.Close()

	start = time.Now()
	stats, err := r.importer.Import(ctx, store, fetched.Text)
	r.metrics.ObserveStage(StageImport, start)
	if err != nil {
		return r.fail(StageImport, fmt.Errorf("importing events: %w", err))
	}
	report.Import = stats
	r.metrics.RowsRead.Set(float64(stats.Read))
	r.metrics.Imported.Set(float64(stats.Imported))
	r.metrics.SkippedNoTitle.Set(float64(stats.SkippedNoTitle))

	res, err := r.build(ctx, store)
	if err != nil {
		return err
	}
	report.Site = res
	return nil
}

// BuildOnly rebuilds the site from the stored events without fetching.
func (r *Runner) BuildOnly(ctx context.Context) (*site.Result, error) {
	store, err := storage.Open(ctx, r.cfg.Store)
	if err != nil {
		err = r.fail(StageStore, fmt.Errorf("opening store: %w", err))
		r.finish(err)
		return nil, err
	}
	defer store.Close()

	res, err := r.build(ctx, store)
	r.finish(err)
	return res, err
}

func (r *Runner) build(ctx context.Context, src site.RecordSource) (*site.Result, error) {
	start := time.Now()
	res, err := r.builder.Build(ctx, src)
	r.metrics.ObserveStage(StageBuild, start)
	if err != nil {
		return nil, r.fail(StageBuild, fmt.Errorf("building site: %w", err))
	}
	r.metrics.SetDisplayed(res.Upcoming, res.Count)
	r.metrics.DroppedDates.Set(float64(res.Dropped))
	return res, nil
}

func (r *Runner) fail(stage string, err error) error {
	r.metrics.Failures.WithLabelValues(stage).Inc()
	r.log.Error("Stage failed", logger.Fields{"stage": stage}, err)
	return err
}

// finish stamps success and writes the metrics textfile. A metrics write
// error is logged but does not fail the run.
func (r *Runner) finish(runErr error) {
	if runErr == nil {
		r.metrics.MarkSuccess()
	}
	if err := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
		r.log.Warn("Could not write metrics", logger.Fields{
			"path":  r.cfg.Metrics.Textfile,
			"error": err.Error(),
		})
	}
}

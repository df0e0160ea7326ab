// Package metrics records what a run did as Prometheus gauges. A batch job
// has no scrape endpoint, so the registry is written to a node_exporter
// textfile-collector file at the end of the run.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kids_events"

// Run holds the metrics of one invocation.
type Run struct {
	registry *prometheus.Registry

	FetchedBytes   prometheus.Gauge
	RowsRead       prometheus.Gauge
	Imported       prometheus.Gauge
	SkippedNoTitle prometheus.Gauge
	Displayed      *prometheus.GaugeVec
	DroppedDates   prometheus.Gauge
	Duration       *prometheus.GaugeVec
	LastSuccess    prometheus.Gauge
	Failures       *prometheus.CounterVec
}

// New creates and registers the run metrics on a private registry.
func New() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		FetchedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetched_bytes",
			Help:      "Size of the downloaded CSV in bytes",
		}),
		RowsRead: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "csv_rows",
			Help:      "Data rows read from the CSV",
		}),
		Imported: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "imported_events",
			Help:      "Events stored by the last import",
		}),
		SkippedNoTitle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "skipped_rows",
			Help:      "CSV rows skipped because the title was blank",
		}),
		Displayed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "displayed_events",
			Help:      "Events listed on the page, by section",
		}, []string{"section"}),
		DroppedDates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "malformed_date_events",
			Help:      "Stored events left off the page for lacking a YYYY-MM-DD start",
		}),
		Duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage",
		}, []string{"stage"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that wrote the page",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed pipeline stages",
		}, []string{"stage"}),
	}

	r.registry.MustRegister(
		r.FetchedBytes,
		r.RowsRead,
		r.Imported,
		r.SkippedNoTitle,
		r.Displayed,
		r.DroppedDates,
		r.Duration,
		r.Failures,
	)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Run) Registry() *prometheus.Registry {
	return r.registry
}

// MarkSuccess stamps the current time as the last success. The gauge is only
// exported once set, so a failed run does not report a zero timestamp.
func (r *Run) MarkSuccess() {
	r.LastSuccess.SetToCurrentTime()
	if err := r.registry.Register(r.LastSuccess); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(err)
		}
	}
}

// ObserveStage records how long stage took since start.
func (r *Run) ObserveStage(stage string, start time.Time) {
	r.Duration.WithLabelValues(stage).Set(time.Since(start).Seconds())
}

// SetDisplayed records the page selection. Only the shown section is non-zero.
func (r *Run) SetDisplayed(upcoming bool, count int) {
	future, past := 0, count
	if upcoming {
		future, past = count, 0
	}
	r.Displayed.WithLabelValues("upcoming").Set(float64(future))
	r.Displayed.WithLabelValues("past").Set(float64(past))
}

// WriteTextfile writes the registry to path in the Prometheus text format.
// An empty path is a no-op.
func (r *Run) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

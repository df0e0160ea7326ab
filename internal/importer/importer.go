package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/pfrederiksen/kids-events/internal/classify"
	"github.com/pfrederiksen/kids-events/internal/config"
	"github.com/pfrederiksen/kids-events/internal/event"
	"github.com/pfrederiksen/kids-events/internal/logger"
)

// Store is the persistence the importer needs.
type Store interface {
	ReplaceAll(ctx context.Context, records []event.Record) error
}

// Stats summarizes one import.
type Stats struct {
	Columns        []string
	Read           int // data rows in the CSV
	Imported       int
	SkippedNoTitle int
}

// Importer converts CSV text into records and stores them.
type Importer struct {
	source config.Source
	schema config.Schema
	rules  classify.Rules
	log    *logger.Logger
}

// New creates an Importer from cfg.
func New(cfg *config.Config, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Discard()
	}
	return &Importer{
		source: cfg.Source,
		schema: cfg.Schema,
		rules:  classify.FromConfig(cfg.Classify),
		log:    log,
	}
}

// Records parses text and maps every row with a non-blank title to a
// record, in file order. Rows without a title are counted, not returned.
func (im *Importer) Records(text string) ([]event.Record, Stats, error) {
	table, err := Parse(text)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("parsing csv: %w", err)
	}

	m := Resolve(im.schema, table)
	stats := Stats{Columns: table.Header, Read: len(table.Rows)}

	im.log.Info("CSV columns", logger.Fields{
		"columns":     table.Header,
		"title_col":   m.Title,
		"url_col":     m.URL,
		"id_cols":     m.ID,
		"row_count":   len(table.Rows),
		"start_col":   m.Start,
		"summary_col": m.Summary,
	})
	if m.Title == "" {
		im.log.Warn("No title column found; every row will be skipped", logger.Fields{
			"candidates": im.schema.Title,
		})
	}

	records := make([]event.Record, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec, ok := im.record(m, row)
		if !ok {
			stats.SkippedNoTitle++
			continue
		}
		records = append(records, rec)
	}
	stats.Imported = len(records)
	return records, stats, nil
}

func (im *Importer) record(m Mapping, row map[string]string) (event.Record, bool) {
	title := strings.TrimSpace(get(row, m.Title))
	if title == "" {
		return event.Record{}, false
	}

	summary := get(row, m.Summary)
	start := get(row, m.Start)

	ids := make([]string, 0, len(m.ID))
	for _, c := range m.ID {
		ids = append(ids, row[c])
	}

	res := classify.Classify(im.rules, title, summary)

	return event.Record{
		Source:    im.source.Tag,
		SourceID:  event.SourceID(title, start, ids...),
		Title:     title,
		Summary:   summary,
		URL:       strings.TrimSpace(get(row, m.URL)),
		StartAt:   start,
		Area:      im.source.Area,
		Venue:     get(row, m.Venue),
		PriceBand: res.PriceBand,
		Tags:      res.Tags,
		Score:     res.Score,
	}, true
}

// Import replaces the stored table with the records parsed from text.
func (im *Importer) Import(ctx context.Context, store Store, text string) (Stats, error) {
	records, stats, err := im.Records(text)
	if err != nil {
		return stats, err
	}

	if err := store.ReplaceAll(ctx, records); err != nil {
		return stats, fmt.Errorf("storing events: %w", err)
	}

	im.log.Info("Imported events", logger.Fields{
		"source":           im.source.Tag,
		"read":             stats.Read,
		"imported":         stats.Imported,
		"skipped_no_title": stats.SkippedNoTitle,
	})
	return stats, nil
}

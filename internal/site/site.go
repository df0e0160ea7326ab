package site

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pfrederiksen/kids-events/internal/calendar"
	"github.com/pfrederiksen/kids-events/internal/config"
	"github.com/pfrederiksen/kids-events/internal/event"
	"github.com/pfrederiksen/kids-events/internal/logger"
)

const (
	IndexFile    = "index.html"
	StyleFile    = "style.css"
	CalendarFile = "events.ics"

	HeadingUpcoming = "これからのイベント"
	HeadingPast     = "過去のイベント（直近）"
)

//go:embed assets/index.html.tmpl assets/style.css
var assets embed.FS

var pageTemplate = template.Must(template.ParseFS(assets, "assets/index.html.tmpl"))

// Stylesheet returns the fixed stylesheet written next to the page.
func Stylesheet() []byte {
	b, err := assets.ReadFile("assets/style.css")
	if err != nil {
		panic(err) // embedded at build time
	}
	return b
}

// RecordSource supplies the stored events.
type RecordSource interface {
	All(ctx context.Context) ([]event.Record, error)
}

// Result describes one build.
type Result struct {
	Upcoming     bool
	Count        int
	Dropped      int
	IndexPath    string
	StylePath    string
	CalendarPath string // empty unless the calendar feed is enabled
}

// Builder renders and writes the site.
type Builder struct {
	cfg config.Site
	loc *time.Location
	log *logger.Logger

	// Now is the build clock; it decides "today" and the update stamp.
	Now func() time.Time
}

// New creates a Builder from cfg.
func New(cfg *config.Config, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.Discard()
	}
	return &Builder{
		cfg: cfg.Site,
		loc: cfg.Location(),
		log: log,
		Now: time.Now,
	}
}

type card struct {
	Title   string
	URL     string
	When    string
	Summary string
	Weekend bool
	Free    bool
}

type page struct {
	Title        string
	Heading      string
	UpdatedAt    string
	Version      string
	CalendarFile string
	Cards        []card
}

// Render produces the HTML document for sel as of now.
func (b *Builder) Render(sel Selection, now time.Time) ([]byte, error) {
	now = now.In(b.loc)

	p := page{
		Title:     b.cfg.Title,
		Heading:   HeadingPast,
		UpdatedAt: now.Format("2006-01-02 15:04"),
		Version:   strconv.FormatInt(now.Unix(), 10),
		Cards:     make([]card, 0, len(sel.Events)),
	}
	if sel.Upcoming {
		p.Heading = HeadingUpcoming
	}
	if b.cfg.Calendar {
		p.CalendarFile = CalendarFile
	}

	for i := range sel.Events {
		r := &sel.Events[i]
		p.Cards = append(p.Cards, card{
			Title:   r.Title,
			URL:     r.URL,
			When:    dateLine(r),
			Summary: truncate(r.Summary, b.cfg.SummaryLimit),
			Weekend: event.IsWeekend(r.StartAt),
			Free:    r.HasTag(event.TagFree),
		})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return buf.Bytes(), nil
}

// Build reads all records from src, selects the ones to show and writes
// the output directory.
func (b *Builder) Build(ctx context.Context, src RecordSource) (*Result, error) {
	records, err := src.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}

	now := b.Now()
	today := event.Today(now, b.loc)
	sel := Select(records, today, b.cfg.PastLimit)

	if sel.Dropped > 0 {
		b.log.Debug("Skipped events without a YYYY-MM-DD start", logger.Fields{
			"dropped": sel.Dropped,
		})
	}

	html, err := b.Render(sel, now)
	if err != nil {
		return nil, err
	}

	dir := b.cfg.OutputDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	res := &Result{
		Upcoming:  sel.Upcoming,
		Count:     len(sel.Events),
		Dropped:   sel.Dropped,
		IndexPath: filepath.Join(dir, IndexFile),
		StylePath: filepath.Join(dir, StyleFile),
	}

	if err := writeFileAtomic(res.StylePath, Stylesheet()); err != nil {
		return nil, err
	}
	if b.cfg.Calendar {
		res.CalendarPath = filepath.Join(dir, CalendarFile)
		ics := calendar.GenerateICS(b.cfg.Title, sel.Events, now, b.loc)
		if err := writeFileAtomic(res.CalendarPath, []byte(ics)); err != nil {
			return nil, err
		}
	}
	// The page goes last so it never links a stylesheet or feed that is missing.
	if err := writeFileAtomic(res.IndexPath, html); err != nil {
		return nil, err
	}

	b.log.Info("Built site", logger.Fields{
		"today":    today,
		"upcoming": sel.Upcoming,
		"events":   res.Count,
		"dropped":  sel.Dropped,
		"index":    res.IndexPath,
	})
	return res, nil
}

// writeFileAtomic writes data to a temp file in path's directory and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting mode of %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

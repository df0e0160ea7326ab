package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/kids-events/internal/config"
	"github.com/pfrederiksen/kids-events/internal/fetcher"
	"github.com/pfrederiksen/kids-events/internal/storage"
)

const feed = "\ufeffentity_id,name,summary,startDate,locationName,detailedUrl\n" +
	"E-1,なつまつり,無料の縁日,2099-01-01,公園,\n" +
	"E-2,親子工作教室,材料費200円,2099-02-01T10:00,市民センター,https://example.com/2\n" +
	"E-3,,説明だけ,2099-03-01,どこか,\n" +
	"E-4,昔の体験会,,2020-05-05,図書館,\n" +
	"E-5,日付不明の催し,,未定,公民館,\n"

var clock = func() time.Time { return time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC) }

type feedServer struct {
	*httptest.Server
	body atomic.Value // string
}

func newFeedServer(t *testing.T, body string) *feedServer {
	t.Helper()
	fs := &feedServer{}
	fs.body.Store(body)
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(fs.body.Load().(string)))
	}))
	t.Cleanup(fs.Close)
	return fs
}

func testConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Source.URL = url
	cfg.Source.Timeout = 5 * time.Second
	cfg.Store.DSN = filepath.Join(dir, "data", "data.db")
	cfg.Site.OutputDir = filepath.Join(dir, "site")
	cfg.Metrics.Textfile = filepath.Join(dir, "metrics", "kids_events.prom")
	return cfg
}

func newRunner(cfg *config.Config) *Runner {
	r := New(cfg, nil)
	r.SetClock(clock)
	return r
}

func TestRun_EndToEnd(t *testing.T) {
	srv := newFeedServer(t, feed)
	cfg := testConfig(t, srv.URL)

	report, err := newRunner(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.RunID == "" {
		t.Error("RunID should be set")
	}
	if report.Encoding != fetcher.EncodingUTF8BOM {
		t.Errorf("Encoding = %q", report.Encoding)
	}
	if report.Import.Read != 5 || report.Import.Imported != 4 || report.Import.SkippedNoTitle != 1 {
		t.Errorf("Import = %+v", report.Import)
	}
	if !report.Site.Upcoming || report.Site.Count != 2 || report.Site.Dropped != 1 {
		t.Errorf("Site = %+v", report.Site)
	}

	html, err := os.ReadFile(filepath.Join(cfg.Site.OutputDir, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	doc.Find("article.card h3").Each(func(_ int, s *goquery.Selection) {
		got = append(got, s.Text())
	})
	want := []string{"なつまつり", "親子工作教室"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("listed %v, want %v", got, want)
	}
	if summary := doc.Find("article.card .summary").First().Text(); summary != "無料の縁日" {
		t.Errorf("first summary = %q", summary)
	}

	if _, err := os.Stat(filepath.Join(cfg.Site.OutputDir, "style.css")); err != nil {
		t.Errorf("style.css missing: %v", err)
	}

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("metrics textfile missing: %v", err)
	}
	for _, line := range []string{
		"kids_events_imported_events 4",
		"kids_events_skipped_rows 1",
		`kids_events_displayed_events{section="upcoming"} 2`,
		"kids_events_last_success_timestamp_seconds",
	} {
		if !strings.Contains(string(prom), line) {
			t.Errorf("metrics missing %q", line)
		}
	}
}

func TestRun_StoredRecords(t *testing.T) {
	srv := newFeedServer(t, feed)
	cfg := testConfig(t, srv.URL)

	if _, err := newRunner(cfg).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	store, err := storage.Open(context.Background(), cfg.Store)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	records, err := store.All(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("stored %d records, want 4", len(records))
	}
	fest := records[0]
	if fest.PriceBand != "free" || fest.Score != 60 || fest.SourceID != "E-1" {
		t.Errorf("festival = %+v", fest)
	}
	craft := records[1]
	if craft.PriceBand != "unknown" || craft.Score != 80 {
		t.Errorf("craft = %+v", craft)
	}
}

func TestRun_HTMLResponseKeepsPreviousState(t *testing.T) {
	srv := newFeedServer(t, feed)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	if _, err := newRunner(cfg).Run(ctx); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(filepath.Join(cfg.Site.OutputDir, "index.html"))
	if err != nil {
		t.Fatal(err)
	}

	srv.body.Store("<html><head><title>Error</title></head><body>maintenance</body></html>")

	_, err = newRunner(cfg).Run(ctx)
	if !errors.Is(err, fetcher.ErrHTMLContent) {
		t.Fatalf("Run() error = %v, want ErrHTMLContent", err)
	}

	after, _ := os.ReadFile(filepath.Join(cfg.Site.OutputDir, "index.html"))
	if string(before) != string(after) {
		t.Error("index.html changed after a failed run")
	}

	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if n, _ := store.Count(ctx); n != 4 {
		t.Errorf("store has %d rows after failed run, want 4", n)
	}

	prom, _ := os.ReadFile(cfg.Metrics.Textfile)
	if !strings.Contains(string(prom), `kids_events_failures_total{stage="fetch"} 1`) {
		t.Errorf("failure not recorded:\n%s", prom)
	}
	if strings.Contains(string(prom), "last_success_timestamp_seconds") {
		t.Error("failed run should not export a last success time")
	}
}

func TestRun_Idempotent(t *testing.T) {
	srv := newFeedServer(t, feed)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	first, err := newRunner(cfg).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := newRunner(cfg).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.Import.Imported != second.Import.Imported || first.Import.Read != second.Import.Read {
		t.Errorf("imports differ: %+v vs %+v", first.Import, second.Import)
	}

	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if n, _ := store.Count(ctx); n != 4 {
		t.Errorf("store has %d rows after two runs, want 4", n)
	}
}

func TestBuildOnly(t *testing.T) {
	srv := newFeedServer(t, feed)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	if _, err := newRunner(cfg).Run(ctx); err != nil {
		t.Fatal(err)
	}
	// The feed is no longer reachable; a build-only run must not need it.
	srv.Close()

	r := newRunner(cfg)
	r.SetClock(func() time.Time { return time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC) })
	res, err := r.BuildOnly(ctx)
	if err != nil {
		t.Fatalf("BuildOnly() error = %v", err)
	}
	if res.Upcoming {
		t.Error("in 2100 every event is past")
	}
	if res.Count != 3 {
		t.Errorf("Count = %d, want the 3 dated past events", res.Count)
	}
}

func TestRun_FetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()
	cfg := testConfig(t, srv.URL)

	if _, err := newRunner(cfg).Run(context.Background()); err == nil {
		t.Fatal("Run() expected error for 410")
	}
	if _, err := os.Stat(cfg.Site.OutputDir); !os.IsNotExist(err) {
		t.Error("site should not be written when the fetch fails")
	}
}

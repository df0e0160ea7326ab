package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/kids-events/internal/config"
)

// ErrHTMLContent is returned when the response body is an HTML document
// instead of CSV.
var ErrHTMLContent = errors.New("fetched HTML instead of CSV")

// Result is a decoded download.
type Result struct {
	Text     string
	Encoding string // name of the decoding that succeeded
	Bytes    int
}

// Fetcher performs the single CSV download of a run
type Fetcher struct {
	client    *http.Client
	url       string
	userAgent string
}

// New creates a Fetcher for cfg. The client timeout bounds the whole request
// including reading the body.
func New(cfg config.Source) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		url:       cfg.URL,
		userAgent: userAgent,
	}
}

// URL returns the address Fetch downloads.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch downloads the CSV and returns its decoded text
func (f *Fetcher) Fetch(ctx context.Context) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching csv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	text, enc := Decode(raw)
	if err := checkNotHTML(text); err != nil {
		return nil, err
	}

	return &Result{
		Text:     text,
		Encoding: enc,
		Bytes:    len(raw),
	}, nil
}

// LooksLikeHTML is the content-shape check: any "<html" tag, case-insensitive.
func LooksLikeHTML(text string) bool {
	return strings.Contains(strings.ToLower(text), "<html")
}

func checkNotHTML(text string) error {
	if !LooksLikeHTML(text) {
		return nil
	}
	if title := pageTitle(text); title != "" {
		return fmt.Errorf("%w (page title %q)", ErrHTMLContent, title)
	}
	return ErrHTMLContent
}

// pageTitle extracts the <title> of an HTML page for the error message.
func pageTitle(text string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return ""
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if len([]rune(title)) > 80 {
		title = string([]rune(title)[:80])
	}
	return title
}

// Timeout reports the client timeout, for logging.
func (f *Fetcher) Timeout() time.Duration {
	return f.client.Timeout
}

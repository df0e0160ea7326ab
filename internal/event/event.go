package event

import "strings"

// Price bands. The feed carries no price column, so only the presence of a
// "free" keyword can be detected.
const (
	PriceFree    = "free"
	PriceUnknown = "unknown"
)

// Tag names stored in Record.Tags.
const (
	TagElementary = "elem"
	TagFree       = "free"
)

// Record represents one imported event row.
type Record struct {
	ID        int64           `json:"id,omitempty"` // surrogate key assigned by the store
	Source    string          `json:"source"`
	SourceID  string          `json:"source_id"`
	Title     string          `json:"title"`
	Summary   string          `json:"summary"`
	URL       string          `json:"url,omitempty"`
	StartAt   string          `json:"start_at"`
	Area      string          `json:"area"`
	Venue     string          `json:"venue_name"`
	PriceBand string          `json:"price_band"`
	Tags      map[string]bool `json:"tags"`
	Score     int             `json:"kid_score"`
}

// HasTag reports whether the record carries tag.
func (r *Record) HasTag(tag string) bool {
	return r.Tags[tag]
}

// SourceID picks the record identity: the first non-empty candidate, else
// title and start concatenated. The fallback is not stable across feed
// changes, which is fine while every import replaces the whole table.
func SourceID(title, start string, candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return title + start
}

// Package classify derives price band, tags and suitability score for an
// event from its free text.
package classify

import (
	"strings"

	"github.com/pfrederiksen/kids-events/internal/config"
	"github.com/pfrederiksen/kids-events/internal/event"
)

// Rule sets tag when any of its keywords occurs in the text.
type Rule struct {
	Tag      string
	Keywords []string
}

// Rules is the keyword table plus the two score levels.
type Rules struct {
	Tags       []Rule
	BaseScore  int
	ChildScore int // used when the elem tag is set
}

// Result is what Classify derives for one event.
type Result struct {
	PriceBand string
	Tags      map[string]bool
	Score     int
}

// FromConfig builds the keyword table from cfg.
func FromConfig(cfg config.Classify) Rules {
	rules := Rules{
		BaseScore:  cfg.BaseScore,
		ChildScore: cfg.ChildScore,
	}
	rules.Tags = append(rules.Tags, Rule{Tag: event.TagElementary, Keywords: cfg.ChildKeywords})
	if cfg.FreeKeyword != "" {
		rules.Tags = append(rules.Tags, Rule{Tag: event.TagFree, Keywords: []string{cfg.FreeKeyword}})
	}
	return rules
}

// Classify scans title and summary. Matching is plain substring containment
// on the concatenated text, so a keyword split across the two fields counts.
func Classify(rules Rules, title, summary string) Result {
	text := title + summary

	res := Result{
		PriceBand: event.PriceUnknown,
		Tags:      make(map[string]bool),
		Score:     rules.BaseScore,
	}

	for _, r := range rules.Tags {
		if containsAny(text, r.Keywords) {
			res.Tags[r.Tag] = true
		}
	}

	if res.Tags[event.TagElementary] {
		res.Score = rules.ChildScore
	}
	if res.Tags[event.TagFree] {
		res.PriceBand = event.PriceFree
	}
	return res
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

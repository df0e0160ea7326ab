package site

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pfrederiksen/kids-events/internal/event"
)

const ellipsis = "…"

var weekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// truncate cuts s to limit characters, appending an ellipsis when it cut.
func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + ellipsis
}

// formatStart renders a start string as "2099年1月1日(木) 10:00". Strings
// that cannot be read are shown as they are.
func formatStart(startAt string) string {
	t, ok := event.ParseStart(startAt, time.UTC)
	if !ok {
		return strings.TrimSpace(startAt)
	}
	s := fmt.Sprintf("%d年%d月%d日(%s)", t.Year(), int(t.Month()), t.Day(), weekdays[t.Weekday()])
	if event.HasClock(startAt) {
		s += t.Format(" 15:04")
	}
	return s
}

// dateLine joins the formatted start and the venue.
func dateLine(r *event.Record) string {
	date := formatStart(r.StartAt)
	venue := strings.TrimSpace(r.Venue)
	if venue == "" {
		return date
	}
	return date + " / " + venue
}

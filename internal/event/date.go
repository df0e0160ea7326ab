package event

import (
	"strings"
	"time"
)

const (
	// DateLayout is the layout of the date prefix of StartAt.
	DateLayout = "2006-01-02"
	datePrefix = len(DateLayout)
)

// DateKey returns the YYYY-MM-DD prefix of a start string and whether it is
// well formed: at least ten characters whose first ten are a valid
// YYYY-MM-DD date. The key compares correctly as a plain string.
func DateKey(startAt string) (string, bool) {
	s := strings.TrimSpace(startAt)
	if len(s) < datePrefix {
		return "", false
	}
	key := s[:datePrefix]
	if strings.Count(key, "-") != 2 {
		return "", false
	}
	// Rejects unpadded or non-numeric keys like "2099-1-1 1" that would
	// sort after every real date.
	if _, err := time.Parse(DateLayout, key); err != nil {
		return "", false
	}
	return key, true
}

// Today returns now's calendar date in loc as a date key.
func Today(now time.Time, loc *time.Location) string {
	if loc != nil {
		now = now.In(loc)
	}
	return now.Format(DateLayout)
}

// ParseStart interprets the start string as a local date-time. It accepts a
// bare date and an optional "HH:MM[:SS]" part separated by "T" or a space.
// Returns the zero time and false if the string cannot be read.
func ParseStart(startAt string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.Replace(strings.TrimSpace(startAt), "T", " ", 1)

	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	if len(s) >= len(layouts[0]) {
		if t, err := time.ParseInLocation(layouts[0], s[:len(layouts[0])], loc); err == nil {
			return t, true
		}
	}
	if len(s) >= len(layouts[1]) {
		if t, err := time.ParseInLocation(layouts[1], s[:len(layouts[1])], loc); err == nil {
			return t, true
		}
	}
	if len(s) >= datePrefix {
		if t, err := time.ParseInLocation(DateLayout, s[:datePrefix], loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// HasClock reports whether the start string carries a time of day.
func HasClock(startAt string) bool {
	s := strings.TrimSpace(startAt)
	return len(s) > datePrefix+1 && strings.Contains(s[datePrefix:], ":")
}

// IsWeekend reports whether the start date falls on a Saturday or Sunday.
// Unreadable dates are never weekends.
func IsWeekend(startAt string) bool {
	t, ok := ParseStart(startAt, time.UTC)
	if !ok {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

package event

import (
	"testing"
	"time"
)

func TestDateKey(t *testing.T) {
	tests := []struct {
		name    string
		startAt string
		wantKey string
		wantOK  bool
	}{
		{"bare date", "2099-01-01", "2099-01-01", true},
		{"date and time", "2099-01-01T10:00:00", "2099-01-01", true},
		{"leading space", "  2026-10-17 09:30", "2026-10-17", true},
		{"empty", "", "", false},
		{"too short", "2099-1-1", "", false},
		{"slashes", "2099/01/01", "", false},
		{"three hyphens", "2099-01-0-", "", false},
		{"japanese date", "2099年01月01日", "", false},
		{"unpadded with time", "2099-1-1 10:00", "", false},
		{"month name", "Jan-01-2099", "", false},
		{"letters", "ab-cd-efgh", "", false},
		{"impossible month", "2099-13-01", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := DateKey(tt.startAt)
			if ok != tt.wantOK || key != tt.wantKey {
				t.Errorf("DateKey(%q) = (%q, %v), want (%q, %v)", tt.startAt, key, ok, tt.wantKey, tt.wantOK)
			}
		})
	}
}

func TestToday(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2026-10-17 20:00 UTC is already the 18th in Tokyo.
	now := time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)

	if got := Today(now, time.UTC); got != "2026-10-17" {
		t.Errorf("Today(UTC) = %q", got)
	}
	if got := Today(now, tokyo); got != "2026-10-18" {
		t.Errorf("Today(JST) = %q", got)
	}
}

func TestParseStart(t *testing.T) {
	tests := []struct {
		name     string
		startAt  string
		wantOK   bool
		wantTime time.Time
	}{
		{"date only", "2026-03-14", true, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"T separator", "2026-03-14T10:30", true, time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)},
		{"space and seconds", "2026-03-14 10:30:15", true, time.Date(2026, 3, 14, 10, 30, 15, 0, time.UTC)},
		{"offset suffix ignored", "2026-03-14T10:30:00+09:00", true, time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)},
		{"invalid", "not a date", false, time.Time{}},
		{"empty", "", false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStart(tt.startAt, time.UTC)
			if ok != tt.wantOK {
				t.Fatalf("ParseStart(%q) ok = %v, want %v", tt.startAt, ok, tt.wantOK)
			}
			if !got.Equal(tt.wantTime) {
				t.Errorf("ParseStart(%q) = %v, want %v", tt.startAt, got, tt.wantTime)
			}
		})
	}
}

func TestHasClock(t *testing.T) {
	if HasClock("2026-03-14") {
		t.Error("bare date has no clock")
	}
	if !HasClock("2026-03-14T10:00") {
		t.Error("expected clock in 2026-03-14T10:00")
	}
}

func TestIsWeekend(t *testing.T) {
	tests := []struct {
		startAt string
		want    bool
	}{
		{"2026-10-17", true},        // Saturday
		{"2026-10-18T10:00", true},  // Sunday
		{"2026-10-19 09:00", false}, // Monday
		{"", false},
		{"someday", false},
	}

	for _, tt := range tests {
		t.Run(tt.startAt, func(t *testing.T) {
			if got := IsWeekend(tt.startAt); got != tt.want {
				t.Errorf("IsWeekend(%q) = %v, want %v", tt.startAt, got, tt.want)
			}
		})
	}
}

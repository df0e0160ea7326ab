package site

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/kids-events/internal/event"
)

// Selection is the set of events chosen for the page.
type Selection struct {
	Events   []event.Record
	Upcoming bool // false when the page falls back to past events
	Dropped  int  // records without a well-formed date
}

// Select partitions records around today (a YYYY-MM-DD key). Events dated
// today count as upcoming. If any upcoming events exist all of them are
// selected; otherwise the pastLimit most recent past events. Either way
// the result is sorted ascending by start, then title.
func Select(records []event.Record, today string, pastLimit int) Selection {
	var future, past []event.Record
	dropped := 0

	for _, r := range records {
		key, ok := event.DateKey(r.StartAt)
		if !ok {
			dropped++
			continue
		}
		if key >= today {
			future = append(future, r)
		} else {
			past = append(past, r)
		}
	}

	if len(future) > 0 {
		sortByStart(future)
		return Selection{Events: future, Upcoming: true, Dropped: dropped}
	}

	sortByStart(past)
	if pastLimit >= 0 && len(past) > pastLimit {
		past = past[len(past)-pastLimit:]
	}
	return Selection{Events: past, Upcoming: false, Dropped: dropped}
}

func sortByStart(records []event.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		si := strings.TrimSpace(records[i].StartAt)
		sj := strings.TrimSpace(records[j].StartAt)
		if si != sj {
			return si < sj
		}
		return records[i].Title < records[j].Title
	})
}

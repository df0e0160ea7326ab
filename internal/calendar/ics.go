// Package calendar renders event records as an iCalendar feed so the
// listing can be subscribed to from a phone calendar.
package calendar

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pfrederiksen/kids-events/internal/event"
)

const prodID = "-//kids-events//kids-events//JA"

// GenerateICS generates an iCalendar (.ics) document for records. Records
// whose start cannot be read are left out. Dated-only starts become all-day
// events; starts with a clock become two-hour events in loc.
func GenerateICS(name string, records []event.Record, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	ics := &strings.Builder{}

	writeLine(ics, "BEGIN:VCALENDAR")
	writeLine(ics, "VERSION:2.0")
	writeLine(ics, "PRODID:"+prodID)
	writeLine(ics, "CALSCALE:GREGORIAN")
	writeLine(ics, "METHOD:PUBLISH")
	writeLine(ics, fmt.Sprintf("X-WR-CALNAME:%s", escapeICS(name)))

	stamp := formatICSTime(now)
	for i := range records {
		writeEvent(ics, &records[i], stamp, loc)
	}

	writeLine(ics, "END:VCALENDAR")
	return ics.String()
}

func writeEvent(ics *strings.Builder, r *event.Record, stamp string, loc *time.Location) {
	start, ok := event.ParseStart(r.StartAt, loc)
	if !ok {
		return
	}

	writeLine(ics, "BEGIN:VEVENT")
	writeLine(ics, fmt.Sprintf("UID:%s@%s", uidPart(r.SourceID), uidPart(r.Source)))
	writeLine(ics, fmt.Sprintf("DTSTAMP:%s", stamp))

	if event.HasClock(r.StartAt) {
		writeLine(ics, fmt.Sprintf("DTSTART:%s", formatICSTime(start)))
		writeLine(ics, fmt.Sprintf("DTEND:%s", formatICSTime(start.Add(2*time.Hour))))
	} else {
		writeLine(ics, fmt.Sprintf("DTSTART;VALUE=DATE:%s", start.Format("20060102")))
		writeLine(ics, fmt.Sprintf("DTEND;VALUE=DATE:%s", start.AddDate(0, 0, 1).Format("20060102")))
	}

	writeLine(ics, fmt.Sprintf("SUMMARY:%s", escapeICS(r.Title)))
	if r.Summary != "" {
		writeLine(ics, fmt.Sprintf("DESCRIPTION:%s", escapeICS(r.Summary)))
	}
	if r.Venue != "" {
		writeLine(ics, fmt.Sprintf("LOCATION:%s", escapeICS(r.Venue)))
	}
	if r.URL != "" {
		writeLine(ics, fmt.Sprintf("URL:%s", r.URL))
	}
	writeLine(ics, "STATUS:CONFIRMED")
	writeLine(ics, "TRANSP:TRANSPARENT")
	writeLine(ics, "END:VEVENT")
}

// maxLineOctets is the RFC 5545 content line limit, excluding CRLF.
const maxLineOctets = 75

// writeLine writes one folded content line terminated by CRLF.
func writeLine(ics *strings.Builder, line string) {
	ics.WriteString(foldLine(line))
	ics.WriteString("\r\n")
}

// foldLine splits line into chunks of at most 75 octets joined by CRLF and a
// space. Splits fall between runes so multi-byte characters stay whole.
func foldLine(line string) string {
	if len(line) <= maxLineOctets {
		return line
	}
	var b strings.Builder
	n := 0
	for _, r := range line {
		size := utf8.RuneLen(r)
		if n+size > maxLineOctets {
			b.WriteString("\r\n ")
			n = 1 // the leading space counts
		}
		b.WriteRune(r)
		n += size
	}
	return b.String()
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// uidPart keeps UID values on one line and free of spaces.
func uidPart(s string) string {
	return strings.Join(strings.Fields(s), "-")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

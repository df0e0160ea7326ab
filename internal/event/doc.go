// Package event provides the normalized event record shared by the importer,
// the store and the page builder.
//
// A Record is one advertised happening from an upstream feed. Its start time is
// kept as the feed's own string; only the leading YYYY-MM-DD prefix is ever
// interpreted, as a sortable and comparable date key.
package event

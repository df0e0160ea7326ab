package importer

import "github.com/pfrederiksen/kids-events/internal/config"

// Mapping is the schema resolved against one CSV header: for each
// normalized field, the source column to read, or "" when none is present.
// ID keeps every present candidate because identity falls through them
// row by row.
type Mapping struct {
	Title   string
	Summary string
	Start   string
	Venue   string
	URL     string
	ID      []string
}

// Resolve picks, per field, the first candidate column that exists in table.
func Resolve(schema config.Schema, table *Table) Mapping {
	m := Mapping{
		Title:   firstPresent(table, schema.Title),
		Summary: firstPresent(table, schema.Summary),
		Start:   firstPresent(table, schema.Start),
		Venue:   firstPresent(table, schema.Venue),
		URL:     firstPresent(table, schema.URL),
	}
	for _, c := range schema.ID {
		if table.Has(c) {
			m.ID = append(m.ID, c)
		}
	}
	return m
}

func firstPresent(table *Table, candidates []string) string {
	for _, c := range candidates {
		if table.Has(c) {
			return c
		}
	}
	return ""
}

// get reads column from row; an unmapped column reads as "".
func get(row map[string]string, column string) string {
	if column == "" {
		return ""
	}
	return row[column]
}

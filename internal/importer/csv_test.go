package importer

import (
	"testing"

	"github.com/pfrederiksen/kids-events/internal/config"
)

func TestParse(t *testing.T) {
	text := "\ufeff name ,summary,startDate\n" +
		"A,\"multi\nline\",2099-01-01\n" +
		"B\n" +
		"\n" +
		"C,c,2099-01-03,extra\n"

	table, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(table.Header) != 3 || table.Header[0] != "name" {
		t.Fatalf("Header = %q", table.Header)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(table.Rows))
	}
	if table.Rows[0]["summary"] != "multi\nline" {
		t.Errorf("quoted newline not preserved: %q", table.Rows[0]["summary"])
	}
	if table.Rows[1]["name"] != "B" || table.Rows[1]["startDate"] != "" {
		t.Errorf("short row = %v", table.Rows[1])
	}
	if table.Rows[2]["startDate"] != "2099-01-03" {
		t.Errorf("long row = %v", table.Rows[2])
	}
}

func TestParse_Empty(t *testing.T) {
	table, err := Parse("")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(table.Header) != 0 || len(table.Rows) != 0 {
		t.Errorf("table = %+v, want empty", table)
	}
}

func TestResolve(t *testing.T) {
	table := &Table{Header: []string{"_id", "name", "homepage", "url"}}

	m := Resolve(config.Default().Schema, table)

	if m.Title != "name" {
		t.Errorf("Title = %q", m.Title)
	}
	if m.URL != "url" {
		t.Errorf("URL = %q, want url (ranked before homepage)", m.URL)
	}
	if m.Summary != "" || m.Start != "" || m.Venue != "" {
		t.Errorf("absent columns should resolve to empty: %+v", m)
	}
	if len(m.ID) != 1 || m.ID[0] != "_id" {
		t.Errorf("ID = %v, want [_id]", m.ID)
	}
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/pfrederiksen/kids-events/internal/config"
	"github.com/pfrederiksen/kids-events/internal/event"
)

const sqliteDDL = `
CREATE TABLE IF NOT EXISTS events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  source TEXT,
  source_id TEXT,
  title TEXT,
  summary TEXT,
  url TEXT,
  start_at TEXT,
  area TEXT,
  venue_name TEXT,
  price_band TEXT,
  tags_json TEXT,
  kid_score INTEGER
)`

const postgresDDL = `
CREATE TABLE IF NOT EXISTS events (
  id SERIAL PRIMARY KEY,
  source TEXT,
  source_id TEXT,
  title TEXT,
  summary TEXT,
  url TEXT,
  start_at TEXT,
  area TEXT,
  venue_name TEXT,
  price_band TEXT,
  tags_json TEXT,
  kid_score INTEGER
)`

const insertSQL = `
INSERT INTO events
  (source, source_id, title, summary, url, start_at, area, venue_name, price_band, tags_json, kid_score)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`

const selectSQL = `
SELECT id,
       COALESCE(source, ''), COALESCE(source_id, ''), COALESCE(title, ''),
       COALESCE(summary, ''), COALESCE(url, ''), COALESCE(start_at, ''),
       COALESCE(area, ''), COALESCE(venue_name, ''), COALESCE(price_band, ''),
       COALESCE(tags_json, ''), COALESCE(kid_score, 0)
FROM events
ORDER BY id`

// Storage handles persistence of event records
type Storage struct {
	db     *sql.DB
	driver string
}

// Open connects to the configured backend and creates the events table if it
// does not exist. For SQLite the database file's directory is created too.
func Open(ctx context.Context, cfg config.Store) (*Storage, error) {
	var driverName string
	switch cfg.Driver {
	case config.DriverSQLite, "":
		driverName = "sqlite"
		if dir := filepath.Dir(cfg.DSN); dir != "." && !strings.HasPrefix(cfg.DSN, "file:") {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
	case config.DriverPostgres:
		driverName = "postgres"
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", cfg.Driver)
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", driverName, err)
	}
	if driverName == "sqlite" {
		// One writer; avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}

	s := &Storage{db: db, driver: driverName}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *Storage) migrate(ctx context.Context) error {
	ddl := sqliteDDL
	if s.driver == "postgres" {
		ddl = postgresDDL
	}
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases the database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (s *Storage) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ReplaceAll deletes every stored record and inserts records in their given
// order, all in one transaction. On any error the transaction is rolled back
// and the previous rows remain.
func (s *Storage) ReplaceAll(ctx context.Context, records []event.Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return fmt.Errorf("clearing events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(insertSQL))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		tags, mErr := json.Marshal(tagsOrEmpty(r.Tags))
		if mErr != nil {
			err = fmt.Errorf("encoding tags for %q: %w", r.SourceID, mErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx,
			r.Source, r.SourceID, r.Title, r.Summary, r.URL, r.StartAt,
			r.Area, r.Venue, r.PriceBand, string(tags), r.Score,
		); err != nil {
			return fmt.Errorf("inserting %q: %w", r.SourceID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

func tagsOrEmpty(tags map[string]bool) map[string]bool {
	if tags == nil {
		return map[string]bool{}
	}
	return tags
}

// All returns every stored record in insertion order.
func (s *Storage) All(ctx context.Context) ([]event.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectSQL)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var records []event.Record
	for rows.Next() {
		var (
			r        event.Record
			tagsJSON string
		)
		if err := rows.Scan(
			&r.ID, &r.Source, &r.SourceID, &r.Title, &r.Summary, &r.URL, &r.StartAt,
			&r.Area, &r.Venue, &r.PriceBand, &tagsJSON, &r.Score,
		); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		r.Tags = make(map[string]bool)
		if tagsJSON != "" {
			if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
				return nil, fmt.Errorf("parsing tags of event %d: %w", r.ID, err)
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return n, nil
}

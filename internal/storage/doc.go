// Package storage persists event records in a relational `events` table.
//
// SQLite (modernc.org/sqlite, pure Go) is the default backend; PostgreSQL
// (lib/pq) is available for deployments that already run one. The table is
// created if absent and is fully replaced on every import inside a single
// transaction, so a failed import leaves the previous contents intact.
package storage

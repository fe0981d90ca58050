// Package store persists RFP records and their message threads in SQLite
// or PostgreSQL through database/sql.
//
// Queries are written with '?' placeholders and rebound to $n for pgx.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an RFP does not exist.
var ErrNotFound = errors.New("not found")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS rfps (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id      INTEGER NOT NULL DEFAULT 0,
		filename        TEXT NOT NULL,
		file_url        TEXT NOT NULL DEFAULT '',
		content_type    TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL,
		docx_url        TEXT,
		pdf_url         TEXT,
		structured_data TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rfps_filename_idx ON rfps (filename)`,
	`CREATE TABLE IF NOT EXISTS rfp_messages (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		rfp_id     INTEGER NOT NULL REFERENCES rfps (id) ON DELETE CASCADE,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rfp_messages_rfp_idx ON rfp_messages (rfp_id, seq)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS rfps (
		id              BIGSERIAL PRIMARY KEY,
		company_id      BIGINT NOT NULL DEFAULT 0,
		filename        TEXT NOT NULL,
		file_url        TEXT NOT NULL DEFAULT '',
		content_type    TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL,
		docx_url        TEXT,
		pdf_url         TEXT,
		structured_data TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rfps_filename_idx ON rfps (filename)`,
	`CREATE TABLE IF NOT EXISTS rfp_messages (
		seq        BIGSERIAL PRIMARY KEY,
		id         TEXT NOT NULL UNIQUE,
		rfp_id     BIGINT NOT NULL REFERENCES rfps (id) ON DELETE CASCADE,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rfp_messages_rfp_idx ON rfp_messages (rfp_id, seq)`,
}

// Store is safe for concurrent use.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Open connects to dsn with the given driver and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if driver == DriverSQLite && isMemoryDSN(dsn) {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	s, err := New(ctx, db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and applies the schema.
func New(ctx context.Context, db *sql.DB, driver string) (*Store, error) {
	s := &Store{db: db, driver: driver, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := postgresSchema
	if s.driver == DriverSQLite {
		stmts = append([]string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA busy_timeout = 10000",
			"PRAGMA synchronous = NORMAL",
		}, sqliteSchema...)
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites '?' placeholders as $1..$n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

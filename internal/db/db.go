package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"
)

// DB wraps a sql.DB pointed at the call archive.
type DB struct {
	*sql.DB
	driver string
}

// Open connects to the call archive. For PostgreSQL the schema is owned by
// the ingestion job and is not touched; a SQLite file is created and
// migrated on first use.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverPgx:
		if dsn == "" {
			return nil, fmt.Errorf("database dsn is required for the pgx driver (set DATABASE_URL)")
		}
		sqlDB, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("pinging database: %w", err)
		}
		return &DB{DB: sqlDB, driver: driver}, nil

	case DriverSQLite:
		if dsn == "" {
			return nil, fmt.Errorf("database dsn is required for the sqlite driver")
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		sqlDB, err := sql.Open("sqlite", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("pinging database: %w", err)
		}
		d := &DB{DB: sqlDB, driver: driver}
		if err := d.migrate(); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return d, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// OpenMemory creates an in-memory SQLite archive (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)

	d := &DB{DB: sqlDB, driver: DriverSQLite}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return d, nil
}

// New wraps an existing connection, e.g. one from sqlmock.
func New(sqlDB *sql.DB, driver string) *DB {
	return &DB{DB: sqlDB, driver: driver}
}

// Driver returns the database/sql driver name.
func (d *DB) Driver() string {
	return d.driver
}

// Dialect names the SQL dialect for query generation prompts.
func (d *DB) Dialect() string {
	if d.driver == DriverSQLite {
		return "SQLite"
	}
	return "PostgreSQL"
}

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema mirrors the star schema written by the ingestion job. Vectors are
// stored as JSON array text, the same literal form pgvector prints.
const schema = `
CREATE TABLE IF NOT EXISTS dim_agents (
    agent_id TEXT PRIMARY KEY,
    name TEXT,
    email TEXT
);

CREATE TABLE IF NOT EXISTS dim_customers (
    customer_id TEXT PRIMARY KEY,
    name TEXT,
    email TEXT,
    phone TEXT
);

CREATE TABLE IF NOT EXISTS fact_calls (
    call_id TEXT PRIMARY KEY,
    agent_id TEXT REFERENCES dim_agents(agent_id),
    customer_id TEXT REFERENCES dim_customers(customer_id),
    date_id TEXT,
    duration_seconds INTEGER,
    call_timestamp TEXT,
    disposition TEXT,
    direction TEXT,
    transcript TEXT,
    summary TEXT,
    embedding TEXT,
    audio_url TEXT,
    issue_type TEXT,
    sentiment TEXT CHECK(sentiment IS NULL OR sentiment IN ('positive','negative')),
    sentiment_score REAL,
    resolved BOOLEAN,
    agent_politeness REAL,
    agent_professionalism REAL,
    process_adherence REAL
);

CREATE INDEX IF NOT EXISTS idx_fact_calls_timestamp ON fact_calls(call_timestamp);
CREATE INDEX IF NOT EXISTS idx_fact_calls_issue_type ON fact_calls(issue_type);
`

// Package duckdb persists export runs into a local DuckDB database, so
// inventories from repeated runs can be queried with plain SQL.
package duckdb

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Store manages the DuckDB database connection.
type Store struct {
	db           *sql.DB
	mu           sync.Mutex
	dbPath       string
	QueryTimeout time.Duration
}

// NewStore opens or creates a DuckDB database and applies pending schema
// migrations. If dbPath is empty, an in-memory database is used.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}

	if err := migrateSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	qt := 30 * time.Second
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	return &Store{
		db:           db,
		dbPath:       dbPath,
		QueryTimeout: qt,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct query access.
func (s *Store) DB() *sql.DB {
	return s.db
}

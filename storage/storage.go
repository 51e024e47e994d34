// Package storage implements the durable relayer state on SQLite: the
// transaction jobs table (with its signature dedup index) and the relayer
// accounts table rebuilt from configuration at startup.
package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/mystikonetwork/relayer/log"
)

// Storage wraps the SQLite database. Reads run concurrently; writes are
// serialized by the driver, which is enough to honor the per-id write
// contract since job ids are never reused.
type Storage struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at path and applies any pending
// migrations. An empty path opens an in-memory database, used by tests.
func New(path string) (*Storage, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", dsn, err)
	}
	// modernc.org/sqlite serializes writes per connection; a single
	// connection avoids SQLITE_BUSY between the HTTP handlers and the
	// consumers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Infow("storage initialized", "path", dsn)
	return s, nil
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}

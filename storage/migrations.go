package storage

import (
	"fmt"

	"github.com/mystikonetwork/relayer/log"
)

// migrations is the append-only, ordered list of schema migrations. Never
// edit an entry that has shipped; add a new one.
var migrations = []struct {
	version int
	stmt    string
}{
	{
		version: 1,
		stmt: `
CREATE TABLE IF NOT EXISTS transactions (
    id               TEXT PRIMARY KEY,
    chain_id         INTEGER NOT NULL,
    spend_type       TEXT    NOT NULL,
    bridge_type      TEXT    NOT NULL,
    status           TEXT    NOT NULL,
    pool_address     TEXT    NOT NULL,
    asset_symbol     TEXT    NOT NULL,
    asset_decimals   INTEGER NOT NULL,
    circuit_type     TEXT    NOT NULL,
    signature        TEXT    NOT NULL,
    payload          BLOB    NOT NULL,
    transaction_hash TEXT,
    error_message    TEXT,
    created_at       TIMESTAMP NOT NULL,
    updated_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_signature ON transactions (signature);
`,
	},
	{
		version: 2,
		stmt: `
CREATE TABLE IF NOT EXISTS accounts (
    chain_address             TEXT    NOT NULL,
    chain_id                  INTEGER NOT NULL,
    available                 INTEGER NOT NULL,
    supported_erc20_tokens    TEXT    NOT NULL,
    balance_alarm_threshold   REAL    NOT NULL,
    balance_check_interval_ms INTEGER NOT NULL,
    insufficient_balances     INTEGER NOT NULL,
    PRIMARY KEY (chain_id, chain_address)
);
`,
	},
}

// migrate applies the pending migrations in order inside a transaction each.
func (s *Storage) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
		log.Infow("applied storage migration", "version", m.version)
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial staging and ledger schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions_staging (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					import_id TEXT NOT NULL,
					hash TEXT NOT NULL,
					parsed_at DATETIME NOT NULL,
					data_json TEXT NOT NULL,
					conf_overall REAL NOT NULL DEFAULT 0,
					conf_merchant REAL NOT NULL DEFAULT 0,
					conf_amount REAL NOT NULL DEFAULT 0,
					conf_date REAL NOT NULL DEFAULT 0,
					needs_review INTEGER NOT NULL DEFAULT 0,
					possible_duplicate TEXT,
					suggestions TEXT,
					split_confidence REAL NOT NULL DEFAULT 0,
					UNIQUE(import_id, hash)
				)`,
				`CREATE INDEX idx_staging_user ON transactions_staging(user_id)`,
				`CREATE INDEX idx_staging_import ON transactions_staging(import_id)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					posted_at DATETIME NOT NULL,
					merchant_name TEXT NOT NULL,
					amount REAL NOT NULL,
					category TEXT,
					subcategory TEXT,
					import_id TEXT,
					document_id TEXT,
					hash TEXT,
					source TEXT NOT NULL DEFAULT 'import',
					confidence REAL NOT NULL DEFAULT 0,
					items_json TEXT,
					archived INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_user_date ON transactions(user_id, posted_at)`,
				`CREATE INDEX idx_transactions_merchant ON transactions(merchant_name)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add learning rules",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS learning_rules (
					id TEXT NOT NULL,
					user_id TEXT NOT NULL,
					merchant_pattern TEXT NOT NULL,
					suggested_category TEXT NOT NULL,
					confidence REAL NOT NULL,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL,
					PRIMARY KEY (user_id, id)
				)`,
				`CREATE INDEX idx_rules_user ON learning_rules(user_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add import lifecycle tracking",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS imports (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					document_id TEXT,
					status TEXT NOT NULL DEFAULT 'parsed',
					committed_count INTEGER NOT NULL DEFAULT 0,
					committed_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)
			`)
			return err
		},
	},
	{
		Version:     4,
		Description: "Add recurring flag to ledger rows",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE transactions ADD COLUMN recurring INTEGER NOT NULL DEFAULT 0`)
			return err
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		slog.Info("Applied migration", "version", m.Version, "description", m.Description)
	}

	return nil
}

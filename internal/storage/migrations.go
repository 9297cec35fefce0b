package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS products (
					url TEXT PRIMARY KEY,
					normalized_url TEXT NOT NULL,
					retailer TEXT NOT NULL,
					title TEXT,
					price REAL,
					product_code TEXT,
					image_urls TEXT,
					lifecycle_stage TEXT NOT NULL,
					last_updated DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_products_normalized_url ON products(normalized_url)`,
				`CREATE INDEX idx_products_retailer_code ON products(retailer, product_code)`,
				`CREATE INDEX idx_products_retailer_price ON products(retailer, price)`,

				`CREATE TABLE IF NOT EXISTS snapshots (
					retailer TEXT NOT NULL,
					url TEXT NOT NULL,
					title TEXT,
					price REAL,
					product_code TEXT,
					image_urls TEXT,
					captured_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (retailer, url)
				)`,

				`CREATE TABLE IF NOT EXISTS profiles (
					retailer TEXT PRIMARY KEY,
					sample_size INTEGER NOT NULL DEFAULT 0,
					url_stability_score REAL NOT NULL DEFAULT 1.0,
					image_sample_size INTEGER NOT NULL DEFAULT 0,
					image_consistency_score REAL NOT NULL DEFAULT 1.0,
					preferred_method TEXT NOT NULL,
					confidence_threshold REAL NOT NULL,
					method_counts TEXT,
					last_updated DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
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
		Description: "Batch completion markers",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS scan_batches (
					scan_id TEXT PRIMARY KEY,
					retailer TEXT NOT NULL,
					total INTEGER NOT NULL DEFAULT 0,
					existing_count INTEGER NOT NULL DEFAULT 0,
					new_count INTEGER NOT NULL DEFAULT 0,
					suspected_count INTEGER NOT NULL DEFAULT 0,
					invalid_count INTEGER NOT NULL DEFAULT 0,
					committed_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)
			`)
			return err
		},
	},
	{
		Version:     3,
		Description: "Audit log for existing resolutions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS audit_log (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					scan_id TEXT NOT NULL,
					retailer TEXT NOT NULL,
					url TEXT NOT NULL,
					matched_url TEXT NOT NULL,
					method TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_audit_log_scan ON audit_log(scan_id)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/fxlens/internal/common"
)

// ExpectedSchemaVersion is the schema version Migrate leaves behind.
const ExpectedSchemaVersion = 2

// Migration is one forward-only schema step.
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
			for _, stmt := range []string{
				`CREATE TABLE IF NOT EXISTS exchange_rates (
					base TEXT PRIMARY KEY,
					rate_date TEXT NOT NULL DEFAULT '',
					fetched_at INTEGER NOT NULL,
					rates TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS preferences (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			} {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Track preference updates",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TRIGGER IF NOT EXISTS update_preferences_updated_at
				AFTER UPDATE OF value ON preferences
				FOR EACH ROW
				BEGIN
					UPDATE preferences SET updated_at = CURRENT_TIMESTAMP WHERE key = NEW.key;
				END
			`); err != nil {
				return fmt.Errorf("creating updated_at trigger: %w", err)
			}
			return nil
		},
	},
}

// Migrate brings the schema up to ExpectedSchemaVersion. The version is
// tracked in PRAGMA user_version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		slog.Debug("Applied migration", "version", m.Version, "description", m.Description)
	}

	final, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("%w: schema version %d, want %d", common.ErrDatabaseCorrupted, final, ExpectedSchemaVersion)
	}
	return nil
}

func (s *SQLiteStorage) schemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

func (s *SQLiteStorage) apply(ctx context.Context, m Migration) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = m.Up(tx); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("migration %d: set version: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", m.Version, err)
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/fxlens/internal/common"
	"github.com/Veraticus/fxlens/internal/model"
)

// ErrNoRates is returned when no snapshot is cached for a base currency.
var ErrNoRates = fmt.Errorf("no cached rates: %w", common.ErrNotFound)

// SaveRates replaces the cached snapshot for its base currency.
func (s *SQLiteStorage) SaveRates(ctx context.Context, snap model.RateSnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	encoded, err := json.Marshal(snap.Rates)
	if err != nil {
		return fmt.Errorf("failed to encode rates: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exchange_rates (base, rate_date, fetched_at, rates)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(base) DO UPDATE SET
			rate_date = excluded.rate_date,
			fetched_at = excluded.fetched_at,
			rates = excluded.rates`,
		snap.Base, snap.Date, snap.FetchedAt.UnixMilli(), string(encoded))
	if err != nil {
		return fmt.Errorf("failed to save rates: %w", err)
	}
	return nil
}

// GetRates returns the cached snapshot for base.
func (s *SQLiteStorage) GetRates(ctx context.Context, base string) (model.RateSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return model.RateSnapshot{}, err
	}
	if err := validateString(base, "base"); err != nil {
		return model.RateSnapshot{}, err
	}

	var (
		snap      model.RateSnapshot
		fetchedAt int64
		encoded   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT base, rate_date, fetched_at, rates
		FROM exchange_rates
		WHERE base = ?`, base).Scan(&snap.Base, &snap.Date, &fetchedAt, &encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RateSnapshot{}, fmt.Errorf("%w for %s", ErrNoRates, base)
	}
	if err != nil {
		return model.RateSnapshot{}, fmt.Errorf("failed to load rates: %w", err)
	}

	if err := json.Unmarshal([]byte(encoded), &snap.Rates); err != nil {
		return model.RateSnapshot{}, fmt.Errorf("failed to decode rates: %w", err)
	}
	snap.FetchedAt = time.UnixMilli(fetchedAt)

	return snap, nil
}

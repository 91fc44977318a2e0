package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/fxlens/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrInvalidRates = errors.New("invalid rate snapshot")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSnapshot ensures a snapshot can be served from the cache later.
func validateSnapshot(s model.RateSnapshot) error {
	if strings.TrimSpace(s.Base) == "" {
		return fmt.Errorf("%w: missing base", ErrInvalidRates)
	}
	if len(s.Rates) == 0 {
		return fmt.Errorf("%w: empty rate table", ErrInvalidRates)
	}
	if s.FetchedAt.IsZero() {
		return fmt.Errorf("%w: missing fetch time", ErrInvalidRates)
	}
	for code, rate := range s.Rates {
		if rate <= 0 {
			return fmt.Errorf("%w: non-positive rate for %s", ErrInvalidRates, code)
		}
	}
	return nil
}

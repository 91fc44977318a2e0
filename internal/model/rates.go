package model

import "time"

// RateTable maps ISO codes to a scalar relative to a common base currency.
type RateTable map[string]float64

// CrossRate returns the multiplier converting an amount in from to an amount in to.
// It reports false when either side is missing or when both codes are equal.
func (t RateTable) CrossRate(from, to string) (float64, bool) {
	if from == to {
		return 0, false
	}
	fromRate, ok := t[from]
	if !ok || fromRate <= 0 {
		return 0, false
	}
	toRate, ok := t[to]
	if !ok || toRate <= 0 {
		return 0, false
	}
	return toRate / fromRate, true
}

// RateSnapshot is one rate table as returned by a rate provider.
type RateSnapshot struct {
	FetchedAt time.Time
	Rates     RateTable
	Base      string
	Date      string
}

// IsStale reports whether the snapshot is older than maxAge at now.
func (s RateSnapshot) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.FetchedAt) >= maxAge
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateTable_CrossRate(t *testing.T) {
	table := RateTable{"EUR": 1, "USD": 1.1, "JPY": 160}

	tests := []struct {
		name   string
		from   string
		to     string
		want   float64
		wantOK bool
	}{
		{"yen to dollar", "JPY", "USD", 1.1 / 160, true},
		{"dollar to yen", "USD", "JPY", 160 / 1.1, true},
		{"base to dollar", "EUR", "USD", 1.1, true},
		{"same currency", "USD", "USD", 0, false},
		{"missing source", "GBP", "USD", 0, false},
		{"missing target", "USD", "GBP", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.CrossRate(tt.from, tt.to)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestRateTable_CrossRateZeroEntry(t *testing.T) {
	table := RateTable{"USD": 0, "EUR": 1}
	_, ok := table.CrossRate("USD", "EUR")
	assert.False(t, ok)
}

func TestRateSnapshot_IsStale(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := RateSnapshot{FetchedAt: now.Add(-5 * time.Hour)}
	assert.True(t, snap.IsStale(now, 4*time.Hour))
	assert.False(t, snap.IsStale(now, 6*time.Hour))
}

func TestDetection_Overlaps(t *testing.T) {
	d := Detection{Start: 5, End: 10}
	assert.True(t, d.Overlaps(0, 6))
	assert.True(t, d.Overlaps(9, 12))
	assert.False(t, d.Overlaps(0, 5))
	assert.False(t, d.Overlaps(10, 12))
}

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences()
	assert.True(t, p.Enabled)
	assert.True(t, p.HideOriginal)
	assert.True(t, p.RandomCurrency)
	assert.False(t, p.Hidden)
	assert.Equal(t, "USD", p.TargetCurrency)
}

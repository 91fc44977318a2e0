package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDetector(t *testing.T) {
	tests := []struct {
		name     string
		errMsg   string
		patterns []Pattern
		wantErr  bool
	}{
		{
			name:     "default patterns",
			patterns: DefaultPatterns(),
		},
		{
			name: "invalid regex",
			patterns: []Pattern{
				{Name: "bad", Regex: `([invalid`, CurrencyGroup: 1, AmountGroup: 1},
			},
			wantErr: true,
			errMsg:  "failed to compile pattern",
		},
		{
			name: "group out of range",
			patterns: []Pattern{
				{Name: "short", Regex: `(\$)(\d+)`, CurrencyGroup: 1, AmountGroup: 3},
			},
			wantErr: true,
			errMsg:  "group index out of range",
		},
		{
			name:     "empty patterns",
			patterns: []Pattern{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDetector(tt.patterns)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, d)
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCode  string
		wantMatch string
		wantRaw   string
		want      float64
	}{
		{"symbol prefix", "Price: $100", "USD", "$100", "100", 100},
		{"code prefix", "USD 1,000.00", "USD", "USD 1,000.00", "1,000.00", 1000},
		{"code prefix no space", "total SEK250", "SEK", "SEK250", "250", 250},
		{"code suffix", "1,000.00 EUR", "EUR", "1,000.00 EUR", "1,000.00", 1000},
		{"european grouping", "€ 1.234,56", "EUR", "€ 1.234,56", "1.234,56", 1234.56},
		{"real prefix wins over dollar", "R$ 50,00", "BRL", "R$ 50,00", "50,00", 50},
		{"yen thousands", "¥1,000", "JPY", "¥1,000", "1,000", 1000},
		{"fullwidth yen", "￥4,920", "JPY", "￥4,920", "4,920", 4920},
		{"yen suffix", "6,980円", "JPY", "6,980円", "6,980", 6980},
		{"yen suffix before kana", "100円です", "JPY", "100円", "100", 100},
		{"yuan suffix", "500元", "CNY", "500元", "500", 500},
		{"krona suffix", "199 kr", "SEK", "199 kr", "199", 199},
		{"zloty suffix", "49,99 zł", "PLN", "49,99 zł", "49,99", 49.99},
		{"rupee", "₹2,499", "INR", "₹2,499", "2,499", 2499},
		{"won", "₩15,000", "KRW", "₩15,000", "15,000", 15000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.text)
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantCode, got[0].CurrencyCode)
			assert.Equal(t, tt.wantMatch, got[0].MatchedText)
			assert.Equal(t, tt.wantRaw, got[0].RawAmount)
			assert.InDelta(t, tt.want, got[0].Amount, 1e-9)
			assert.Equal(t, tt.text[got[0].Start:got[0].End], got[0].MatchedText)
		})
	}
}

func TestDetect_Offsets(t *testing.T) {
	got := Detect("Price: $100")
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].Start)
	assert.Equal(t, 11, got[0].End)
}

func TestDetect_MultipleSortedByStart(t *testing.T) {
	got := Detect("10 EUR or $5 or 300円")
	require.Len(t, got, 3)
	assert.Equal(t, "EUR", got[0].CurrencyCode)
	assert.Equal(t, "USD", got[1].CurrencyCode)
	assert.Equal(t, "JPY", got[2].CurrencyCode)
}

func TestDetect_NoMatches(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"plain text", "no prices here"},
		{"bare symbol", "$"},
		{"zero amount", "$0"},
		{"krona word", "199 kronor"},
		{"code inside word", "USDA 100"},
		{"version number", "version 2.3.1 released"},
		{"css length", "width: 100px"},
		{"date", "03/04/2024"},
		{"price glued to date", "Paid $03/04/2024"},
		{"price near version", "Update to v2.3.1 for $5"},
		{"price near css length", "$5 width: 100px"},
		{"price after dash date", "2024-$5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Detect(tt.text))
		})
	}
}

func TestDetect_SortedAndDisjoint(t *testing.T) {
	texts := []string{
		"USD 5 USD 6 $7 €8 9円 10 kr",
		"R$ 1.234,56 e US$ 99",
		"£30 + ¥40 + ₹50 + ₩60 + 70 CHF + CHF 80",
		"Sale: 1 000 kr, was 1 200 kr",
		"€1€2€3",
	}

	for _, text := range texts {
		got := Detect(text)
		assert.NotEmpty(t, got, text)
		for i := 1; i < len(got); i++ {
			assert.LessOrEqual(t, got[i-1].Start, got[i].Start, text)
			assert.LessOrEqual(t, got[i-1].End, got[i].Start, "overlap in %q", text)
		}
		for _, d := range got {
			assert.Less(t, d.Start, d.End)
			assert.LessOrEqual(t, d.End, len(text))
			assert.Greater(t, d.Amount, 0.0)
		}
	}
}

func TestIsLikelyFalsePositive(t *testing.T) {
	text := "build v1.2.3 costs $5"
	start := len("build v1.2.3 costs ")
	assert.True(t, IsLikelyFalsePositive(text, start, len(text)))

	text = "Only $5 today"
	assert.False(t, IsLikelyFalsePositive(text, 5, 7))

	text = "1/$5"
	assert.True(t, IsLikelyFalsePositive(text, 2, 4))

	text = "$5-1"
	assert.True(t, IsLikelyFalsePositive(text, 0, 2))
}

package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupported(t *testing.T) {
	codes := Codes()
	assert.Len(t, codes, 31)
	assert.Equal(t, "USD", codes[0])
	assert.True(t, IsSupported("BGN"))
	assert.False(t, IsSupported("XYZ"))
	assert.Equal(t, "Japanese Yen", Name("JPY"))
	assert.Equal(t, "XYZ", Name("XYZ"))
}

func TestDecimals(t *testing.T) {
	for _, code := range []string{"JPY", "KRW", "ISK", "HUF"} {
		assert.True(t, IsZeroDecimal(code), code)
		assert.Equal(t, 0, Decimals(code), code)
	}
	assert.Equal(t, 2, Decimals("USD"))
	assert.Equal(t, 2, Decimals("EUR"))
}

func TestLookupSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"$", "USD"},
		{"€", "EUR"},
		{"£", "GBP"},
		{"¥", "JPY"},
		{"￥", "JPY"},
		{"円", "JPY"},
		{"元", "CNY"},
		{"R$", "BRL"},
		{"kr", "SEK"},
		{"zł", "PLN"},
		{"Kč", "CZK"},
		{"Ft", "HUF"},
		{"Fr", "CHF"},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			code, err := LookupSymbol(tt.symbol)
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}

	_, err := LookupSymbol("₿")
	assert.ErrorIs(t, err, ErrUnknownIndicator)
}

func TestQuickTest(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Price: $100", true},
		{"USD 100", true},
		{"100 USD", true},
		{"SEK250", true},
		{"1000円", true},
		{"R$ 50", true},
		{"399 kr", true},
		{"no prices here", false},
		{"version 2.3.1", false},
		{"USDA approved", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, QuickTest(tt.text))
		})
	}
}

func TestIsSymbolOnly(t *testing.T) {
	for _, s := range []string{"$", "€", "円", "R$", "kr", "zł"} {
		assert.True(t, IsSymbolOnly(s), s)
	}
	for _, s := range []string{"$5", "円 ", "USD", "krona", ""} {
		assert.False(t, IsSymbolOnly(s), s)
	}
}

func TestHasAmountAndIndicator(t *testing.T) {
	assert.True(t, HasAmountAndIndicator("6,980円"))
	assert.True(t, HasAmountAndIndicator("$ 12"))
	assert.True(t, HasAmountAndIndicator("12 kr"))
	assert.False(t, HasAmountAndIndicator("円"))
	assert.False(t, HasAmountAndIndicator("12 items"))
}

func TestGuessFromText(t *testing.T) {
	code, ok := GuessFromText("R$ 19,90")
	require.True(t, ok)
	assert.Equal(t, "BRL", code)

	code, ok = GuessFromText("only € here")
	require.True(t, ok)
	assert.Equal(t, "EUR", code)

	_, ok = GuessFromText("nothing")
	assert.False(t, ok)
}

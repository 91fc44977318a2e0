package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/fxlens/internal/common"
)

func testRetry() common.RetryOptions {
	return common.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestFrankfurterClient_FetchLatest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "EUR", r.URL.Query().Get("from"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"amount":1.0,"base":"EUR","date":"2024-05-17","rates":{"USD":1.0866,"JPY":169.3}}`))
	}))
	defer server.Close()

	client := NewFrankfurterClient(ClientConfig{BaseURL: server.URL + "/", Retry: testRetry()})
	fixed := time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return fixed }

	snap, err := client.FetchLatest(context.Background(), "EUR")
	require.NoError(t, err)

	assert.Equal(t, "EUR", snap.Base)
	assert.Equal(t, "2024-05-17", snap.Date)
	assert.Equal(t, fixed, snap.FetchedAt)
	assert.InDelta(t, 1.0, snap.Rates["EUR"], 1e-9)
	assert.InDelta(t, 1.0866, snap.Rates["USD"], 1e-9)
	assert.InDelta(t, 169.3, snap.Rates["JPY"], 1e-9)
}

func TestFrankfurterClient_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantCalls     int32
		wantMaxRetry  bool
		errorContains string
	}{
		{
			name:          "client error is not retried",
			status:        http.StatusNotFound,
			body:          `{"message":"not found"}`,
			wantCalls:     1,
			errorContains: "HTTP 404",
		},
		{
			name:         "server error is retried",
			status:       http.StatusBadGateway,
			body:         "bad gateway",
			wantCalls:    3,
			wantMaxRetry: true,
		},
		{
			name:         "rate limit is retried",
			status:       http.StatusTooManyRequests,
			wantCalls:    3,
			wantMaxRetry: true,
		},
		{
			name:          "empty table",
			status:        http.StatusOK,
			body:          `{"amount":1.0,"base":"EUR","date":"2024-05-17","rates":{}}`,
			wantCalls:     1,
			errorContains: "has no rates",
		},
		{
			name:          "malformed body",
			status:        http.StatusOK,
			body:          `{"rates":`,
			wantCalls:     1,
			errorContains: "parsing rates response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewFrankfurterClient(ClientConfig{BaseURL: server.URL, Retry: testRetry()})
			_, err := client.FetchLatest(context.Background(), "EUR")

			require.Error(t, err)
			assert.Equal(t, tt.wantCalls, calls.Load())
			if tt.wantMaxRetry {
				assert.ErrorIs(t, err, common.ErrMaxRetries)
			}
			if tt.errorContains != "" {
				assert.Contains(t, err.Error(), tt.errorContains)
			}
		})
	}
}

func TestFrankfurterClient_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewFrankfurterClient(ClientConfig{BaseURL: server.URL, RequestsPerSecond: 1, Retry: testRetry()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchLatest(ctx, "EUR")
	assert.Error(t, err)
}

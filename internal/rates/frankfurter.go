// Package rates fetches and caches exchange rate tables.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Veraticus/fxlens/internal/common"
	"github.com/Veraticus/fxlens/internal/model"
)

// DefaultBaseURL is the public Frankfurter API.
const DefaultBaseURL = "https://api.frankfurter.app"

// FrankfurterClient fetches the latest rates from a Frankfurter API.
type FrankfurterClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
	baseURL    string
	retry      common.RetryOptions
}

// ClientConfig configures a FrankfurterClient.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             common.RetryOptions
}

// NewFrankfurterClient creates a client for the API at cfg.BaseURL.
func NewFrankfurterClient(cfg ClientConfig) *FrankfurterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &FrankfurterClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		retry:      cfg.Retry,
		now:        time.Now,
	}
}

type latestResponse struct {
	Rates  map[string]float64 `json:"rates"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Amount float64            `json:"amount"`
}

// FetchLatest returns the latest table relative to base. The base currency
// itself is included with rate 1.
func (c *FrankfurterClient) FetchLatest(ctx context.Context, base string) (model.RateSnapshot, error) {
	endpoint := fmt.Sprintf("%s/latest?from=%s", c.baseURL, url.QueryEscape(base))

	var body []byte
	err := common.WithRetry(ctx, func() error {
		var fetchErr error
		body, fetchErr = c.fetch(ctx, endpoint)
		return fetchErr
	}, c.retry)
	if err != nil {
		return model.RateSnapshot{}, fmt.Errorf("fetching rates for %s: %w", base, err)
	}

	var parsed latestResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.RateSnapshot{}, fmt.Errorf("parsing rates response: %w", err)
	}
	if len(parsed.Rates) == 0 {
		return model.RateSnapshot{}, fmt.Errorf("rates response for %s has no rates", base)
	}
	if parsed.Base == "" {
		parsed.Base = base
	}

	table := make(model.RateTable, len(parsed.Rates)+1)
	for code, r := range parsed.Rates {
		table[code] = r
	}
	table[parsed.Base] = 1

	return model.RateSnapshot{
		Base:      parsed.Base,
		Date:      parsed.Date,
		FetchedAt: c.now(),
		Rates:     table,
	}, nil
}

func (c *FrankfurterClient) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, common.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, common.Permanent(fmt.Errorf("creating rates request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading rates response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: rates provider HTTP %d", common.ErrRateLimit, resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("rates provider HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	default:
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("rates provider HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			Retryable: false,
		}
	}
}

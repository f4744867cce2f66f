package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CurrencyLookup resolves a country name to its currency code through
// the restcountries API. Lookups are best-effort: any failure falls
// back to the configured default so registration never aborts on a
// flaky upstream.
type CurrencyLookup struct {
	baseURL  string
	fallback string
	client   *http.Client
	logger   *zap.Logger
}

// NewCurrencyLookup creates a new currency lookup client
func NewCurrencyLookup(baseURL, fallback string, timeout time.Duration, logger *zap.Logger) *CurrencyLookup {
	return &CurrencyLookup{
		baseURL:  strings.TrimRight(baseURL, "/"),
		fallback: fallback,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Lookup returns the currency code for a country, or the fallback
func (c *CurrencyLookup) Lookup(ctx context.Context, country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		return c.fallback
	}

	code, err := c.lookup(ctx, country)
	if err != nil {
		c.logger.Warn("Currency lookup failed, using fallback",
			zap.String("country", country),
			zap.String("fallback", c.fallback),
			zap.Error(err))
		return c.fallback
	}
	return code
}

func (c *CurrencyLookup) lookup(ctx context.Context, country string) (string, error) {
	endpoint := fmt.Sprintf("%s/name/%s?fields=currencies", c.baseURL, url.PathEscape(country))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var countries []struct {
		Currencies map[string]json.RawMessage `json:"currencies"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&countries); err != nil {
		return "", err
	}

	for _, entry := range countries {
		for code := range entry.Currencies {
			if len(code) == 3 {
				return strings.ToUpper(code), nil
			}
		}
	}
	return "", fmt.Errorf("no currency found for %q", country)
}

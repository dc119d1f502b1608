package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// YahooRateFetcher fetches pairwise FX rates from the Yahoo Finance chart
// API using the "BASEQUOTE=X" symbol convention (e.g. USDVND=X).
type YahooRateFetcher struct {
	httpClient *http.Client
}

// NewYahooRateFetcher creates a fetcher with the given request timeout.
func NewYahooRateFetcher(timeout time.Duration) *YahooRateFetcher {
	return &YahooRateFetcher{httpClient: &http.Client{Timeout: timeout}}
}

type yahooFxResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// FetchRate returns how many quote units one base unit buys.
func (f *YahooRateFetcher) FetchRate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	pair := base + quote + "=X"
	url := fmt.Sprintf("https://query2.finance.yahoo.com/v8/finance/chart/%s?interval=1h&range=1d", pair)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("User-Agent", "wealthjourney-backend/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to call Yahoo fx API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("yahoo fx API returned non-OK status %d", resp.StatusCode)
	}

	var data yahooFxResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode Yahoo fx response: %w", err)
	}
	if data.Chart.Error != nil {
		return decimal.Zero, fmt.Errorf("yahoo fx API returned an error: %v", data.Chart.Error)
	}
	if len(data.Chart.Result) == 0 {
		return decimal.Zero, fmt.Errorf("no fx rate found for %s", pair)
	}

	rate := data.Chart.Result[0].Meta.RegularMarketPrice
	if rate <= 0 {
		return decimal.Zero, fmt.Errorf("invalid fx rate %f for %s", rate, pair)
	}
	return decimal.NewFromFloat(rate), nil
}

// Package exchange provides cached pairwise currency exchange rates and a
// pure conversion function. Rate retrieval (I/O) and conversion arithmetic
// are strictly separated so the arithmetic can be tested without network
// mocking.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/wealthjourney/backend/src/logger"
	"github.com/wealthjourney/backend/src/units"
)

// ErrRateUnavailable is reported when no rate is available at all: first
// load, nothing cached, and the fetch failed. Callers must disable the
// cross-currency feature rather than assume a 1:1 rate.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// Rate is a conversion rate between two currencies. IsStale signals that the
// rate is older than the freshness window and a refresh failed; it is a cue
// to render an uncertainty indicator, not an error.
type Rate struct {
	Rate      decimal.Decimal `json:"rate"`
	IsStale   bool            `json:"isStale"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// RateFetcher retrieves a current rate from an external source. It returns
// how many quote units one base unit buys.
type RateFetcher interface {
	FetchRate(ctx context.Context, base, quote string) (decimal.Decimal, error)
}

type cachedRate struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// Adapter caches pairwise exchange rates with a freshness window. The cache
// and clock are owned by the adapter instance, not package globals, so tests
// can control staleness directly.
type Adapter struct {
	fetcher  RateFetcher
	rates    *cache.Cache
	freshFor time.Duration
	now      func() time.Time
}

// NewAdapter creates an Adapter with the given freshness window.
func NewAdapter(fetcher RateFetcher, freshFor time.Duration) *Adapter {
	return &Adapter{
		fetcher: fetcher,
		// Entries never expire on their own; staleness is judged against
		// fetchedAt so a stale rate stays available as a fallback.
		rates:    cache.New(cache.NoExpiration, 0),
		freshFor: freshFor,
		now:      time.Now,
	}
}

// WithClock replaces the adapter's clock. Intended for tests.
func (a *Adapter) WithClock(now func() time.Time) *Adapter {
	a.now = now
	return a
}

// GetRate returns the conversion rate from base to quote. Identical
// currencies short-circuit to an exact rate of 1 with no cache or network
// lookup. A cached rate older than the freshness window triggers a refresh;
// if the refresh fails, the last-known rate is returned marked stale.
func (a *Adapter) GetRate(ctx context.Context, base, quote string) (Rate, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))

	if base == quote {
		return Rate{Rate: decimal.NewFromInt(1), IsStale: false, FetchedAt: a.now()}, nil
	}

	key := base + "/" + quote
	var lastKnown *cachedRate
	if entry, found := a.rates.Get(key); found {
		cached := entry.(cachedRate)
		if a.now().Sub(cached.fetchedAt) <= a.freshFor {
			return Rate{Rate: cached.rate, FetchedAt: cached.fetchedAt}, nil
		}
		lastKnown = &cached
	}

	fetched, err := a.fetcher.FetchRate(ctx, base, quote)
	if err != nil {
		if lastKnown != nil {
			logger.L.Warn("Rate refresh failed, serving stale rate",
				"pair", key, "fetchedAt", lastKnown.fetchedAt, "error", err)
			return Rate{Rate: lastKnown.rate, IsStale: true, FetchedAt: lastKnown.fetchedAt}, nil
		}
		return Rate{}, fmt.Errorf("%w: %s: %v", ErrRateUnavailable, key, err)
	}

	entry := cachedRate{rate: fetched, fetchedAt: a.now()}
	a.rates.Set(key, entry, cache.NoExpiration)
	return Rate{Rate: entry.rate, FetchedAt: entry.fetchedAt}, nil
}

// ConvertAmount converts a smallest-unit integer amount from one currency to
// another at the given rate, rounding half away from zero at the target
// currency's smallest-unit boundary. It never fetches rates.
func ConvertAmount(amount int64, rate decimal.Decimal, fromCurrency, toCurrency string) int64 {
	if fromCurrency == toCurrency && rate.Equal(decimal.NewFromInt(1)) {
		return amount
	}
	major := decimal.NewFromInt(amount).Shift(-units.MinorUnitFraction(fromCurrency))
	converted := major.Mul(rate)
	return converted.Shift(units.MinorUnitFraction(toCurrency)).Round(0).IntPart()
}

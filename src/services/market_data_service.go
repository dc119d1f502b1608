package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/wealthjourney/backend/src/database"
	"github.com/wealthjourney/backend/src/logger"
	"github.com/wealthjourney/backend/src/model"
	"github.com/wealthjourney/backend/src/models"
	"github.com/wealthjourney/backend/src/units"
	"golang.org/x/net/publicsuffix"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

type marketDataServiceImpl struct {
	httpClient    http.Client
	isInitialized bool
	crumb         string
	mu            sync.Mutex
}

func NewMarketDataService(timeout time.Duration) PriceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	s := &marketDataServiceImpl{
		httpClient: http.Client{Jar: jar, Timeout: timeout},
	}

	go s.initializeYahooSession()

	return s
}

func (s *marketDataServiceImpl) initializeYahooSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isInitialized && s.crumb != "" {
		return
	}

	logger.L.Info("Initializing Yahoo Finance session and fetching Crumb...")

	req1, _ := http.NewRequest("GET", "https://fc.yahoo.com", nil)
	req1.Header.Set("User-Agent", userAgent)
	if resp, err := s.httpClient.Do(req1); err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	req2, _ := http.NewRequest("GET", "https://query1.finance.yahoo.com/v1/test/getcrumb", nil)
	req2.Header.Set("User-Agent", userAgent)
	resp, err := s.httpClient.Do(req2)
	if err != nil {
		logger.L.Error("Failed to fetch crumb", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		s.crumb = string(bodyBytes)
		s.isInitialized = true
		logger.L.Info("Yahoo session initialized successfully")
	} else {
		logger.L.Warn("Failed to fetch crumb", "status", resp.Status)
	}
}

func (s *marketDataServiceImpl) ensureSession() {
	s.mu.Lock()
	needsInit := !s.isInitialized || s.crumb == ""
	s.mu.Unlock()

	if needsInit {
		s.initializeYahooSession()
	}
}

// GetCurrentPrice returns today's price for a symbol, serving the database
// cache when a price for today is already stored.
func (s *marketDataServiceImpl) GetCurrentPrice(ctx context.Context, symbol string) (PriceInfo, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	todayStr := time.Now().Format("2006-01-02")

	if cached, found, err := model.GetPriceBySymbolAndDate(database.DB, symbol, todayStr); err != nil {
		logger.L.Error("Failed to read daily price cache", "symbol", symbol, "error", err)
	} else if found {
		return PriceInfo{Price: cached.Price, Currency: cached.Currency, IsCached: true}, nil
	}

	price, currency, err := s.fetchPrice(ctx, symbol)
	if err != nil {
		return PriceInfo{}, err
	}

	model.InsertOrUpdatePrice(database.DB, model.DailyPrice{
		Symbol:   symbol,
		Date:     todayStr,
		Price:    price,
		Currency: currency,
	})
	return PriceInfo{Price: price, Currency: currency, IsCached: false}, nil
}

func (s *marketDataServiceImpl) fetchPrice(ctx context.Context, symbol string) (float64, string, error) {
	s.ensureSession()

	quoteURL := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?crumb=%s", symbol, s.crumb)
	req, err := http.NewRequestWithContext(ctx, "GET", quoteURL, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("failed to call Yahoo chart API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 401 {
		s.mu.Lock()
		s.isInitialized = false
		s.mu.Unlock()
		return 0, "", fmt.Errorf("status 401 (Unauthorized) - Crumb invalid")
	}
	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("yahoo chart API returned non-OK status %d", resp.StatusCode)
	}

	var chartData yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chartData); err != nil {
		return 0, "", fmt.Errorf("failed to decode Yahoo chart response: %w", err)
	}
	if chartData.Chart.Error != nil {
		return 0, "", fmt.Errorf("yahoo chart API returned an error: %v", chartData.Chart.Error)
	}
	if len(chartData.Chart.Result) == 0 || chartData.Chart.Result[0].Meta.RegularMarketPrice == 0 {
		return 0, "", fmt.Errorf("no price data found for %s", symbol)
	}
	meta := chartData.Chart.Result[0].Meta
	return meta.RegularMarketPrice, meta.Currency, nil
}

// RefreshHeldPrices fetches a fresh price for every symbol that has a market
// feed and writes it back onto the holdings. Custom assets have no feed and
// keep their manually set price.
func (s *marketDataServiceImpl) RefreshHeldPrices(ctx context.Context) error {
	rows, err := database.DB.Query(`
		SELECT id, symbol, asset_type, currency FROM investments
		WHERE asset_type != ? ORDER BY symbol ASC`, string(models.AssetTypeOther))
	if err != nil {
		return fmt.Errorf("failed to list held symbols: %w", err)
	}

	type held struct {
		id       int64
		symbol   string
		currency string
	}
	var holdings []held
	for rows.Next() {
		var h held
		var assetType string
		if err := rows.Scan(&h.id, &h.symbol, &assetType, &h.currency); err != nil {
			rows.Close()
			return err
		}
		holdings = append(holdings, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	symbols := lo.Uniq(lo.Map(holdings, func(h held, _ int) string { return h.symbol }))
	logger.L.Info("Refreshing held prices", "symbols", len(symbols))

	// Paced to stay under the feed's rate limits, but cancellable so a
	// shutdown does not wait out the whole symbol list.
	pacing := time.NewTicker(250 * time.Millisecond)
	defer pacing.Stop()

	prices := make(map[string]PriceInfo)
	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pacing.C:
		}
		info, err := s.GetCurrentPrice(ctx, symbol)
		if err != nil {
			logger.L.Warn("Could not refresh price for symbol", "symbol", symbol, "error", err)
			continue
		}
		prices[symbol] = info
	}

	for _, h := range holdings {
		info, ok := prices[h.symbol]
		if !ok {
			continue
		}
		// The feed quotes in the listing currency; only holdings in that
		// currency are updated directly. Cross-currency holdings keep their
		// last price rather than silently assuming a 1:1 rate.
		if !strings.EqualFold(info.Currency, h.currency) {
			logger.L.Warn("Feed currency differs from holding currency, skipping update",
				"symbol", h.symbol, "feed", info.Currency, "holding", h.currency)
			continue
		}
		stored, err := units.AmountToSmallestUnit(decimal.NewFromFloat(info.Price), h.currency)
		if err != nil {
			logger.L.Warn("Could not convert refreshed price", "symbol", h.symbol, "error", err)
			continue
		}
		if _, err := database.DB.Exec(`UPDATE investments SET current_price = ?, updated_at = ? WHERE id = ?`,
			stored, time.Now().UTC(), h.id); err != nil {
			logger.L.Error("Failed to update holding price", "symbol", h.symbol, "error", err)
		}
	}
	return nil
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/wealthjourney/backend/src/config"
	"github.com/wealthjourney/backend/src/exchange"
	"github.com/wealthjourney/backend/src/logger"
	"github.com/wealthjourney/backend/src/services"
	"github.com/wealthjourney/backend/src/utils"
)

type PortfolioHandler struct {
	portfolio services.PortfolioService
	rates     *exchange.Adapter
	prices    services.PriceService
}

func NewPortfolioHandler(portfolio services.PortfolioService, rates *exchange.Adapter, prices services.PriceService) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio, rates: rates, prices: prices}
}

// GetSummary returns the aggregate portfolio snapshot in the requested
// display currency (defaults to the configured one).
func (h *PortfolioHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		currency = config.Cfg.DefaultDisplayCurrency
	}

	snapshot, err := h.portfolio.GetSummary(r.Context(), currency)
	if err != nil {
		if errors.Is(err, exchange.ErrRateUnavailable) {
			utils.SendJSONError(w, r, "Exchange rate unavailable: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		logger.L.Error("Failed to build portfolio summary", "currency", currency, "error", err)
		utils.SendJSONError(w, r, "Failed to build portfolio summary", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, r, http.StatusOK, "", snapshot)
}

// GetExchangeRate returns the cached-or-refreshed rate for a currency pair.
func (h *PortfolioHandler) GetExchangeRate(w http.ResponseWriter, r *http.Request) {
	base := r.URL.Query().Get("base")
	quote := r.URL.Query().Get("quote")
	if base == "" || quote == "" {
		utils.SendJSONError(w, r, "base and quote query parameters are required", http.StatusBadRequest)
		return
	}

	rate, err := h.rates.GetRate(r.Context(), base, quote)
	if err != nil {
		if errors.Is(err, exchange.ErrRateUnavailable) {
			utils.SendJSONError(w, r, err.Error(), http.StatusServiceUnavailable)
			return
		}
		logger.L.Error("Failed to get exchange rate", "base", base, "quote", quote, "error", err)
		utils.SendJSONError(w, r, "Failed to get exchange rate", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, r, http.StatusOK, "", rate)
}

// GetMarketPrice returns the current price for a symbol, served from the
// daily cache when available.
func (h *PortfolioHandler) GetMarketPrice(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		utils.SendJSONError(w, r, "symbol query parameter is required", http.StatusBadRequest)
		return
	}

	info, err := h.prices.GetCurrentPrice(r.Context(), symbol)
	if err != nil {
		logger.L.Error("Failed to fetch market price", "symbol", symbol, "error", err)
		utils.SendJSONError(w, r, "Failed to fetch market price", http.StatusServiceUnavailable)
		return
	}
	utils.SendJSON(w, r, http.StatusOK, "", info)
}

package services

import (
	"context"
	"errors"

	"github.com/wealthjourney/backend/src/models"
	"github.com/wealthjourney/backend/src/valuation"
)

// Common service errors.
var (
	ErrNotFound             = errors.New("record not found")
	ErrInsufficientQuantity = errors.New("sell quantity exceeds held quantity")
	ErrInvalidSplitRatio    = errors.New("split ratio must be positive")
	ErrCurrencyMismatch     = models.ErrCurrencyMismatch
)

// InvestmentService owns the holding lifecycle: creation (first buy),
// transaction recording with quantity/cost-basis maintenance, and deletion
// with full recomputation from the surviving transaction history.
type InvestmentService interface {
	CreateInvestment(ctx context.Context, inv models.Investment) (models.Investment, error)
	GetInvestment(ctx context.Context, id int64) (models.Investment, error)
	ListInvestments(ctx context.Context, walletID int64) ([]models.Investment, error)
	UpdateInvestment(ctx context.Context, inv models.Investment) error
	DeleteInvestment(ctx context.Context, id int64) error

	RecordTransaction(ctx context.Context, tx models.InvestmentTransaction) (models.InvestmentTransaction, error)
	ListTransactions(ctx context.Context, investmentID int64) ([]models.InvestmentTransaction, error)
	DeleteTransaction(ctx context.Context, txID int64) error
}

// PortfolioService assembles the aggregate valuation snapshot.
type PortfolioService interface {
	GetSummary(ctx context.Context, displayCurrency string) (valuation.PortfolioSnapshot, error)
}

// PriceInfo is the result of a market price lookup.
type PriceInfo struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	IsCached bool    `json:"isCached"`
}

// PriceService fetches current market prices, with a daily database cache.
type PriceService interface {
	GetCurrentPrice(ctx context.Context, symbol string) (PriceInfo, error)
	// RefreshHeldPrices re-fetches prices for every symbol currently held
	// and updates the holdings' current_price columns. Run daily by cron.
	RefreshHeldPrices(ctx context.Context) error
}

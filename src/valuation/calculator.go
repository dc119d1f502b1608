// Package valuation computes consistent P&L snapshots for holdings. All
// per-holding arithmetic stays in the holding's native currency; conversion
// into a display currency happens only at the aggregation boundary, through
// the exchange adapter.
package valuation

import (
	"context"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/wealthjourney/backend/src/exchange"
	"github.com/wealthjourney/backend/src/models"
	"github.com/wealthjourney/backend/src/units"
)

// Color classes the dashboard maps to its success/danger/neutral styles.
const (
	ColorSuccess = "success"
	ColorDanger  = "danger"
	ColorNeutral = "neutral"
)

// IsCustomInvestment reports whether the holding has no market price source:
// either a user-defined OTHER asset, or a holding whose current price is the
// zero sentinel for "unset". Used to suppress misleading P&L percentages.
func IsCustomInvestment(inv models.Investment) bool {
	return inv.AssetType == models.AssetTypeOther || inv.CurrentPrice == 0
}

// MarketValue returns currentPrice * quantity in the holding's currency.
func MarketValue(inv models.Investment) models.MonetaryAmount {
	qty := units.StorageToQuantity(inv.Quantity, inv.AssetType)
	amount := decimal.NewFromInt(inv.CurrentPrice).Mul(qty).Round(0).IntPart()
	return models.NewMonetaryAmount(amount, inv.Currency)
}

// CostBasis returns averageCost * quantity in the holding's currency.
func CostBasis(inv models.Investment) models.MonetaryAmount {
	qty := units.StorageToQuantity(inv.Quantity, inv.AssetType)
	amount := decimal.NewFromInt(inv.AvgCost).Mul(qty).Round(0).IntPart()
	return models.NewMonetaryAmount(amount, inv.Currency)
}

// UnrealizedPnl computes (currentPrice - averageCost) * quantity in the
// holding's native currency. Currencies are never mixed mid-calculation; any
// cross-currency comparison happens after this result is finalized.
func UnrealizedPnl(inv models.Investment) (models.MonetaryAmount, error) {
	diff, err := inv.MarketPrice().Sub(inv.AverageCost())
	if err != nil {
		return models.MonetaryAmount{}, err
	}
	qty := units.StorageToQuantity(inv.Quantity, inv.AssetType)
	amount := decimal.NewFromInt(diff.Amount).Mul(qty).Round(0).IntPart()
	return models.NewMonetaryAmount(amount, diff.Currency), nil
}

// UnrealizedPnlPercent returns the unrealized P&L as a percentage of cost
// basis, or nil when the cost basis is zero or the price is unset. Rendered
// as "N/A"; never NaN or Infinity.
func UnrealizedPnlPercent(inv models.Investment) *float64 {
	if inv.CurrentPrice == 0 {
		return nil
	}
	basis := CostBasis(inv)
	if basis.IsZero() {
		return nil
	}
	pnl, err := UnrealizedPnl(inv)
	if err != nil {
		return nil
	}
	pct, _ := decimal.NewFromInt(pnl.Amount).
		Div(decimal.NewFromInt(basis.Amount)).
		Mul(decimal.NewFromInt(100)).
		Float64()
	return &pct
}

// PnlPresentation is the display form of an unrealized P&L figure.
type PnlPresentation struct {
	Text       string `json:"text"`
	ColorClass string `json:"color_class"`
}

// FormatUnrealizedPnl renders a holding's unrealized P&L with its color
// convention: non-negative green, negative red. Custom investments without a
// set price always get the neutral styling, since their stored zero price is
// a sentinel for "unset", not a real valuation.
func FormatUnrealizedPnl(inv models.Investment) PnlPresentation {
	if IsCustomInvestment(inv) && inv.CurrentPrice == 0 {
		return PnlPresentation{Text: "N/A (Price not set)", ColorClass: ColorNeutral}
	}
	pnl, err := UnrealizedPnl(inv)
	if err != nil {
		return PnlPresentation{Text: "N/A", ColorClass: ColorNeutral}
	}
	text := money.New(pnl.Amount, pnl.Currency).Display()
	if !pnl.IsNegative() {
		text = "+" + text
		return PnlPresentation{Text: text, ColorClass: ColorSuccess}
	}
	return PnlPresentation{Text: text, ColorClass: ColorDanger}
}

// PortfolioSnapshot is the derived, non-persisted aggregate over a set of
// holdings, expressed in a single display currency.
type PortfolioSnapshot struct {
	Currency             string                `json:"currency"`
	TotalValue           models.MonetaryAmount `json:"total_value"`
	TotalCostBasis       models.MonetaryAmount `json:"total_cost_basis"`
	UnrealizedPnl        models.MonetaryAmount `json:"unrealized_pnl"`
	UnrealizedPnlPercent *float64              `json:"unrealized_pnl_percent"`
	RealizedPnl          models.MonetaryAmount `json:"realized_pnl"`
	TotalDividends       models.MonetaryAmount `json:"total_dividends"`
	// UsedStaleRates signals that at least one conversion used a rate past
	// its freshness window; the dashboard renders an uncertainty indicator.
	UsedStaleRates bool `json:"used_stale_rates"`
}

// RateSource supplies conversion rates for the aggregation step.
type RateSource interface {
	GetRate(ctx context.Context, base, quote string) (exchange.Rate, error)
}

// BuildSnapshot aggregates holdings and their transaction history into a
// snapshot in displayCurrency. Each holding's figures are finalized in its
// native currency and converted before summation; raw smallest-unit integers
// are never summed across currencies. Returns ErrRateUnavailable (wrapped)
// when a needed rate cannot be obtained at all.
func BuildSnapshot(ctx context.Context, holdings []models.Investment, transactions []models.InvestmentTransaction, displayCurrency string, rates RateSource) (PortfolioSnapshot, error) {
	snap := PortfolioSnapshot{
		Currency:       displayCurrency,
		TotalValue:     models.NewMonetaryAmount(0, displayCurrency),
		TotalCostBasis: models.NewMonetaryAmount(0, displayCurrency),
		UnrealizedPnl:  models.NewMonetaryAmount(0, displayCurrency),
		RealizedPnl:    models.NewMonetaryAmount(0, displayCurrency),
		TotalDividends: models.NewMonetaryAmount(0, displayCurrency),
	}

	convert := func(amount models.MonetaryAmount) (int64, error) {
		if amount.Currency == displayCurrency {
			return amount.Amount, nil
		}
		rate, err := rates.GetRate(ctx, amount.Currency, displayCurrency)
		if err != nil {
			return 0, fmt.Errorf("converting %s to %s: %w", amount.Currency, displayCurrency, err)
		}
		if rate.IsStale {
			snap.UsedStaleRates = true
		}
		return exchange.ConvertAmount(amount.Amount, rate.Rate, amount.Currency, displayCurrency), nil
	}

	for _, inv := range holdings {
		basis := CostBasis(inv)
		value := MarketValue(inv)
		pnl, err := UnrealizedPnl(inv)
		if err != nil {
			return PortfolioSnapshot{}, err
		}
		if IsCustomInvestment(inv) && inv.CurrentPrice == 0 {
			// Unpriced custom holdings are carried at cost and contribute
			// no P&L; a zero price means "unset", not "worthless".
			value = basis
			pnl = models.NewMonetaryAmount(0, inv.Currency)
		}

		basisConv, err := convert(basis)
		if err != nil {
			return PortfolioSnapshot{}, err
		}
		valueConv, err := convert(value)
		if err != nil {
			return PortfolioSnapshot{}, err
		}
		pnlConv, err := convert(pnl)
		if err != nil {
			return PortfolioSnapshot{}, err
		}

		snap.TotalCostBasis.Amount += basisConv
		snap.TotalValue.Amount += valueConv
		snap.UnrealizedPnl.Amount += pnlConv
	}

	sells := lo.Filter(transactions, func(tx models.InvestmentTransaction, _ int) bool {
		return tx.Type == models.TransactionSell
	})
	for _, tx := range sells {
		realized, err := convert(models.NewMonetaryAmount(tx.RealizedPnl, tx.Currency))
		if err != nil {
			return PortfolioSnapshot{}, err
		}
		snap.RealizedPnl.Amount += realized
	}

	dividends := lo.Filter(transactions, func(tx models.InvestmentTransaction, _ int) bool {
		return tx.Type == models.TransactionDividend
	})
	for _, tx := range dividends {
		amount, err := convert(models.NewMonetaryAmount(tx.Price, tx.Currency))
		if err != nil {
			return PortfolioSnapshot{}, err
		}
		snap.TotalDividends.Amount += amount
	}

	if snap.TotalCostBasis.Amount != 0 {
		pct, _ := decimal.NewFromInt(snap.UnrealizedPnl.Amount).
			Div(decimal.NewFromInt(snap.TotalCostBasis.Amount)).
			Mul(decimal.NewFromInt(100)).
			Float64()
		snap.UnrealizedPnlPercent = &pct
	}

	return snap, nil
}

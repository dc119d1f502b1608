package valuation

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wealthjourney/backend/src/exchange"
	"github.com/wealthjourney/backend/src/models"
)

func stockHolding(avgCost, currentPrice, quantity int64, currency string) models.Investment {
	return models.Investment{
		Symbol:       "VNM",
		AssetType:    models.AssetTypeStock,
		Quantity:     quantity,
		AvgCost:      avgCost,
		CurrentPrice: currentPrice,
		Currency:     currency,
	}
}

func TestUnrealizedPnl_StockScenario(t *testing.T) {
	// 100 shares bought at 85,000,000 dong, now at 90,000,000 dong.
	inv := stockHolding(85_000_000, 90_000_000, 100*10_000, "VND")

	pnl, err := UnrealizedPnl(inv)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000_000), pnl.Amount)
	assert.Equal(t, "VND", pnl.Currency)
}

func TestUnrealizedPnl_Loss(t *testing.T) {
	inv := stockHolding(90_000_000, 85_000_000, 100*10_000, "VND")

	pnl, err := UnrealizedPnl(inv)
	require.NoError(t, err)
	assert.Equal(t, int64(-500_000_000), pnl.Amount)
}

func TestUnrealizedPnl_MonotonicInCurrentPrice(t *testing.T) {
	prev := int64(-1 << 62)
	for _, price := range []int64{0, 1, 50_000, 85_000_000, 90_000_000, 200_000_000} {
		inv := stockHolding(85_000_000, price, 100*10_000, "VND")
		pnl, err := UnrealizedPnl(inv)
		require.NoError(t, err)
		assert.Greater(t, pnl.Amount, prev, "pnl must strictly increase with price")
		prev = pnl.Amount
	}
}

func TestUnrealizedPnl_FractionalQuantity(t *testing.T) {
	// 0.5 BTC at 60,000.00 -> 70,000.00 USD: pnl = 10,000.00 * 0.5 = 5,000.00.
	inv := models.Investment{
		AssetType:    models.AssetTypeCrypto,
		Quantity:     50_000_000, // 0.5 in x1e8 fixed point
		AvgCost:      6_000_000,  // cents
		CurrentPrice: 7_000_000,
		Currency:     "USD",
	}
	pnl, err := UnrealizedPnl(inv)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), pnl.Amount)
}

func TestCostBasis_MetalHoldingPerGramPrice(t *testing.T) {
	// 2.5 tael of gold bought at 75,000,000 VND per tael. Storage holds
	// grams (93.75 g as 937,500) and a per-gram price (2,000,000), so the
	// basis must come out at 2.5 x 75,000,000, not scaled by grams-per-tael.
	inv := models.Investment{
		Symbol:       "SJC",
		AssetType:    models.AssetTypeGoldVND,
		Quantity:     937_500,
		AvgCost:      2_000_000,
		CurrentPrice: 2_100_000,
		Currency:     "VND",
		PurchaseUnit: "tael",
	}

	assert.Equal(t, int64(187_500_000), CostBasis(inv).Amount)
	assert.Equal(t, int64(196_875_000), MarketValue(inv).Amount)

	pnl, err := UnrealizedPnl(inv)
	require.NoError(t, err)
	assert.Equal(t, int64(9_375_000), pnl.Amount)
}

func TestUnrealizedPnlPercent(t *testing.T) {
	inv := stockHolding(85_000_000, 90_000_000, 100*10_000, "VND")
	pct := UnrealizedPnlPercent(inv)
	require.NotNil(t, pct)
	assert.InDelta(t, 5.882352, *pct, 0.0001)
}

func TestUnrealizedPnlPercent_NilOnZeroCostBasis(t *testing.T) {
	// Zero quantity means averageCost * quantity == 0.
	inv := stockHolding(85_000_000, 90_000_000, 0, "VND")
	assert.Nil(t, UnrealizedPnlPercent(inv))

	// Zero average cost likewise.
	inv = stockHolding(0, 90_000_000, 100*10_000, "VND")
	assert.Nil(t, UnrealizedPnlPercent(inv))
}

func TestCustomInvestment(t *testing.T) {
	custom := models.Investment{
		Name:      "Grandma's land plot",
		AssetType: models.AssetTypeOther,
		Quantity:  100, // 1.00 in x100 fixed point
		AvgCost:   500_000_000,
		Currency:  "VND",
	}

	assert.True(t, IsCustomInvestment(custom))
	assert.Nil(t, UnrealizedPnlPercent(custom))

	pres := FormatUnrealizedPnl(custom)
	assert.Equal(t, "N/A (Price not set)", pres.Text)
	assert.Equal(t, ColorNeutral, pres.ColorClass)
}

func TestIsCustomInvestment_ZeroPriceSentinel(t *testing.T) {
	// A priced OTHER asset is still custom; a zero-priced stock counts too.
	pricedCustom := models.Investment{AssetType: models.AssetTypeOther, CurrentPrice: 100}
	assert.True(t, IsCustomInvestment(pricedCustom))

	unpricedStock := stockHolding(85_000_000, 0, 100*10_000, "VND")
	assert.True(t, IsCustomInvestment(unpricedStock))

	pricedStock := stockHolding(85_000_000, 90_000_000, 100*10_000, "VND")
	assert.False(t, IsCustomInvestment(pricedStock))
}

func TestFormatUnrealizedPnl_Colors(t *testing.T) {
	gain := stockHolding(85_000_000, 90_000_000, 100*10_000, "VND")
	pres := FormatUnrealizedPnl(gain)
	assert.Equal(t, ColorSuccess, pres.ColorClass)
	assert.Contains(t, pres.Text, "+")

	loss := stockHolding(90_000_000, 85_000_000, 100*10_000, "VND")
	pres = FormatUnrealizedPnl(loss)
	assert.Equal(t, ColorDanger, pres.ColorClass)

	// Flat positions use the non-negative (success) styling.
	flat := stockHolding(85_000_000, 85_000_000, 100*10_000, "VND")
	assert.Equal(t, ColorSuccess, FormatUnrealizedPnl(flat).ColorClass)
}

// stubRates serves fixed rates and records which pairs were requested.
type stubRates struct {
	rates     map[string]exchange.Rate
	errs      map[string]error
	requested []string
}

func (s *stubRates) GetRate(ctx context.Context, base, quote string) (exchange.Rate, error) {
	key := base + "/" + quote
	s.requested = append(s.requested, key)
	if err, ok := s.errs[key]; ok {
		return exchange.Rate{}, err
	}
	if rate, ok := s.rates[key]; ok {
		return rate, nil
	}
	return exchange.Rate{Rate: decimal.NewFromInt(1)}, nil
}

func TestBuildSnapshot_SingleCurrency(t *testing.T) {
	holdings := []models.Investment{
		stockHolding(85_000_000, 90_000_000, 100*10_000, "VND"),
		stockHolding(10_000, 8_000, 50*10_000, "VND"),
	}
	rates := &stubRates{}

	snap, err := BuildSnapshot(context.Background(), holdings, nil, "VND", rates)
	require.NoError(t, err)

	assert.Equal(t, int64(8_500_000_000+500_000), snap.TotalCostBasis.Amount)
	assert.Equal(t, int64(9_000_000_000+400_000), snap.TotalValue.Amount)
	assert.Equal(t, int64(500_000_000-100_000), snap.UnrealizedPnl.Amount)
	assert.Empty(t, rates.requested, "same-currency aggregation must not ask for rates")
}

func TestBuildSnapshot_ConvertsBeforeSumming(t *testing.T) {
	holdings := []models.Investment{
		stockHolding(0, 100, 1*10_000, "USD"), // value 100 cents = 1 USD
		stockHolding(0, 25_000, 1*10_000, "VND"),
	}
	rates := &stubRates{rates: map[string]exchange.Rate{
		"USD/VND": {Rate: decimal.NewFromInt(25_000)},
	}}

	snap, err := BuildSnapshot(context.Background(), holdings, nil, "VND", rates)
	require.NoError(t, err)

	// 1 USD -> 25,000 VND plus the native 25,000 VND holding.
	assert.Equal(t, int64(50_000), snap.TotalValue.Amount)
	assert.Equal(t, "VND", snap.TotalValue.Currency)
}

func TestBuildSnapshot_StaleRatesFlagged(t *testing.T) {
	holdings := []models.Investment{stockHolding(100, 200, 1*10_000, "USD")}
	rates := &stubRates{rates: map[string]exchange.Rate{
		"USD/VND": {Rate: decimal.NewFromInt(25_000), IsStale: true},
	}}

	snap, err := BuildSnapshot(context.Background(), holdings, nil, "VND", rates)
	require.NoError(t, err)
	assert.True(t, snap.UsedStaleRates)
}

func TestBuildSnapshot_RateUnavailable(t *testing.T) {
	holdings := []models.Investment{stockHolding(100, 200, 1*10_000, "USD")}
	rates := &stubRates{errs: map[string]error{
		"USD/VND": exchange.ErrRateUnavailable,
	}}

	_, err := BuildSnapshot(context.Background(), holdings, nil, "VND", rates)
	assert.ErrorIs(t, err, exchange.ErrRateUnavailable)
}

func TestBuildSnapshot_RealizedAndDividends(t *testing.T) {
	txs := []models.InvestmentTransaction{
		{Type: models.TransactionSell, RealizedPnl: 1_000_000, Currency: "VND"},
		{Type: models.TransactionSell, RealizedPnl: -250_000, Currency: "VND"},
		{Type: models.TransactionDividend, Price: 500_000, Currency: "VND"},
		{Type: models.TransactionBuy, Price: 9_999, Currency: "VND"}, // ignored
	}

	snap, err := BuildSnapshot(context.Background(), nil, txs, "VND", &stubRates{})
	require.NoError(t, err)
	assert.Equal(t, int64(750_000), snap.RealizedPnl.Amount)
	assert.Equal(t, int64(500_000), snap.TotalDividends.Amount)
}

func TestBuildSnapshot_UnpricedCustomCarriedAtCost(t *testing.T) {
	custom := models.Investment{
		AssetType: models.AssetTypeOther,
		Quantity:  100, // 1.00
		AvgCost:   500_000_000,
		Currency:  "VND",
	}

	snap, err := BuildSnapshot(context.Background(), []models.Investment{custom}, nil, "VND", &stubRates{})
	require.NoError(t, err)
	assert.Equal(t, int64(500_000_000), snap.TotalCostBasis.Amount)
	assert.Equal(t, int64(500_000_000), snap.TotalValue.Amount)
	assert.Equal(t, int64(0), snap.UnrealizedPnl.Amount)
	require.NotNil(t, snap.UnrealizedPnlPercent)
	assert.Equal(t, 0.0, *snap.UnrealizedPnlPercent)
}

package units

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wealthjourney/backend/src/models"
)

func TestQuantityToStorage_Scaling(t *testing.T) {
	tests := []struct {
		name      string
		quantity  string
		assetType models.AssetType
		want      int64
	}{
		{name: "stock whole shares", quantity: "100", assetType: models.AssetTypeStock, want: 1_000_000},
		{name: "stock fractional shares", quantity: "2.5", assetType: models.AssetTypeETF, want: 25_000},
		{name: "mutual fund", quantity: "1.2345", assetType: models.AssetTypeMutualFund, want: 12_345},
		{name: "crypto satoshi precision", quantity: "0.00000001", assetType: models.AssetTypeCrypto, want: 1},
		{name: "crypto half coin", quantity: "0.5", assetType: models.AssetTypeCrypto, want: 50_000_000},
		{name: "bond", quantity: "10", assetType: models.AssetTypeBond, want: 1_000},
		{name: "commodity", quantity: "3.25", assetType: models.AssetTypeCommodity, want: 325},
		{name: "custom asset", quantity: "7", assetType: models.AssetTypeOther, want: 700},
		{name: "gold in grams", quantity: "37.5", assetType: models.AssetTypeGoldVND, want: 375_000},
		{name: "unknown type falls back to x100", quantity: "1.5", assetType: models.AssetType("REAL_ESTATE"), want: 150},
		{name: "zero", quantity: "0", assetType: models.AssetTypeStock, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QuantityToStorage(decimal.RequireFromString(tt.quantity), tt.assetType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuantityToStorage_NegativeFails(t *testing.T) {
	_, err := QuantityToStorage(decimal.RequireFromString("-1"), models.AssetTypeStock)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestQuantityToStorage_RoundsHalfAwayFromZero(t *testing.T) {
	// 0.00005 shares is exactly half of the smallest stock unit.
	got, err := QuantityToStorage(decimal.RequireFromString("0.00005"), models.AssetTypeStock)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestQuantityRoundTrip_AllAssetTypes(t *testing.T) {
	quantities := map[models.AssetType]string{
		models.AssetTypeStock:      "123.4567",
		models.AssetTypeETF:        "0.0001",
		models.AssetTypeMutualFund: "55.5",
		models.AssetTypeCrypto:     "0.12345678",
		models.AssetTypeBond:       "10.25",
		models.AssetTypeCommodity:  "3.75",
		models.AssetTypeGoldVND:    "150.1234",
		models.AssetTypeGoldUSD:    "31.1035",
		models.AssetTypeSilverVND:  "1000",
		models.AssetTypeSilverUSD:  "0.5",
		models.AssetTypeOther:      "42.42",
	}

	for assetType, q := range quantities {
		t.Run(string(assetType), func(t *testing.T) {
			want := decimal.RequireFromString(q)
			stored, err := QuantityToStorage(want, assetType)
			require.NoError(t, err)
			back := StorageToQuantity(stored, assetType)
			assert.True(t, back.Equal(want), "round trip %s -> %d -> %s", want, stored, back)
		})
	}
}

func TestMetalUnitConversion(t *testing.T) {
	tests := []struct {
		name      string
		quantity  string
		unit      string
		assetType models.AssetType
		want      int64
	}{
		// 2.5 tael x 37.5 g x 10,000 = 937,500
		{name: "tael purchase", quantity: "2.5", unit: "tael", assetType: models.AssetTypeGoldVND, want: 937_500},
		{name: "kg purchase", quantity: "0.1", unit: "kg", assetType: models.AssetTypeSilverVND, want: 1_000_000},
		{name: "troy ounce purchase", quantity: "1", unit: "oz", assetType: models.AssetTypeGoldUSD, want: 311_035},
		{name: "gram purchase", quantity: "5", unit: "gram", assetType: models.AssetTypeGoldVND, want: 50_000},
		{name: "empty unit defaults to grams", quantity: "5", unit: "", assetType: models.AssetTypeGoldVND, want: 50_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QuantityToStorageInUnit(decimal.RequireFromString(tt.quantity), tt.unit, tt.assetType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetalUnitRoundTrip(t *testing.T) {
	// Round-trip back to tael must return 2.5 exactly.
	stored, err := QuantityToStorageInUnit(decimal.RequireFromString("2.5"), "tael", models.AssetTypeGoldVND)
	require.NoError(t, err)
	require.Equal(t, int64(937_500), stored)

	back, err := StorageToQuantityInUnit(stored, "tael", models.AssetTypeGoldVND)
	require.NoError(t, err)
	assert.True(t, back.Equal(decimal.RequireFromString("2.5")), "got %s", back)
}

func TestMetalUnitConversion_UnknownUnit(t *testing.T) {
	_, err := QuantityToStorageInUnit(decimal.RequireFromString("1"), "bar", models.AssetTypeGoldVND)
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestMetalPriceNormalizedToPerGram(t *testing.T) {
	tests := []struct {
		name      string
		price     string
		unit      string
		assetType models.AssetType
		currency  string
		want      int64
	}{
		// 75,000,000 VND per tael / 37.5 g = 2,000,000 VND per gram
		{name: "per-tael price", price: "75000000", unit: "tael", assetType: models.AssetTypeGoldVND, currency: "VND", want: 2_000_000},
		{name: "per-kg price", price: "1000000", unit: "kg", assetType: models.AssetTypeSilverVND, currency: "VND", want: 1_000},
		{name: "per-gram price unchanged", price: "2000000", unit: "gram", assetType: models.AssetTypeGoldVND, currency: "VND", want: 2_000_000},
		{name: "empty unit defaults to grams", price: "2000000", unit: "", assetType: models.AssetTypeGoldVND, currency: "VND", want: 2_000_000},
		{name: "non-metal ignores unit", price: "85000", unit: "tael", assetType: models.AssetTypeStock, currency: "VND", want: 85_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PriceToStorageInUnit(decimal.RequireFromString(tt.price), tt.unit, tt.assetType, tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetalPriceRoundTrip(t *testing.T) {
	stored, err := PriceToStorageInUnit(decimal.RequireFromString("75000000"), "tael", models.AssetTypeGoldVND, "VND")
	require.NoError(t, err)
	require.Equal(t, int64(2_000_000), stored)

	back, err := StorageToPriceInUnit(stored, "tael", models.AssetTypeGoldVND, "VND")
	require.NoError(t, err)
	assert.True(t, back.Equal(decimal.RequireFromString("75000000")), "got %s", back)
}

func TestMetalPriceUnknownUnit(t *testing.T) {
	_, err := PriceToStorageInUnit(decimal.RequireFromString("1"), "bar", models.AssetTypeGoldVND, "VND")
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestQuantityToStorageInUnit_NonMetalIgnoresUnit(t *testing.T) {
	got, err := QuantityToStorageInUnit(decimal.RequireFromString("10"), "tael", models.AssetTypeStock)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), got)
}

func TestAmountToSmallestUnit(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     int64
	}{
		{name: "usd cents", amount: "12.34", currency: "USD", want: 1_234},
		{name: "usd rounds half cent up", amount: "0.005", currency: "USD", want: 1},
		{name: "vnd has no subunit", amount: "85000000", currency: "VND", want: 85_000_000},
		{name: "eur", amount: "99.99", currency: "EUR", want: 9_999},
		{name: "unknown currency defaults to two digits", amount: "1.23", currency: "ZZZ", want: 123},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmountToSmallestUnit(decimal.RequireFromString(tt.amount), tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmountToSmallestUnit_NegativeFails(t *testing.T) {
	_, err := AmountToSmallestUnit(decimal.RequireFromString("-0.01"), "USD")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSmallestUnitToAmount_RoundTrip(t *testing.T) {
	stored, err := AmountToSmallestUnit(decimal.RequireFromString("1234.56"), "USD")
	require.NoError(t, err)
	back := SmallestUnitToAmount(stored, "USD")
	assert.True(t, back.Equal(decimal.RequireFromString("1234.56")))
}

func TestInputConfig(t *testing.T) {
	crypto := InputConfig(models.AssetTypeCrypto)
	assert.Equal(t, "0.00000001", crypto.Step)

	stock := InputConfig(models.AssetTypeStock)
	assert.Equal(t, "0.0001", stock.Step)

	// Unrecognized types have no failure mode, they get the default.
	unknown := InputConfig(models.AssetType("WINE"))
	assert.Equal(t, defaultInputConfig, unknown)
}

func TestScaleFactor_UnknownType(t *testing.T) {
	scale, known := ScaleFactor(models.AssetType("WINE"))
	assert.False(t, known)
	assert.Equal(t, int64(defaultScale), scale)
}

// Package units converts user-facing decimal quantities and amounts into the
// fixed-point integer representations the database stores, and back. All
// conversions round half away from zero at the smallest-unit boundary so that
// many small transactions cannot systematically under- or over-count.
package units

import (
	"errors"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/wealthjourney/backend/src/models"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be a non-negative number")
	ErrInvalidAmount    = errors.New("amount must be a non-negative number")
	ErrUnknownAssetType = errors.New("unknown asset type")
	ErrUnknownUnit      = errors.New("unknown purchase unit")
)

// defaultScale is the fallback for asset types this build does not recognize,
// so newer asset types degrade gracefully instead of failing.
const defaultScale = 100

// quantityScale maps each asset type to its fixed-point scaling factor.
// Gold and silver quantities are stored as grams x10,000 regardless of the
// unit the user purchased in.
var quantityScale = map[models.AssetType]int64{
	models.AssetTypeStock:      10_000,
	models.AssetTypeETF:        10_000,
	models.AssetTypeMutualFund: 10_000,
	models.AssetTypeCrypto:     100_000_000,
	models.AssetTypeBond:       100,
	models.AssetTypeCommodity:  100,
	models.AssetTypeGoldVND:    10_000,
	models.AssetTypeGoldUSD:    10_000,
	models.AssetTypeSilverVND:  10_000,
	models.AssetTypeSilverUSD:  10_000,
	models.AssetTypeOther:      100,
}

// gramsPerUnit is the fixed, versioned conversion table for precious metal
// purchase units. The values are exact decimal constants so that round-trips
// stay exact to the stored precision (4 decimal places of a gram).
var gramsPerUnit = map[string]decimal.Decimal{
	"tael": decimal.RequireFromString("37.5"),
	"kg":   decimal.RequireFromString("1000"),
	"oz":   decimal.RequireFromString("31.1035"), // troy ounce
	"gram": decimal.RequireFromString("1"),
}

// ScaleFactor returns the fixed-point scaling factor for an asset type and
// whether the type was recognized. Unrecognized types get the default scale.
func ScaleFactor(assetType models.AssetType) (int64, bool) {
	if scale, ok := quantityScale[assetType]; ok {
		return scale, true
	}
	return defaultScale, false
}

// QuantityToStorage converts a user-entered decimal quantity into its
// fixed-point storage integer for the given asset type.
func QuantityToStorage(quantity decimal.Decimal, assetType models.AssetType) (int64, error) {
	if quantity.IsNegative() {
		return 0, ErrInvalidQuantity
	}
	scale, _ := ScaleFactor(assetType)
	return quantity.Mul(decimal.NewFromInt(scale)).Round(0).IntPart(), nil
}

// StorageToQuantity converts a fixed-point storage integer back into the
// decimal quantity the user sees.
func StorageToQuantity(stored int64, assetType models.AssetType) decimal.Decimal {
	scale, _ := ScaleFactor(assetType)
	return decimal.NewFromInt(stored).Div(decimal.NewFromInt(scale))
}

// QuantityToStorageInUnit converts a quantity expressed in a metal purchase
// unit (tael, kg, oz, gram) into the gram-based storage integer. Conversion is
// two-stage: user unit -> grams -> storage, because purchase units are not 1:1
// with the storage unit.
func QuantityToStorageInUnit(quantity decimal.Decimal, purchaseUnit string, assetType models.AssetType) (int64, error) {
	if quantity.IsNegative() {
		return 0, ErrInvalidQuantity
	}
	if !assetType.IsPreciousMetal() {
		return QuantityToStorage(quantity, assetType)
	}
	grams, err := toGrams(quantity, purchaseUnit)
	if err != nil {
		return 0, err
	}
	return QuantityToStorage(grams, assetType)
}

// StorageToQuantityInUnit converts a gram-based storage integer back into the
// metal purchase unit it was bought in.
func StorageToQuantityInUnit(stored int64, purchaseUnit string, assetType models.AssetType) (decimal.Decimal, error) {
	if !assetType.IsPreciousMetal() {
		return StorageToQuantity(stored, assetType), nil
	}
	perUnit, ok := gramsPerUnit[normalizeUnit(purchaseUnit)]
	if !ok {
		return decimal.Zero, ErrUnknownUnit
	}
	return StorageToQuantity(stored, assetType).Div(perUnit), nil
}

// PriceToStorageInUnit converts a per-purchase-unit price into the stored
// per-unit price in smallest currency units. Metal quantities are stored as
// grams, so a per-tael or per-ounce price is normalized to per-gram first;
// otherwise a gram quantity multiplied by a per-tael price would overstate
// values by the grams-per-unit factor. Non-metal asset types ignore the unit.
func PriceToStorageInUnit(price decimal.Decimal, purchaseUnit string, assetType models.AssetType, currencyCode string) (int64, error) {
	if assetType.IsPreciousMetal() {
		perUnit, ok := gramsPerUnit[normalizeUnit(purchaseUnit)]
		if !ok {
			return 0, ErrUnknownUnit
		}
		price = price.Div(perUnit)
	}
	return AmountToSmallestUnit(price, currencyCode)
}

// StorageToPriceInUnit converts a stored per-gram metal price back into the
// per-purchase-unit price the user entered.
func StorageToPriceInUnit(stored int64, purchaseUnit string, assetType models.AssetType, currencyCode string) (decimal.Decimal, error) {
	if !assetType.IsPreciousMetal() {
		return SmallestUnitToAmount(stored, currencyCode), nil
	}
	perUnit, ok := gramsPerUnit[normalizeUnit(purchaseUnit)]
	if !ok {
		return decimal.Zero, ErrUnknownUnit
	}
	return SmallestUnitToAmount(stored, currencyCode).Mul(perUnit), nil
}

func toGrams(quantity decimal.Decimal, purchaseUnit string) (decimal.Decimal, error) {
	perUnit, ok := gramsPerUnit[normalizeUnit(purchaseUnit)]
	if !ok {
		return decimal.Zero, ErrUnknownUnit
	}
	return quantity.Mul(perUnit), nil
}

func normalizeUnit(unit string) string {
	unit = strings.ToLower(strings.TrimSpace(unit))
	if unit == "" {
		return "gram"
	}
	return unit
}

// MinorUnitFraction returns the number of minor-unit digits for an ISO-4217
// currency code (2 for USD, 0 for VND). Unknown codes default to 2.
func MinorUnitFraction(currencyCode string) int32 {
	if cur := money.GetCurrency(strings.ToUpper(strings.TrimSpace(currencyCode))); cur != nil {
		return int32(cur.Fraction)
	}
	return 2
}

// AmountToSmallestUnit converts a decimal monetary amount into the currency's
// smallest-unit integer (dollars -> cents; dong has no subunit).
func AmountToSmallestUnit(amount decimal.Decimal, currencyCode string) (int64, error) {
	if amount.IsNegative() {
		return 0, ErrInvalidAmount
	}
	return amount.Shift(MinorUnitFraction(currencyCode)).Round(0).IntPart(), nil
}

// SmallestUnitToAmount converts a smallest-unit integer back into the decimal
// amount the user sees.
func SmallestUnitToAmount(amount int64, currencyCode string) decimal.Decimal {
	return decimal.NewFromInt(amount).Shift(-MinorUnitFraction(currencyCode))
}

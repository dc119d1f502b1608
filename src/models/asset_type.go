package models

// AssetType classifies an investment holding. The fixed-point scaling factor
// of a holding's quantity is determined solely by its asset type.
type AssetType string

const (
	AssetTypeStock      AssetType = "STOCK"
	AssetTypeETF        AssetType = "ETF"
	AssetTypeMutualFund AssetType = "MUTUAL_FUND"
	AssetTypeCrypto     AssetType = "CRYPTO"
	AssetTypeBond       AssetType = "BOND"
	AssetTypeCommodity  AssetType = "COMMODITY"
	AssetTypeGoldVND    AssetType = "GOLD_VND"
	AssetTypeGoldUSD    AssetType = "GOLD_USD"
	AssetTypeSilverVND  AssetType = "SILVER_VND"
	AssetTypeSilverUSD  AssetType = "SILVER_USD"
	AssetTypeOther      AssetType = "OTHER"
)

// KnownAssetTypes lists every asset type the application understands.
var KnownAssetTypes = []AssetType{
	AssetTypeStock, AssetTypeETF, AssetTypeMutualFund, AssetTypeCrypto,
	AssetTypeBond, AssetTypeCommodity, AssetTypeGoldVND, AssetTypeGoldUSD,
	AssetTypeSilverVND, AssetTypeSilverUSD, AssetTypeOther,
}

// IsKnown reports whether t is one of the recognized asset types. Unknown
// types still degrade gracefully to the default scaling factor; this is only
// used where strict validation is wanted (investment creation).
func (t AssetType) IsKnown() bool {
	for _, known := range KnownAssetTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsPreciousMetal reports whether the holding's quantity is stored in the
// decimal-gram representation and may carry a purchase unit (tael, kg, oz).
func (t AssetType) IsPreciousMetal() bool {
	switch t {
	case AssetTypeGoldVND, AssetTypeGoldUSD, AssetTypeSilverVND, AssetTypeSilverUSD:
		return true
	}
	return false
}

package units

import "github.com/wealthjourney/backend/src/models"

// QuantityInputConfig drives the quantity field of the investment forms.
type QuantityInputConfig struct {
	Placeholder string `json:"placeholder"`
	Step        string `json:"step"`
}

var inputConfigs = map[models.AssetType]QuantityInputConfig{
	models.AssetTypeStock:      {Placeholder: "100", Step: "0.0001"},
	models.AssetTypeETF:        {Placeholder: "100", Step: "0.0001"},
	models.AssetTypeMutualFund: {Placeholder: "100", Step: "0.0001"},
	models.AssetTypeCrypto:     {Placeholder: "0.05", Step: "0.00000001"},
	models.AssetTypeBond:       {Placeholder: "10", Step: "0.01"},
	models.AssetTypeCommodity:  {Placeholder: "10", Step: "0.01"},
	models.AssetTypeGoldVND:    {Placeholder: "1", Step: "0.1"},
	models.AssetTypeGoldUSD:    {Placeholder: "1", Step: "0.1"},
	models.AssetTypeSilverVND:  {Placeholder: "1", Step: "0.1"},
	models.AssetTypeSilverUSD:  {Placeholder: "1", Step: "0.1"},
	models.AssetTypeOther:      {Placeholder: "1", Step: "0.01"},
}

var defaultInputConfig = QuantityInputConfig{Placeholder: "1", Step: "0.01"}

// InputConfig returns the quantity input hints for an asset type. It is a
// pure lookup with no failure mode; unrecognized types get the default.
func InputConfig(assetType models.AssetType) QuantityInputConfig {
	if cfg, ok := inputConfigs[assetType]; ok {
		return cfg
	}
	return defaultInputConfig
}

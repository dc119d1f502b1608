package models

import "time"

// Wallet groups a user's cash balance and investments under one currency.
type Wallet struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Balance   int64     `json:"balance"` // smallest currency units
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Budget is a spending envelope attached to a wallet.
type Budget struct {
	ID        int64     `json:"id"`
	WalletID  int64     `json:"wallet_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Amount    int64     `json:"amount"` // smallest currency units
	Currency  string    `json:"currency"`
	Period    string    `json:"period"` // e.g. "MONTHLY", "WEEKLY"
	CreatedAt time.Time `json:"created_at"`
}

// Investment is a holding in a wallet. Quantity is a fixed-point integer whose
// scaling factor is determined solely by AssetType (stocks x10,000, crypto
// x100,000,000, bonds/commodities/other x100, gold/silver grams x10,000).
// AvgCost and CurrentPrice are per-unit prices in smallest currency units,
// where the unit is the same one Quantity counts: for gold and silver that is
// per gram, never per tael/kg/oz, regardless of PurchaseUnit. A zero
// CurrentPrice on an OTHER holding is a sentinel for "price not set".
type Investment struct {
	ID           int64     `json:"id"`
	WalletID     int64     `json:"wallet_id"`
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name"`
	AssetType    AssetType `json:"asset_type"`
	Quantity     int64     `json:"quantity"`
	AvgCost      int64     `json:"avg_cost"`
	CurrentPrice int64     `json:"current_price"`
	Currency     string    `json:"currency"`
	PurchaseUnit string    `json:"purchase_unit,omitempty"` // metals only: "tael", "kg", "oz", "gram"
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AverageCost returns the holding's per-unit average cost as a MonetaryAmount.
func (i Investment) AverageCost() MonetaryAmount {
	return MonetaryAmount{Amount: i.AvgCost, Currency: i.Currency}
}

// MarketPrice returns the holding's current per-unit price as a MonetaryAmount.
func (i Investment) MarketPrice() MonetaryAmount {
	return MonetaryAmount{Amount: i.CurrentPrice, Currency: i.Currency}
}

// TransactionType is the kind of an investment transaction.
type TransactionType string

const (
	TransactionBuy      TransactionType = "BUY"
	TransactionSell     TransactionType = "SELL"
	TransactionDividend TransactionType = "DIVIDEND"
	TransactionSplit    TransactionType = "SPLIT"
)

// InvestmentTransaction is an append-only record against a holding. It is
// removed only by explicit user deletion, which triggers a recomputation of
// the parent holding's quantity and cost basis.
//
// Field use varies by type: BUY/SELL carry a fixed-point quantity and a
// per-unit price; DIVIDEND carries the total cash received in Price with
// Quantity unused; SPLIT carries the share ratio in Quantity (fixed-point,
// e.g. a 2:1 split on a stock is 20000) with Price unused.
type InvestmentTransaction struct {
	ID              int64           `json:"id"`
	InvestmentID    int64           `json:"investment_id"`
	Type            TransactionType `json:"type"`
	Quantity        int64           `json:"quantity"`
	Price           int64           `json:"price"`
	Fees            int64           `json:"fees"`
	Currency        string          `json:"currency"`
	RealizedPnl     int64           `json:"realized_pnl"` // set on SELL when recorded
	TransactionDate time.Time       `json:"transaction_date"`
	CreatedAt       time.Time       `json:"created_at"`
}

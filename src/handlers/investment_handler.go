package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/wealthjourney/backend/src/logger"
	"github.com/wealthjourney/backend/src/models"
	"github.com/wealthjourney/backend/src/services"
	"github.com/wealthjourney/backend/src/units"
	"github.com/wealthjourney/backend/src/utils"
	"github.com/wealthjourney/backend/src/valuation"
)

type InvestmentHandler struct {
	investments services.InvestmentService
}

func NewInvestmentHandler(investments services.InvestmentService) *InvestmentHandler {
	return &InvestmentHandler{investments: investments}
}

// investmentRequest carries decimal values as strings so clients never round
// through float64. Quantity is interpreted in PurchaseUnit for precious
// metals ("tael", "kg", "oz", "gram") and in natural units otherwise.
type investmentRequest struct {
	WalletID     int64  `json:"wallet_id"`
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	AssetType    string `json:"asset_type"`
	Quantity     string `json:"quantity"`
	AvgCost      string `json:"avg_cost"`
	CurrentPrice string `json:"current_price"`
	Currency     string `json:"currency"`
	PurchaseUnit string `json:"purchase_unit"`
}

type transactionRequest struct {
	Type            string `json:"type"`
	Quantity        string `json:"quantity"`
	Price           string `json:"price"`
	Fees            string `json:"fees"`
	Currency        string `json:"currency"`
	PurchaseUnit    string `json:"purchase_unit"`
	TransactionDate string `json:"transaction_date"` // YYYY-MM-DD
}

// investmentView is the API shape of a holding: fixed-point columns are
// rendered back to decimal strings alongside the raw stored values.
type investmentView struct {
	models.Investment
	QuantityDecimal     string  `json:"quantity_decimal"`
	AvgCostDecimal      string  `json:"avg_cost_decimal"`
	CurrentPriceDecimal string  `json:"current_price_decimal"`
	MarketValue         int64   `json:"market_value"`
	CostBasis           int64   `json:"cost_basis"`
	UnrealizedPnl       int64   `json:"unrealized_pnl"`
	UnrealizedPnlPct    *string `json:"unrealized_pnl_percent,omitempty"`
	IsCustom            bool    `json:"is_custom"`
}

func (h *InvestmentHandler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	var walletID int64
	if s := r.URL.Query().Get("wallet_id"); s != "" {
		var err error
		walletID, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			utils.SendJSONError(w, r, "Invalid wallet_id", http.StatusBadRequest)
			return
		}
	}
	invs, err := h.investments.ListInvestments(r.Context(), walletID)
	if err != nil {
		logger.L.Error("Failed to list investments", "error", err)
		utils.SendJSONError(w, r, "Failed to retrieve investments", http.StatusInternalServerError)
		return
	}
	views := make([]investmentView, 0, len(invs))
	for _, inv := range invs {
		views = append(views, toInvestmentView(inv))
	}
	utils.SendJSON(w, r, http.StatusOK, "", views)
}

func (h *InvestmentHandler) GetInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, r, "Invalid investment ID", http.StatusBadRequest)
		return
	}
	inv, err := h.investments.GetInvestment(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, r, "Investment not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to get investment", "id", id, "error", err)
		utils.SendJSONError(w, r, "Failed to retrieve investment", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, r, http.StatusOK, "", toInvestmentView(inv))
}

func (h *InvestmentHandler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, r, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.WalletID == 0 || req.Symbol == "" {
		utils.SendJSONError(w, r, "wallet_id and symbol are required", http.StatusBadRequest)
		return
	}
	assetType := models.AssetType(req.AssetType)
	if !assetType.IsKnown() {
		utils.SendJSONError(w, r, "Unknown asset type: "+req.AssetType, http.StatusBadRequest)
		return
	}
	if req.Currency == "" {
		req.Currency = "VND"
	}

	inv := models.Investment{
		WalletID:     req.WalletID,
		Symbol:       req.Symbol,
		Name:         req.Name,
		AssetType:    assetType,
		Currency:     req.Currency,
		PurchaseUnit: req.PurchaseUnit,
	}

	var err error
	inv.Quantity, err = parseQuantity(req.Quantity, req.PurchaseUnit, assetType)
	if err != nil {
		utils.SendJSONError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	inv.AvgCost, err = parseUnitPrice(req.AvgCost, req.PurchaseUnit, assetType, req.Currency)
	if err != nil {
		utils.SendJSONError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	inv.CurrentPrice, err = parseUnitPrice(req.CurrentPrice, req.PurchaseUnit, assetType, req.Currency)
	if err != nil {
		utils.SendJSONError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.investments.CreateInvestment(r.Context(), inv)
	if err != nil {
		logger.L.Error("Failed to create investment", "symbol", req.Symbol, "error", err)
		utils.SendJSONError(w, r, "Failed to create investment", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, r, http.StatusCreated, "Investment created", toInvestmentView(created))
}

func (h *InvestmentHandler) UpdateInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, r, "Invalid investment ID", http.StatusBadRequest)
		return
	}
	inv, err := h.investments.GetInvestment(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, r, "Investment not found", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, r, "Failed to retrieve investment", http.StatusInternalServerError)
		return
	}

	var req investmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, r, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Name and current price are the only mutable fields; quantity and cost
	// basis change only through transactions.
	if req.Name != "" {
		inv.Name = req.Name
	}
	if req.CurrentPrice != "" {
		inv.CurrentPrice, err = parseUnitPrice(req.CurrentPrice, inv.PurchaseUnit, inv.AssetType, inv.Currency)
		if err != nil {
			utils.SendJSONError(w, r, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := h.investments.UpdateInvestment(r.Context(), inv); err != nil {
		logger.L.Error("Failed to update investment", "id", id, "error", err)
		utils.SendJSONError(w, r, "Failed to update investment", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, r, http.StatusOK, "Investment updated", toInvestmentView(inv))
}

func (h *InvestmentHandler) DeleteInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, r, "Invalid investment ID", http.StatusBadRequest)
		return
	}
	if err := h.investments.DeleteInvestment(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, r, "Investment not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to delete investment", "id", id, "error", err)
		utils.SendJSONError(w, r, "Failed to delete investment", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetInputConfig returns the quantity input hints for an asset type so the
// client can render the right placeholder and step.
func (h *InvestmentHandler) GetInputConfig(w http.ResponseWriter, r *http.Request) {
	assetType := models.AssetType(r.URL.Query().Get("asset_type"))
	utils.SendJSON(w, r, http.StatusOK, "", units.InputConfig(assetType))
}

func (h *InvestmentHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, r, "Invalid investment ID", http.StatusBadRequest)
		return
	}
	txs, err := h.investments.ListTransactions(r.Context(), id)
	if err != nil {
		logger.L.Error("Failed to list transactions", "investmentID", id, "error", err)
		utils.SendJSONError(w, r, "Failed to retrieve transactions", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, r, http.StatusOK, "", txs)
}

func (h *InvestmentHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, r, "Invalid investment ID", http.StatusBadRequest)
		return
	}
	inv, err := h.investments.GetInvestment(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, r, "Investment not found", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, r, "Failed to retrieve investment", http.StatusInternalServerError)
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, r, "Invalid request body", http.StatusBadRequest)
		return
	}

	txType := models.TransactionType(req.Type)
	switch txType {
	case models.TransactionBuy, models.TransactionSell, models.TransactionDividend, models.TransactionSplit:
	default:
		utils.SendJSONError(w, r, "Unknown transaction type: "+req.Type, http.StatusBadRequest)
		return
	}

	if req.Currency == "" {
		req.Currency = inv.Currency
	}
	unit := req.PurchaseUnit
	if unit == "" {
		unit = inv.PurchaseUnit
	}

	tx := models.InvestmentTransaction{
		InvestmentID: id,
		Type:         txType,
		Currency:     req.Currency,
	}
	if req.TransactionDate != "" {
		tx.TransactionDate, err = time.Parse("2006-01-02", req.TransactionDate)
		if err != nil {
			utils.SendJSONError(w, r, "Invalid transaction_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	} else {
		tx.TransactionDate = time.Now().UTC()
	}

	// A DIVIDEND carries the total cash in Price; a SPLIT carries the ratio
	// in Quantity. BUY/SELL carry both quantity and per-unit price, with
	// metal prices normalized from the purchase unit to per-gram like the
	// quantity. Fees are total cash, never per-unit.
	switch txType {
	case models.TransactionDividend:
		tx.Price, err = parseAmount(req.Price, req.Currency)
	case models.TransactionSplit:
		tx.Quantity, err = parseQuantity(req.Quantity, "", inv.AssetType)
	default:
		tx.Quantity, err = parseQuantity(req.Quantity, unit, inv.AssetType)
		if err == nil {
			tx.Price, err = parseUnitPrice(req.Price, unit, inv.AssetType, req.Currency)
		}
		if err == nil && req.Fees != "" {
			tx.Fees, err = parseAmount(req.Fees, req.Currency)
		}
	}
	if err != nil {
		utils.SendJSONError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	recorded, err := h.investments.RecordTransaction(r.Context(), tx)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientQuantity),
			errors.Is(err, services.ErrInvalidSplitRatio),
			errors.Is(err, services.ErrCurrencyMismatch):
			utils.SendJSONError(w, r, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrNotFound):
			utils.SendJSONError(w, r, "Investment not found", http.StatusNotFound)
		default:
			logger.L.Error("Failed to record transaction", "investmentID", id, "error", err)
			utils.SendJSONError(w, r, "Failed to record transaction", http.StatusInternalServerError)
		}
		return
	}
	utils.SendJSON(w, r, http.StatusCreated, "Transaction recorded", recorded)
}

func (h *InvestmentHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	txID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, r, "Invalid transaction ID", http.StatusBadRequest)
		return
	}
	if err := h.investments.DeleteTransaction(r.Context(), txID); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.SendJSONError(w, r, "Transaction not found", http.StatusNotFound)
		case errors.Is(err, services.ErrInsufficientQuantity):
			// Replaying the surviving history would drive the holding
			// negative, so the deletion is rejected.
			utils.SendJSONError(w, r, err.Error(), http.StatusConflict)
		default:
			logger.L.Error("Failed to delete transaction", "id", txID, "error", err)
			utils.SendJSONError(w, r, "Failed to delete transaction", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseQuantity(s, purchaseUnit string, assetType models.AssetType) (int64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.New("invalid quantity format")
	}
	return units.QuantityToStorageInUnit(d, purchaseUnit, assetType)
}

func parseAmount(s, currency string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.New("invalid amount format")
	}
	return units.AmountToSmallestUnit(d, currency)
}

func parseUnitPrice(s, purchaseUnit string, assetType models.AssetType, currency string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.New("invalid price format")
	}
	return units.PriceToStorageInUnit(d, purchaseUnit, assetType, currency)
}

func toInvestmentView(inv models.Investment) investmentView {
	v := investmentView{
		Investment:          inv,
		AvgCostDecimal:      units.SmallestUnitToAmount(inv.AvgCost, inv.Currency).String(),
		CurrentPriceDecimal: units.SmallestUnitToAmount(inv.CurrentPrice, inv.Currency).String(),
		MarketValue:         valuation.MarketValue(inv).Amount,
		CostBasis:           valuation.CostBasis(inv).Amount,
		IsCustom:            valuation.IsCustomInvestment(inv),
	}
	if pnl, err := valuation.UnrealizedPnl(inv); err == nil {
		v.UnrealizedPnl = pnl.Amount
	}
	if pct := valuation.UnrealizedPnlPercent(inv); pct != nil {
		s := strconv.FormatFloat(*pct, 'f', 2, 64)
		v.UnrealizedPnlPct = &s
	}
	if inv.AssetType.IsPreciousMetal() && inv.PurchaseUnit != "" {
		if q, err := units.StorageToQuantityInUnit(inv.Quantity, inv.PurchaseUnit, inv.AssetType); err == nil {
			v.QuantityDecimal = q.String()
		}
		// Prices are stored per gram; show them back per purchase unit.
		if p, err := units.StorageToPriceInUnit(inv.AvgCost, inv.PurchaseUnit, inv.AssetType, inv.Currency); err == nil {
			v.AvgCostDecimal = p.String()
		}
		if p, err := units.StorageToPriceInUnit(inv.CurrentPrice, inv.PurchaseUnit, inv.AssetType, inv.Currency); err == nil {
			v.CurrentPriceDecimal = p.String()
		}
	}
	if v.QuantityDecimal == "" {
		v.QuantityDecimal = units.StorageToQuantity(inv.Quantity, inv.AssetType).String()
	}
	return v
}

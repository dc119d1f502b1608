package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/wealthjourney/backend/src/database"
	"github.com/wealthjourney/backend/src/logger"
	"github.com/wealthjourney/backend/src/models"
	"github.com/wealthjourney/backend/src/units"
	"github.com/wealthjourney/backend/src/utils"
)

type WalletHandler struct{}

func NewWalletHandler() *WalletHandler {
	return &WalletHandler{}
}

type walletRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"` // decimal string, converted to smallest units
	Icon     string `json:"icon"`
}

func (h *WalletHandler) ListWallets(w http.ResponseWriter, r *http.Request) {
	rows, err := database.DB.Query(`SELECT id, name, currency, balance, COALESCE(icon, ''), created_at FROM wallets ORDER BY name ASC`)
	if err != nil {
		logger.L.Error("Failed to list wallets", "error", err)
		utils.SendJSONError(w, r, "Failed to retrieve wallets", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var wallets []models.Wallet
	for rows.Next() {
		var wallet models.Wallet
		if err := rows.Scan(&wallet.ID, &wallet.Name, &wallet.Currency, &wallet.Balance, &wallet.Icon, &wallet.CreatedAt); err != nil {
			logger.L.Error("Row scan error", "error", err)
			continue
		}
		wallets = append(wallets, wallet)
	}
	if wallets == nil {
		wallets = []models.Wallet{}
	}
	utils.SendJSON(w, r, http.StatusOK, "", wallets)
}

func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, r, "Invalid wallet ID", http.StatusBadRequest)
		return
	}

	var wallet models.Wallet
	err = database.DB.QueryRow(`SELECT id, name, currency, balance, COALESCE(icon, ''), created_at FROM wallets WHERE id = ?`, id).
		Scan(&wallet.ID, &wallet.Name, &wallet.Currency, &wallet.Balance, &wallet.Icon, &wallet.CreatedAt)
	if err == sql.ErrNoRows {
		utils.SendJSONError(w, r, "Wallet not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.L.Error("Failed to get wallet", "id", id, "error", err)
		utils.SendJSONError(w, r, "Failed to retrieve wallet", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, r, http.StatusOK, "", wallet)
}

func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, r, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		utils.SendJSONError(w, r, "Wallet name is required", http.StatusBadRequest)
		return
	}
	if req.Currency == "" {
		req.Currency = "VND"
	}

	balance := int64(0)
	if req.Balance != "" {
		balanceDec, err := decimal.NewFromString(req.Balance)
		if err != nil {
			utils.SendJSONError(w, r, "Invalid balance format", http.StatusBadRequest)
			return
		}
		balance, err = units.AmountToSmallestUnit(balanceDec, req.Currency)
		if err != nil {
			utils.SendJSONError(w, r, err.Error(), http.StatusBadRequest)
			return
		}
	}

	res, err := database.DB.Exec(`INSERT INTO wallets (name, currency, balance, icon, created_at) VALUES (?, ?, ?, ?, ?)`,
		req.Name, req.Currency, balance, req.Icon, time.Now().UTC())
	if err != nil {
		logger.L.Error("Failed to create wallet", "name", req.Name, "error", err)
		utils.SendJSONError(w, r, "Failed to create wallet (name must be unique)", http.StatusInternalServerError)
		return
	}
	id, _ := res.LastInsertId()
	logger.L.Info("Wallet created", "id", id, "name", req.Name)
	utils.SendJSON(w, r, http.StatusCreated, "Wallet created", map[string]interface{}{"id": id})
}

func (h *WalletHandler) UpdateWallet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, r, "Invalid wallet ID", http.StatusBadRequest)
		return
	}

	var req walletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, r, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		utils.SendJSONError(w, r, "Wallet name is required", http.StatusBadRequest)
		return
	}

	res, err := database.DB.Exec(`UPDATE wallets SET name = ?, icon = ? WHERE id = ?`, req.Name, req.Icon, id)
	if err != nil {
		logger.L.Error("Failed to update wallet", "id", id, "error", err)
		utils.SendJSONError(w, r, "Failed to update wallet", http.StatusInternalServerError)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		utils.SendJSONError(w, r, "Wallet not found", http.StatusNotFound)
		return
	}
	utils.SendJSON(w, r, http.StatusOK, "Wallet updated", nil)
}

func (h *WalletHandler) DeleteWallet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, r, "Invalid wallet ID", http.StatusBadRequest)
		return
	}

	// Budgets and investments cascade via foreign keys.
	res, err := database.DB.Exec(`DELETE FROM wallets WHERE id = ?`, id)
	if err != nil {
		logger.L.Error("Failed to delete wallet", "id", id, "error", err)
		utils.SendJSONError(w, r, "Failed to delete wallet", http.StatusInternalServerError)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		utils.SendJSONError(w, r, "Wallet not found", http.StatusNotFound)
		return
	}
	logger.L.Info("Wallet deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

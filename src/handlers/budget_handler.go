package handlers

import (
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

type BudgetHandler struct{}

func NewBudgetHandler() *BudgetHandler {
	return &BudgetHandler{}
}

type budgetRequest struct {
	WalletID int64  `json:"wallet_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Amount   string `json:"amount"` // decimal string
	Currency string `json:"currency"`
	Period   string `json:"period"`
}

func (h *BudgetHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	query := `SELECT id, wallet_id, name, category, amount, currency, period, created_at FROM budgets`
	args := []interface{}{}
	if walletIDStr := r.URL.Query().Get("wallet_id"); walletIDStr != "" {
		walletID, err := strconv.ParseInt(walletIDStr, 10, 64)
		if err != nil {
			utils.SendJSONError(w, r, "Invalid wallet_id", http.StatusBadRequest)
			return
		}
		query += ` WHERE wallet_id = ?`
		args = append(args, walletID)
	}
	query += ` ORDER BY name ASC`

	rows, err := database.DB.Query(query, args...)
	if err != nil {
		logger.L.Error("Failed to list budgets", "error", err)
		utils.SendJSONError(w, r, "Failed to retrieve budgets", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.WalletID, &b.Name, &b.Category, &b.Amount, &b.Currency, &b.Period, &b.CreatedAt); err != nil {
			logger.L.Error("Row scan error", "error", err)
			continue
		}
		budgets = append(budgets, b)
	}
	if budgets == nil {
		budgets = []models.Budget{}
	}
	utils.SendJSON(w, r, http.StatusOK, "", budgets)
}

func (h *BudgetHandler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, r, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.WalletID == 0 {
		utils.SendJSONError(w, r, "Budget name and wallet_id are required", http.StatusBadRequest)
		return
	}
	if req.Period == "" {
		req.Period = "MONTHLY"
	}
	if req.Currency == "" {
		// Budgets default to their wallet's currency.
		if err := database.DB.QueryRow(`SELECT currency FROM wallets WHERE id = ?`, req.WalletID).Scan(&req.Currency); err != nil {
			utils.SendJSONError(w, r, "Wallet not found", http.StatusBadRequest)
			return
		}
	}

	amountDec, err := decimal.NewFromString(req.Amount)
	if err != nil {
		utils.SendJSONError(w, r, "Invalid amount format", http.StatusBadRequest)
		return
	}
	amount, err := units.AmountToSmallestUnit(amountDec, req.Currency)
	if err != nil {
		utils.SendJSONError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := database.DB.Exec(`
		INSERT INTO budgets (wallet_id, name, category, amount, currency, period, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.WalletID, req.Name, req.Category, amount, req.Currency, req.Period, time.Now().UTC())
	if err != nil {
		logger.L.Error("Failed to create budget", "name", req.Name, "error", err)
		utils.SendJSONError(w, r, "Failed to create budget", http.StatusInternalServerError)
		return
	}
	id, _ := res.LastInsertId()
	utils.SendJSON(w, r, http.StatusCreated, "Budget created", map[string]interface{}{"id": id})
}

func (h *BudgetHandler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, r, "Invalid budget ID", http.StatusBadRequest)
		return
	}

	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, r, "Invalid request body", http.StatusBadRequest)
		return
	}

	var currency string
	err = database.DB.QueryRow(`SELECT currency FROM budgets WHERE id = ?`, id).Scan(&currency)
	if err != nil {
		utils.SendJSONError(w, r, "Budget not found", http.StatusNotFound)
		return
	}

	amountDec, err := decimal.NewFromString(req.Amount)
	if err != nil {
		utils.SendJSONError(w, r, "Invalid amount format", http.StatusBadRequest)
		return
	}
	amount, err := units.AmountToSmallestUnit(amountDec, currency)
	if err != nil {
		utils.SendJSONError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	_, err = database.DB.Exec(`UPDATE budgets SET name = ?, category = ?, amount = ?, period = ? WHERE id = ?`,
		req.Name, req.Category, amount, req.Period, id)
	if err != nil {
		logger.L.Error("Failed to update budget", "id", id, "error", err)
		utils.SendJSONError(w, r, "Failed to update budget", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, r, http.StatusOK, "Budget updated", nil)
}

func (h *BudgetHandler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, r, "Invalid budget ID", http.StatusBadRequest)
		return
	}
	res, err := database.DB.Exec(`DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		logger.L.Error("Failed to delete budget", "id", id, "error", err)
		utils.SendJSONError(w, r, "Failed to delete budget", http.StatusInternalServerError)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		utils.SendJSONError(w, r, "Budget not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

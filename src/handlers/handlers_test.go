package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wealthjourney/backend/src/database"
	"github.com/wealthjourney/backend/src/logger"
	"github.com/wealthjourney/backend/src/models"
	"github.com/wealthjourney/backend/src/services"
	_ "modernc.org/sqlite"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Path    string          `json:"path"`
}

// setupTestRouter points the database layer at a fresh in-memory sqlite,
// applies the schema and returns a router with the full API surface minus
// the external-feed endpoints.
func setupTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	logger.InitLogger("error")

	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../db/migrations/000001_init_schema.up.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	database.DB = db

	investmentService := services.NewInvestmentService()
	walletHandler := NewWalletHandler()
	budgetHandler := NewBudgetHandler()
	investmentHandler := NewInvestmentHandler(investmentService)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/wallets", walletHandler.ListWallets)
		r.Post("/wallets", walletHandler.CreateWallet)
		r.Get("/wallets/{id}", walletHandler.GetWallet)
		r.Put("/wallets/{id}", walletHandler.UpdateWallet)
		r.Delete("/wallets/{id}", walletHandler.DeleteWallet)

		r.Get("/budgets", budgetHandler.ListBudgets)
		r.Post("/budgets", budgetHandler.CreateBudget)

		r.Get("/investments", investmentHandler.ListInvestments)
		r.Post("/investments", investmentHandler.CreateInvestment)
		r.Get("/investments/{id}", investmentHandler.GetInvestment)
		r.Delete("/investments/{id}", investmentHandler.DeleteInvestment)
		r.Get("/investments/{id}/transactions", investmentHandler.ListTransactions)
		r.Post("/investments/{id}/transactions", investmentHandler.RecordTransaction)
		r.Delete("/transactions/{id}", investmentHandler.DeleteTransaction)
	})
	return r
}

func doJSON(t *testing.T, router *chi.Mux, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestWalletLifecycle(t *testing.T) {
	router := setupTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/api/wallets", map[string]string{
		"name":     "Main",
		"currency": "VND",
		"balance":  "1500000",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)

	rec, env = doJSON(t, router, http.MethodGet, "/api/wallets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var wallets []models.Wallet
	require.NoError(t, json.Unmarshal(env.Data, &wallets))
	require.Len(t, wallets, 1)
	assert.Equal(t, "Main", wallets[0].Name)
	// VND has no minor unit, so the stored balance equals the face value.
	assert.Equal(t, int64(1500000), wallets[0].Balance)

	rec, _ = doJSON(t, router, http.MethodPut, "/api/wallets/1", map[string]string{"name": "Primary"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = doJSON(t, router, http.MethodGet, "/api/wallets/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var wallet models.Wallet
	require.NoError(t, json.Unmarshal(env.Data, &wallet))
	assert.Equal(t, "Primary", wallet.Name)

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/wallets/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, env = doJSON(t, router, http.MethodGet, "/api/wallets/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestWalletValidation(t *testing.T) {
	router := setupTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/api/wallets", map[string]string{"currency": "VND"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/wallets", map[string]string{
		"name":    "Bad",
		"balance": "not-a-number",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBudgetDefaultsToWalletCurrency(t *testing.T) {
	router := setupTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/wallets", map[string]string{"name": "Cash", "currency": "USD"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/budgets", map[string]interface{}{
		"wallet_id": 1,
		"name":      "Groceries",
		"category":  "food",
		"amount":    "250.50",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := doJSON(t, router, http.MethodGet, "/api/budgets?wallet_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var budgets []models.Budget
	require.NoError(t, json.Unmarshal(env.Data, &budgets))
	require.Len(t, budgets, 1)
	assert.Equal(t, "USD", budgets[0].Currency)
	assert.Equal(t, int64(25050), budgets[0].Amount) // cents
}

func TestInvestmentCreateAndTransactionFlow(t *testing.T) {
	router := setupTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/wallets", map[string]string{"name": "Broker", "currency": "VND"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := doJSON(t, router, http.MethodPost, "/api/investments", map[string]interface{}{
		"wallet_id":  1,
		"symbol":     "FPT",
		"name":       "FPT Corp",
		"asset_type": "STOCK",
		"quantity":   "100",
		"avg_cost":   "85000",
		"currency":   "VND",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created investmentView
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, int64(1000000), created.Quantity) // 100 shares x10,000
	assert.Equal(t, "100", created.QuantityDecimal)

	// Creation records the opening BUY.
	rec, env = doJSON(t, router, http.MethodGet, "/api/investments/1/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var txs []models.InvestmentTransaction
	require.NoError(t, json.Unmarshal(env.Data, &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionBuy, txs[0].Type)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/investments/1/transactions", map[string]interface{}{
		"type":     "BUY",
		"quantity": "100",
		"price":    "95000",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = doJSON(t, router, http.MethodGet, "/api/investments/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inv investmentView
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	assert.Equal(t, int64(2000000), inv.Quantity)
	assert.Equal(t, int64(90000), inv.AvgCost)

	// Selling more than held is rejected.
	rec, env = doJSON(t, router, http.MethodPost, "/api/investments/1/transactions", map[string]interface{}{
		"type":     "SELL",
		"quantity": "500",
		"price":    "100000",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestInvestmentUnknownAssetTypeRejected(t *testing.T) {
	router := setupTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/wallets", map[string]string{"name": "Broker", "currency": "VND"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := doJSON(t, router, http.MethodPost, "/api/investments", map[string]interface{}{
		"wallet_id":  1,
		"symbol":     "XYZ",
		"asset_type": "REAL_ESTATE",
		"quantity":   "1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "Unknown asset type")
}

func TestMetalInvestmentUsesPurchaseUnit(t *testing.T) {
	router := setupTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/wallets", map[string]string{"name": "Vault", "currency": "VND"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := doJSON(t, router, http.MethodPost, "/api/investments", map[string]interface{}{
		"wallet_id":     1,
		"symbol":        "SJC",
		"name":          "SJC Gold",
		"asset_type":    "GOLD_VND",
		"quantity":      "2",
		"avg_cost":      "75000000",
		"currency":      "VND",
		"purchase_unit": "tael",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created investmentView
	require.NoError(t, json.Unmarshal(env.Data, &created))
	// 2 tael = 75g, stored as grams x10,000.
	assert.Equal(t, int64(750000), created.Quantity)
	assert.Equal(t, "2", created.QuantityDecimal)
	// The 75,000,000/tael price is stored per gram and rendered back per tael.
	assert.Equal(t, int64(2000000), created.AvgCost)
	assert.Equal(t, "75000000", created.AvgCostDecimal)
	// Basis must be 2 tael x 75,000,000, not a gram quantity times a per-tael price.
	assert.Equal(t, int64(150000000), created.CostBasis)
}

func TestDeleteTransactionRecomputesHolding(t *testing.T) {
	router := setupTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/wallets", map[string]string{"name": "Broker", "currency": "VND"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/investments", map[string]interface{}{
		"wallet_id":  1,
		"symbol":     "VNM",
		"asset_type": "STOCK",
		"quantity":   "100",
		"avg_cost":   "60000",
		"currency":   "VND",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := doJSON(t, router, http.MethodPost, "/api/investments/1/transactions", map[string]interface{}{
		"type":     "BUY",
		"quantity": "100",
		"price":    "80000",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var tx models.InvestmentTransaction
	require.NoError(t, json.Unmarshal(env.Data, &tx))

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/transactions/"+strconv.FormatInt(tx.ID, 10), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, env = doJSON(t, router, http.MethodGet, "/api/investments/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inv investmentView
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	assert.Equal(t, int64(1000000), inv.Quantity)
	assert.Equal(t, int64(60000), inv.AvgCost)
}

package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wealthjourney/backend/src/database"
	"github.com/wealthjourney/backend/src/logger"
	"github.com/wealthjourney/backend/src/models"
	"github.com/wealthjourney/backend/src/units"
)

type investmentServiceImpl struct{}

func NewInvestmentService() InvestmentService {
	return &investmentServiceImpl{}
}

// holdingState is the running quantity/cost-basis pair maintained by the
// transaction history.
type holdingState struct {
	quantity int64 // fixed-point per asset type
	avgCost  int64 // per-unit, smallest currency units
}

// applyTransaction folds one transaction into the holding state and returns
// the new state plus the realized P&L of a SELL (zero otherwise). Pure; all
// database work happens in the callers.
func applyTransaction(state holdingState, assetType models.AssetType, tx models.InvestmentTransaction) (holdingState, int64, error) {
	qty := units.StorageToQuantity(state.quantity, assetType)
	txQty := units.StorageToQuantity(tx.Quantity, assetType)

	switch tx.Type {
	case models.TransactionBuy:
		newStored := state.quantity + tx.Quantity
		if newStored == 0 {
			return holdingState{}, 0, nil
		}
		// New average cost = (old basis + purchase cost + fees) / new quantity.
		totalCost := decimal.NewFromInt(state.avgCost).Mul(qty).
			Add(decimal.NewFromInt(tx.Price).Mul(txQty)).
			Add(decimal.NewFromInt(tx.Fees))
		newQty := qty.Add(txQty)
		newAvg := totalCost.Div(newQty).Round(0).IntPart()
		return holdingState{quantity: newStored, avgCost: newAvg}, 0, nil

	case models.TransactionSell:
		if tx.Quantity > state.quantity {
			return state, 0, fmt.Errorf("%w: have %d, selling %d", ErrInsufficientQuantity, state.quantity, tx.Quantity)
		}
		realized := decimal.NewFromInt(tx.Price - state.avgCost).Mul(txQty).Round(0).IntPart() - tx.Fees
		return holdingState{quantity: state.quantity - tx.Quantity, avgCost: state.avgCost}, realized, nil

	case models.TransactionSplit:
		ratio := txQty
		if !ratio.IsPositive() {
			return state, 0, ErrInvalidSplitRatio
		}
		newStored := decimal.NewFromInt(state.quantity).Mul(ratio).Round(0).IntPart()
		newAvg := decimal.NewFromInt(state.avgCost).Div(ratio).Round(0).IntPart()
		return holdingState{quantity: newStored, avgCost: newAvg}, 0, nil

	case models.TransactionDividend:
		return state, 0, nil

	default:
		return state, 0, fmt.Errorf("unsupported transaction type %q", tx.Type)
	}
}

func (s *investmentServiceImpl) CreateInvestment(ctx context.Context, inv models.Investment) (models.Investment, error) {
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	txDB, err := database.DB.Begin()
	if err != nil {
		return models.Investment{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txDB.Rollback()

	res, err := txDB.Exec(`
		INSERT INTO investments (wallet_id, symbol, name, asset_type, quantity, avg_cost, current_price, currency, purchase_unit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.WalletID, inv.Symbol, inv.Name, string(inv.AssetType), inv.Quantity, inv.AvgCost,
		inv.CurrentPrice, inv.Currency, nullableString(inv.PurchaseUnit), inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return models.Investment{}, fmt.Errorf("failed to create investment: %w", err)
	}
	inv.ID, _ = res.LastInsertId()

	// A holding begins life with its first buy; record it so deleting
	// transactions later can replay the full history from zero.
	if inv.Quantity > 0 {
		_, err = txDB.Exec(`
			INSERT INTO investment_transactions (investment_id, type, quantity, price, fees, currency, realized_pnl, transaction_date, created_at)
			VALUES (?, 'BUY', ?, ?, 0, ?, 0, ?, ?)`,
			inv.ID, inv.Quantity, inv.AvgCost, inv.Currency, inv.CreatedAt, inv.CreatedAt)
		if err != nil {
			return models.Investment{}, fmt.Errorf("failed to record initial buy: %w", err)
		}
	}

	if err := txDB.Commit(); err != nil {
		return models.Investment{}, fmt.Errorf("failed to commit investment creation: %w", err)
	}
	logger.L.Info("Investment created", "id", inv.ID, "symbol", inv.Symbol, "assetType", inv.AssetType)
	return inv, nil
}

func (s *investmentServiceImpl) GetInvestment(ctx context.Context, id int64) (models.Investment, error) {
	return getInvestment(database.DB, id)
}

// queryRower lets holding lookups run against either the pool or an open
// write transaction, so read-modify-write paths can read inside their own
// transaction instead of folding from a stale snapshot.
type queryRower interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func getInvestment(q queryRower, id int64) (models.Investment, error) {
	return scanInvestment(q.QueryRow(
		`SELECT id, wallet_id, symbol, name, asset_type, quantity, avg_cost, current_price, currency, purchase_unit, created_at, updated_at
		 FROM investments WHERE id = ?`, id))
}

func (s *investmentServiceImpl) ListInvestments(ctx context.Context, walletID int64) ([]models.Investment, error) {
	query := `SELECT id, wallet_id, symbol, name, asset_type, quantity, avg_cost, current_price, currency, purchase_unit, created_at, updated_at
	          FROM investments`
	args := []interface{}{}
	if walletID != 0 {
		query += ` WHERE wallet_id = ?`
		args = append(args, walletID)
	}
	query += ` ORDER BY symbol ASC, id ASC`

	rows, err := database.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var investments []models.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		investments = append(investments, inv)
	}
	if investments == nil {
		investments = []models.Investment{}
	}
	return investments, rows.Err()
}

func (s *investmentServiceImpl) UpdateInvestment(ctx context.Context, inv models.Investment) error {
	res, err := database.DB.Exec(`
		UPDATE investments SET name = ?, symbol = ?, current_price = ?, purchase_unit = ?, updated_at = ?
		WHERE id = ?`,
		inv.Name, inv.Symbol, inv.CurrentPrice, nullableString(inv.PurchaseUnit), time.Now().UTC(), inv.ID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *investmentServiceImpl) DeleteInvestment(ctx context.Context, id int64) error {
	// Transaction history cascades via the foreign key.
	res, err := database.DB.Exec(`DELETE FROM investments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	logger.L.Info("Investment deleted with its transaction history", "id", id)
	return nil
}

func (s *investmentServiceImpl) RecordTransaction(ctx context.Context, tx models.InvestmentTransaction) (models.InvestmentTransaction, error) {
	txDB, err := database.DB.Begin()
	if err != nil {
		return models.InvestmentTransaction{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txDB.Rollback()

	// Read the holding inside the write transaction: two concurrent posts
	// against the same holding must not fold from the same base state.
	inv, err := getInvestment(txDB, tx.InvestmentID)
	if err != nil {
		return models.InvestmentTransaction{}, err
	}
	if tx.Currency == "" {
		tx.Currency = inv.Currency
	}
	if tx.Currency != inv.Currency {
		return models.InvestmentTransaction{}, fmt.Errorf("%w: transaction in %s, holding in %s", ErrCurrencyMismatch, tx.Currency, inv.Currency)
	}

	state, realized, err := applyTransaction(holdingState{quantity: inv.Quantity, avgCost: inv.AvgCost}, inv.AssetType, tx)
	if err != nil {
		return models.InvestmentTransaction{}, err
	}
	tx.RealizedPnl = realized
	tx.CreatedAt = time.Now().UTC()
	if tx.TransactionDate.IsZero() {
		tx.TransactionDate = tx.CreatedAt
	}

	res, err := txDB.Exec(`
		INSERT INTO investment_transactions (investment_id, type, quantity, price, fees, currency, realized_pnl, transaction_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.InvestmentID, string(tx.Type), tx.Quantity, tx.Price, tx.Fees, tx.Currency, tx.RealizedPnl, tx.TransactionDate, tx.CreatedAt)
	if err != nil {
		return models.InvestmentTransaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}
	tx.ID, _ = res.LastInsertId()

	_, err = txDB.Exec(`UPDATE investments SET quantity = ?, avg_cost = ?, updated_at = ? WHERE id = ?`,
		state.quantity, state.avgCost, tx.CreatedAt, tx.InvestmentID)
	if err != nil {
		return models.InvestmentTransaction{}, fmt.Errorf("failed to update holding: %w", err)
	}

	if err := txDB.Commit(); err != nil {
		return models.InvestmentTransaction{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	logger.L.Info("Investment transaction recorded", "investmentID", tx.InvestmentID, "type", tx.Type, "realizedPnl", tx.RealizedPnl)
	return tx, nil
}

func (s *investmentServiceImpl) ListTransactions(ctx context.Context, investmentID int64) ([]models.InvestmentTransaction, error) {
	rows, err := database.DB.Query(`
		SELECT id, investment_id, type, quantity, price, fees, currency, realized_pnl, transaction_date, created_at
		FROM investment_transactions WHERE investment_id = ?
		ORDER BY transaction_date ASC, id ASC`, investmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.InvestmentTransaction
	for rows.Next() {
		var tx models.InvestmentTransaction
		var txType string
		if err := rows.Scan(&tx.ID, &tx.InvestmentID, &txType, &tx.Quantity, &tx.Price, &tx.Fees,
			&tx.Currency, &tx.RealizedPnl, &tx.TransactionDate, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.Type = models.TransactionType(txType)
		transactions = append(transactions, tx)
	}
	if transactions == nil {
		transactions = []models.InvestmentTransaction{}
	}
	return transactions, rows.Err()
}

func (s *investmentServiceImpl) DeleteTransaction(ctx context.Context, txID int64) error {
	txDB, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txDB.Rollback()

	var investmentID int64
	err = txDB.QueryRow(`SELECT investment_id FROM investment_transactions WHERE id = ?`, txID).Scan(&investmentID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	inv, err := getInvestment(txDB, investmentID)
	if err != nil {
		return err
	}

	if _, err := txDB.Exec(`DELETE FROM investment_transactions WHERE id = ?`, txID); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	// Replay the surviving history from zero to rebuild quantity, cost
	// basis, and the realized P&L of every remaining sell.
	rows, err := txDB.Query(`
		SELECT id, type, quantity, price, fees, currency, transaction_date
		FROM investment_transactions WHERE investment_id = ?
		ORDER BY transaction_date ASC, id ASC`, investmentID)
	if err != nil {
		return fmt.Errorf("failed to load transaction history: %w", err)
	}

	type replayRow struct {
		tx models.InvestmentTransaction
	}
	var history []replayRow
	for rows.Next() {
		var r replayRow
		var txType string
		if err := rows.Scan(&r.tx.ID, &txType, &r.tx.Quantity, &r.tx.Price, &r.tx.Fees, &r.tx.Currency, &r.tx.TransactionDate); err != nil {
			rows.Close()
			return err
		}
		r.tx.Type = models.TransactionType(txType)
		history = append(history, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	state := holdingState{}
	for _, r := range history {
		next, realized, err := applyTransaction(state, inv.AssetType, r.tx)
		if err != nil {
			return fmt.Errorf("history replay failed at transaction %d: %w", r.tx.ID, err)
		}
		if r.tx.Type == models.TransactionSell {
			if _, err := txDB.Exec(`UPDATE investment_transactions SET realized_pnl = ? WHERE id = ?`, realized, r.tx.ID); err != nil {
				return err
			}
		}
		state = next
	}

	if _, err := txDB.Exec(`UPDATE investments SET quantity = ?, avg_cost = ?, updated_at = ? WHERE id = ?`,
		state.quantity, state.avgCost, time.Now().UTC(), investmentID); err != nil {
		return fmt.Errorf("failed to update holding after replay: %w", err)
	}

	if err := txDB.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction deletion: %w", err)
	}
	logger.L.Info("Investment transaction deleted and holding recomputed", "txID", txID, "investmentID", investmentID)
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvestment(row rowScanner) (models.Investment, error) {
	var inv models.Investment
	var assetType string
	var purchaseUnit sql.NullString
	err := row.Scan(&inv.ID, &inv.WalletID, &inv.Symbol, &inv.Name, &assetType, &inv.Quantity,
		&inv.AvgCost, &inv.CurrentPrice, &inv.Currency, &purchaseUnit, &inv.CreatedAt, &inv.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Investment{}, ErrNotFound
	}
	if err != nil {
		return models.Investment{}, err
	}
	inv.AssetType = models.AssetType(assetType)
	inv.PurchaseUnit = purchaseUnit.String
	return inv, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

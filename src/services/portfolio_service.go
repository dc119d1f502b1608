package services

import (
	"context"
	"fmt"

	"github.com/wealthjourney/backend/src/database"
	"github.com/wealthjourney/backend/src/models"
	"github.com/wealthjourney/backend/src/valuation"
)

type portfolioServiceImpl struct {
	investments InvestmentService
	rates       valuation.RateSource
}

func NewPortfolioService(investments InvestmentService, rates valuation.RateSource) PortfolioService {
	return &portfolioServiceImpl{investments: investments, rates: rates}
}

// GetSummary recomputes the portfolio snapshot on demand from the current
// holdings and their full transaction history.
func (s *portfolioServiceImpl) GetSummary(ctx context.Context, displayCurrency string) (valuation.PortfolioSnapshot, error) {
	holdings, err := s.investments.ListInvestments(ctx, 0)
	if err != nil {
		return valuation.PortfolioSnapshot{}, fmt.Errorf("failed to load holdings: %w", err)
	}

	transactions, err := s.loadAllTransactions()
	if err != nil {
		return valuation.PortfolioSnapshot{}, fmt.Errorf("failed to load transaction history: %w", err)
	}

	return valuation.BuildSnapshot(ctx, holdings, transactions, displayCurrency, s.rates)
}

func (s *portfolioServiceImpl) loadAllTransactions() ([]models.InvestmentTransaction, error) {
	rows, err := database.DB.Query(`
		SELECT id, investment_id, type, quantity, price, fees, currency, realized_pnl, transaction_date, created_at
		FROM investment_transactions ORDER BY transaction_date ASC, id ASC`)
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
	return transactions, rows.Err()
}

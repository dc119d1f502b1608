package model

import (
	"database/sql"
	"strings"
	"time"

	"github.com/wealthjourney/backend/src/logger"
)

// DailyPrice is a cached market price for a symbol on a specific day.
type DailyPrice struct {
	Symbol    string
	Date      string // YYYY-MM-DD
	Price     float64
	Currency  string
	UpdatedAt time.Time
}

// GetPriceBySymbolAndDate retrieves a cached price for one symbol on a date.
func GetPriceBySymbolAndDate(db *sql.DB, symbol, date string) (DailyPrice, bool, error) {
	var p DailyPrice
	err := db.QueryRow(
		`SELECT symbol, date, price, currency, updated_at FROM daily_prices WHERE symbol = ? AND date = ?`,
		symbol, date,
	).Scan(&p.Symbol, &p.Date, &p.Price, &p.Currency, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return DailyPrice{}, false, nil
	}
	if err != nil {
		return DailyPrice{}, false, err
	}
	return p, true, nil
}

// GetPricesBySymbolsAndDate retrieves cached prices for a list of symbols on
// a specific date, keyed by symbol.
func GetPricesBySymbolsAndDate(db *sql.DB, symbols []string, date string) (map[string]DailyPrice, error) {
	prices := make(map[string]DailyPrice)
	if len(symbols) == 0 {
		return prices, nil
	}
	query := `SELECT symbol, date, price, currency, updated_at FROM daily_prices WHERE date = ? AND symbol IN (?` + strings.Repeat(",?", len(symbols)-1) + `)`
	args := make([]interface{}, len(symbols)+1)
	args[0] = date
	for i, symbol := range symbols {
		args[i+1] = symbol
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p DailyPrice
		if err := rows.Scan(&p.Symbol, &p.Date, &p.Price, &p.Currency, &p.UpdatedAt); err != nil {
			return nil, err
		}
		prices[p.Symbol] = p
	}
	return prices, rows.Err()
}

// InsertOrUpdatePrice saves a price to the cache, updating if one already
// exists for that day.
func InsertOrUpdatePrice(db *sql.DB, price DailyPrice) error {
	// Using ON CONFLICT (UPSERT) is efficient and safe for concurrent operations.
	query := `
        INSERT INTO daily_prices (symbol, date, price, currency, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(symbol, date) DO UPDATE SET
            price = excluded.price,
            currency = excluded.currency,
            updated_at = excluded.updated_at;
    `
	_, err := db.Exec(query, price.Symbol, price.Date, price.Price, price.Currency, time.Now())
	if err != nil {
		logger.L.Error("Failed to insert or update daily price", "symbol", price.Symbol, "date", price.Date, "error", err)
	}
	return err
}

package models

import (
	"errors"
	"fmt"
)

// ErrCurrencyMismatch is returned when two monetary amounts in different
// currencies are combined without an explicit prior conversion step.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// MonetaryAmount is an immutable monetary value in the smallest unit of its
// currency (cents for USD, dong for VND). No floating-point currency values
// are persisted or transmitted.
type MonetaryAmount struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewMonetaryAmount creates a MonetaryAmount from a smallest-unit integer.
func NewMonetaryAmount(amount int64, currency string) MonetaryAmount {
	return MonetaryAmount{Amount: amount, Currency: currency}
}

// Add returns the sum of two amounts. Both operands must share a currency;
// cross-currency sums must go through the exchange adapter first.
func (m MonetaryAmount) Add(n MonetaryAmount) (MonetaryAmount, error) {
	if m.Currency != n.Currency {
		return MonetaryAmount{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency, n.Currency)
	}
	return MonetaryAmount{Amount: m.Amount + n.Amount, Currency: m.Currency}, nil
}

// Sub returns the difference of two amounts in the same currency.
func (m MonetaryAmount) Sub(n MonetaryAmount) (MonetaryAmount, error) {
	if m.Currency != n.Currency {
		return MonetaryAmount{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.Currency, n.Currency)
	}
	return MonetaryAmount{Amount: m.Amount - n.Amount, Currency: m.Currency}, nil
}

// Neg returns the amount with its sign flipped.
func (m MonetaryAmount) Neg() MonetaryAmount {
	return MonetaryAmount{Amount: -m.Amount, Currency: m.Currency}
}

// IsZero reports whether the amount is exactly zero.
func (m MonetaryAmount) IsZero() bool {
	return m.Amount == 0
}

// IsNegative reports whether the amount is below zero.
func (m MonetaryAmount) IsNegative() bool {
	return m.Amount < 0
}

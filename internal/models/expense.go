package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Defaults applied to expense fields the client leaves empty.
const (
	DefaultCurrency      = "USD"
	DefaultCategory      = "uncategorized"
	DefaultPaymentMethod = "cash"
)

// Expense represents a financial expense record owned by exactly one user.
type Expense struct {
	ID            int64           `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Category      string          `json:"category"`
	Description   *string         `json:"description"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CreatedAt     time.Time       `json:"created_at"`
	PaymentMethod string          `json:"payment_method"`
	OwnerID       int64           `json:"-"`
}

// ExpenseInput holds the client-supplied fields of an expense.
// Zero values mean "not provided" and are replaced by defaults.
type ExpenseInput struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Category      string          `json:"category"`
	Description   *string         `json:"description"`
	OccurredAt    *time.Time      `json:"occurred_at"`
	PaymentMethod string          `json:"payment_method"`
}

// ExpenseFilter narrows an owner's expenses. Nil fields impose no constraint.
type ExpenseFilter struct {
	Category  *string
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// CategoryTotal aggregates an owner's spending in one category and currency.
type CategoryTotal struct {
	Category string          `json:"category"`
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AccessToken is returned by a successful login.
type AccessToken struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

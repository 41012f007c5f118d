package tracker

import (
	"strings"
	"time"
	"unicode/utf8"

	"expense-api/internal/models"

	"github.com/shopspring/decimal"
)

// Field limits mirror the column sizes of the expenses table.
const (
	minUsernameLen    = 3
	maxUsernameLen    = 50
	maxPasswordBytes  = 72 // bcrypt ignores anything longer
	maxCategoryLen    = 50
	maxPaymentLen     = 50
	maxDescriptionLen = 255
)

var maxAmount = decimal.New(1, 8) // NUMERIC(10,2)

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) != username {
		return invalid("username", "must not start or end with whitespace")
	}
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return invalid("username", "must be between %d and %d characters", minUsernameLen, maxUsernameLen)
	}
	if password == "" {
		return invalid("password", "is required")
	}
	if len(password) > maxPasswordBytes {
		return invalid("password", "must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}

func validateAmount(field string, a decimal.Decimal) error {
	if !a.IsPositive() {
		return invalid(field, "must be greater than zero")
	}
	if !a.Equal(a.Round(2)) {
		return invalid(field, "must have at most 2 decimal places")
	}
	if !a.LessThan(maxAmount) {
		return invalid(field, "must be less than %s", maxAmount)
	}
	return nil
}

// applyInput validates in and copies it onto e, filling defaults.
// A nil OccurredAt leaves e.OccurredAt unchanged.
func applyInput(e *models.Expense, in models.ExpenseInput) error {
	if err := validateAmount("amount", in.Amount); err != nil {
		return err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}
	if !isCurrencyCode(currency) {
		return invalid("currency", "must be a 3-letter code")
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = models.DefaultCategory
	}
	if utf8.RuneCountInString(category) > maxCategoryLen {
		return invalid("category", "must be at most %d characters", maxCategoryLen)
	}

	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = models.DefaultPaymentMethod
	}
	if utf8.RuneCountInString(method) > maxPaymentLen {
		return invalid("payment_method", "must be at most %d characters", maxPaymentLen)
	}

	if in.Description != nil && utf8.RuneCountInString(*in.Description) > maxDescriptionLen {
		return invalid("description", "must be at most %d characters", maxDescriptionLen)
	}

	e.Amount = in.Amount.Round(2)
	e.Currency = currency
	e.Category = category
	e.PaymentMethod = method
	e.Description = in.Description
	if in.OccurredAt != nil {
		e.OccurredAt = in.OccurredAt.UTC().Truncate(time.Microsecond)
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func validateFilter(f models.ExpenseFilter) error {
	if f.MinAmount != nil && f.MinAmount.IsNegative() {
		return invalid("min_amount", "must not be negative")
	}
	if f.MaxAmount != nil && f.MaxAmount.IsNegative() {
		return invalid("max_amount", "must not be negative")
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		return invalid("min_amount", "must not exceed max_amount")
	}
	return nil
}

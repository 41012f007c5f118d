package tracker

import (
	"context"
	"fmt"
	"time"

	"expense-api/internal/auth"
	"expense-api/internal/models"

	"github.com/shopspring/decimal"
)

// CategoryShare is a category total with its share of the currency total.
type CategoryShare struct {
	models.CategoryTotal
	Percentage float64 `json:"percentage"`
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// MonthlyStatistics summarizes one month of an owner's spending.
type MonthlyStatistics struct {
	YearMonth
	MonthName      string                     `json:"month_name"`
	Totals         map[string]decimal.Decimal `json:"totals"`
	Categories     []CategoryShare            `json:"categories"`
	Expenses       []models.Expense           `json:"expenses"`
	Prev           YearMonth                  `json:"prev"`
	Next           YearMonth                  `json:"next"`
	IsCurrentMonth bool                       `json:"is_current_month"`
}

// Statistics returns owner's per-category totals and expenses for the given
// month. Totals are kept per currency; amounts in different currencies are
// never added together.
func (s *Service) Statistics(ctx context.Context, owner *models.User, year, month int) (*MonthlyStatistics, error) {
	if owner == nil {
		return nil, auth.ErrUnauthenticated
	}
	if month < 1 || month > 12 {
		return nil, invalid("month", "must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return nil, invalid("year", "must be between 1 and 9999")
	}

	categoryTotals, err := s.store.GetCategoryTotalsByMonth(ctx, owner.ID, year, month)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	expenses, err := s.store.GetExpensesByMonth(ctx, owner.ID, year, month)
	if err != nil {
		return nil, fmt.Errorf("month expenses: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	for _, ct := range categoryTotals {
		totals[ct.Currency] = totals[ct.Currency].Add(ct.Total)
	}

	categories := make([]CategoryShare, 0, len(categoryTotals))
	for _, ct := range categoryTotals {
		percentage := 0.0
		if total := totals[ct.Currency]; total.IsPositive() {
			percentage, _ = ct.Total.Div(total).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		}
		categories = append(categories, CategoryShare{CategoryTotal: ct, Percentage: percentage})
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)
	now := s.now().UTC()

	return &MonthlyStatistics{
		YearMonth:      YearMonth{Year: year, Month: month},
		MonthName:      first.Month().String(),
		Totals:         totals,
		Categories:     categories,
		Expenses:       expenses,
		Prev:           YearMonth{Year: prev.Year(), Month: int(prev.Month())},
		Next:           YearMonth{Year: next.Year(), Month: int(next.Month())},
		IsCurrentMonth: year == now.Year() && month == int(now.Month()),
	}, nil
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"expense-api/internal/tracker"
)

// StatsCategoryItem represents a category with its spending statistics.
type StatsCategoryItem struct {
	Category   string      `json:"category"`
	Currency   string      `json:"currency"`
	Total      json.Number `json:"total"`
	Count      int         `json:"count"`
	Percentage float64     `json:"percentage"`
}

// StatsView is the response of GET /statistics.
type StatsView struct {
	Year           int                    `json:"year"`
	Month          int                    `json:"month"`
	MonthName      string                 `json:"month_name"`
	Totals         map[string]json.Number `json:"totals"`
	Categories     []StatsCategoryItem    `json:"categories"`
	Expenses       []expenseView          `json:"expenses"`
	Prev           tracker.YearMonth      `json:"prev"`
	Next           tracker.YearMonth      `json:"next"`
	IsCurrentMonth bool                   `json:"is_current_month"`
}

// Statistics returns per-category totals for a month, defaulting to the
// current one.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	year, err := intParam(r, "year", now.Year())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	month, err := intParam(r, "month", int(now.Month()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	stats, err := h.service.Statistics(r.Context(), GetUserFromContext(r), year, month)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	totals := make(map[string]json.Number, len(stats.Totals))
	for currency, total := range stats.Totals {
		totals[currency] = money(total)
	}
	categories := make([]StatsCategoryItem, 0, len(stats.Categories))
	for _, c := range stats.Categories {
		categories = append(categories, StatsCategoryItem{
			Category:   c.Category,
			Currency:   c.Currency,
			Total:      money(c.Total),
			Count:      c.Count,
			Percentage: c.Percentage,
		})
	}

	writeJSON(w, http.StatusOK, StatsView{
		Year:           stats.Year,
		Month:          stats.Month,
		MonthName:      stats.MonthName,
		Totals:         totals,
		Categories:     categories,
		Expenses:       newExpenseViews(stats.Expenses),
		Prev:           stats.Prev,
		Next:           stats.Next,
		IsCurrentMonth: stats.IsCurrentMonth,
	})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &tracker.ValidationError{Field: name, Message: "must be an integer"}
	}
	return v, nil
}

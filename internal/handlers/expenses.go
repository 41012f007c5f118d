package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"expense-api/internal/models"
	"expense-api/internal/tracker"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// expenseRequest is the body of POST /expenses and PUT /expenses/{id}.
type expenseRequest struct {
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	Category      string      `json:"category"`
	Description   *string     `json:"description"`
	OccurredAt    *time.Time  `json:"occurred_at"`
	PaymentMethod string      `json:"payment_method"`
}

func (req expenseRequest) input() (models.ExpenseInput, error) {
	if req.Amount == "" {
		return models.ExpenseInput{}, &tracker.ValidationError{Field: "amount", Message: "is required"}
	}
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		return models.ExpenseInput{}, &tracker.ValidationError{Field: "amount", Message: "must be a number"}
	}
	return models.ExpenseInput{
		Amount:        amount,
		Currency:      req.Currency,
		Category:      req.Category,
		Description:   req.Description,
		OccurredAt:    req.OccurredAt,
		PaymentMethod: req.PaymentMethod,
	}, nil
}

// expenseView is the wire form of an expense. Amounts are written as JSON
// numbers with exactly two fraction digits.
type expenseView struct {
	ID            int64       `json:"id"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	Category      string      `json:"category"`
	Description   *string     `json:"description"`
	OccurredAt    time.Time   `json:"occurred_at"`
	CreatedAt     time.Time   `json:"created_at"`
	PaymentMethod string      `json:"payment_method"`
}

func newExpenseView(e *models.Expense) expenseView {
	return expenseView{
		ID:            e.ID,
		Amount:        money(e.Amount),
		Currency:      e.Currency,
		Category:      e.Category,
		Description:   e.Description,
		OccurredAt:    e.OccurredAt,
		CreatedAt:     e.CreatedAt,
		PaymentMethod: e.PaymentMethod,
	}
}

func newExpenseViews(expenses []models.Expense) []expenseView {
	views := make([]expenseView, 0, len(expenses))
	for i := range expenses {
		views = append(views, newExpenseView(&expenses[i]))
	}
	return views
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// CreateExpense records an expense for the authenticated user.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := h.readExpense(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	expense, err := h.service.CreateExpense(r.Context(), GetUserFromContext(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newExpenseView(expense))
}

// ListExpenses returns every expense of the authenticated user.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.service.ListExpenses(r.Context(), GetUserFromContext(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseViews(expenses))
}

// FilterExpenses returns the authenticated user's expenses matching the
// category, min_amount and max_amount query parameters.
func (h *Handlers) FilterExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	expenses, err := h.service.FilterExpenses(r.Context(), GetUserFromContext(r), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseViews(expenses))
}

// GetExpense returns one expense of the authenticated user.
func (h *Handlers) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := expenseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	expense, err := h.service.GetExpense(r.Context(), GetUserFromContext(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(expense))
}

// UpdateExpense replaces the editable fields of one of the authenticated
// user's expenses.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := expenseID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := h.readExpense(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	expense, err := h.service.UpdateExpense(r.Context(), GetUserFromContext(r), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(expense))
}

func (h *Handlers) readExpense(w http.ResponseWriter, r *http.Request) (models.ExpenseInput, error) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return models.ExpenseInput{}, err
	}
	return req.input()
}

func expenseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, &tracker.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return id, nil
}

func parseFilter(r *http.Request) (models.ExpenseFilter, error) {
	q := r.URL.Query()
	var f models.ExpenseFilter

	if category := strings.TrimSpace(q.Get("category")); category != "" {
		f.Category = &category
	}
	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{
		{"min_amount", &f.MinAmount},
		{"max_amount", &f.MaxAmount},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return models.ExpenseFilter{}, &tracker.ValidationError{Field: p.name, Message: "must be a number"}
		}
		*p.dst = &d
	}
	return f, nil
}

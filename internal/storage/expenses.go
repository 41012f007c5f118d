package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"expense-api/internal/models"

	"github.com/shopspring/decimal"
)

// maxStoredAmount is the exclusive upper bound of any stored amount.
var maxStoredAmount = decimal.New(1, 8)

const expenseColumns = "id, owner_id, amount_cents, currency, category, description, occurred_at, created_at, payment_method"

// expenseRow is the persisted shape of an expense; amounts are stored in cents.
type expenseRow struct {
	ID            int64          `db:"id"`
	OwnerID       int64          `db:"owner_id"`
	AmountCents   int64          `db:"amount_cents"`
	Currency      string         `db:"currency"`
	Category      string         `db:"category"`
	Description   sql.NullString `db:"description"`
	OccurredAt    time.Time      `db:"occurred_at"`
	CreatedAt     time.Time      `db:"created_at"`
	PaymentMethod string         `db:"payment_method"`
}

func (r expenseRow) toModel() models.Expense {
	e := models.Expense{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		Amount:        decimal.New(r.AmountCents, -2),
		Currency:      r.Currency,
		Category:      r.Category,
		OccurredAt:    r.OccurredAt,
		CreatedAt:     r.CreatedAt,
		PaymentMethod: r.PaymentMethod,
	}
	if r.Description.Valid {
		desc := r.Description.String
		e.Description = &desc
	}
	return e
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// CreateExpense inserts e and sets its ID. The insert and ID assignment
// happen in one statement.
func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	return db.conn.QueryRowxContext(ctx,
		db.conn.Rebind(`INSERT INTO expenses
			(owner_id, amount_cents, currency, category, description, occurred_at, created_at, payment_method)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		e.OwnerID, toCents(e.Amount), e.Currency, e.Category, nullString(e.Description),
		e.OccurredAt.UTC(), e.CreatedAt.UTC(), e.PaymentMethod,
	).Scan(&e.ID)
}

// GetExpense retrieves a single expense by ID if it belongs to ownerID.
func (db *DB) GetExpense(ctx context.Context, ownerID, id int64) (*models.Expense, error) {
	var row expenseRow
	err := db.conn.GetContext(ctx, &row,
		db.conn.Rebind("SELECT "+expenseColumns+" FROM expenses WHERE id = ? AND owner_id = ?"),
		id, ownerID,
	)
	if err != nil {
		return nil, notFound(err)
	}
	e := row.toModel()
	return &e, nil
}

// UpdateExpense updates the mutable fields of an existing expense.
// ID, owner and creation time are never changed.
func (db *DB) UpdateExpense(ctx context.Context, e *models.Expense) error {
	res, err := db.conn.ExecContext(ctx,
		db.conn.Rebind(`UPDATE expenses
			SET amount_cents = ?, currency = ?, category = ?, description = ?, occurred_at = ?, payment_method = ?
			WHERE id = ? AND owner_id = ?`),
		toCents(e.Amount), e.Currency, e.Category, nullString(e.Description),
		e.OccurredAt.UTC(), e.PaymentMethod, e.ID, e.OwnerID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpenses retrieves all expenses of ownerID ordered by ID.
func (db *DB) ListExpenses(ctx context.Context, ownerID int64) ([]models.Expense, error) {
	return db.FilterExpenses(ctx, ownerID, models.ExpenseFilter{})
}

// FilterExpenses retrieves the expenses of ownerID matching every non-nil
// field of f. Amount bounds are inclusive.
func (db *DB) FilterExpenses(ctx context.Context, ownerID int64, f models.ExpenseFilter) ([]models.Expense, error) {
	where := []string{"owner_id = ?"}
	args := []any{ownerID}

	if f.Category != nil {
		where = append(where, "category = ?")
		args = append(args, *f.Category)
	}
	// Bounds beyond any storable amount are resolved here; converting them to
	// cents would overflow int64.
	if f.MinAmount != nil {
		if !f.MinAmount.LessThan(maxStoredAmount) {
			return []models.Expense{}, nil
		}
		where = append(where, "amount_cents >= ?")
		args = append(args, f.MinAmount.Shift(2).Ceil().IntPart())
	}
	if f.MaxAmount != nil && f.MaxAmount.LessThan(maxStoredAmount) {
		where = append(where, "amount_cents <= ?")
		args = append(args, f.MaxAmount.Shift(2).Floor().IntPart())
	}

	query := "SELECT " + expenseColumns + " FROM expenses WHERE " + strings.Join(where, " AND ") + " ORDER BY id"
	return db.selectExpenses(ctx, query, args...)
}

// GetExpensesByMonth retrieves the expenses of ownerID that occurred in the
// given month (UTC), ordered by occurrence descending.
func (db *DB) GetExpensesByMonth(ctx context.Context, ownerID int64, year, month int) ([]models.Expense, error) {
	start, end := monthBounds(year, month)
	return db.selectExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE owner_id = ? AND occurred_at >= ? AND occurred_at < ? ORDER BY occurred_at DESC, id DESC",
		ownerID, start, end,
	)
}

// GetCategoryTotalsByMonth sums the expenses of ownerID per category and
// currency for the given month (UTC), largest total first.
func (db *DB) GetCategoryTotalsByMonth(ctx context.Context, ownerID int64, year, month int) ([]models.CategoryTotal, error) {
	start, end := monthBounds(year, month)

	var rows []struct {
		Category string `db:"category"`
		Currency string `db:"currency"`
		Cents    int64  `db:"total_cents"`
		Count    int    `db:"count"`
	}
	err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(`
		SELECT category, currency, SUM(amount_cents) AS total_cents, COUNT(*) AS count
		FROM expenses
		WHERE owner_id = ? AND occurred_at >= ? AND occurred_at < ?
		GROUP BY category, currency
		ORDER BY total_cents DESC, category, currency`),
		ownerID, start, end,
	)
	if err != nil {
		return nil, err
	}

	totals := make([]models.CategoryTotal, 0, len(rows))
	for _, r := range rows {
		totals = append(totals, models.CategoryTotal{
			Category: r.Category,
			Currency: r.Currency,
			Total:    decimal.New(r.Cents, -2),
			Count:    r.Count,
		})
	}
	return totals, nil
}

func (db *DB) selectExpenses(ctx context.Context, query string, args ...any) ([]models.Expense, error) {
	var rows []expenseRow
	if err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(query), args...); err != nil {
		return nil, err
	}

	expenses := make([]models.Expense, 0, len(rows))
	for _, r := range rows {
		expenses = append(expenses, r.toModel())
	}
	return expenses, nil
}

func monthBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

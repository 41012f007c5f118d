// Package tracker implements account registration, login and the
// owner-scoped expense operations.
//
// Every expense method takes the authenticated *models.User resolved by
// auth.Resolver; the owner id used in queries always comes from that user and
// never from client input.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expense-api/internal/auth"
	"expense-api/internal/models"
	"expense-api/internal/storage"
)

// Store is the persistence the service needs.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string, createdAt time.Time) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateExpense(ctx context.Context, e *models.Expense) error
	GetExpense(ctx context.Context, ownerID, id int64) (*models.Expense, error)
	UpdateExpense(ctx context.Context, e *models.Expense) error
	ListExpenses(ctx context.Context, ownerID int64) ([]models.Expense, error)
	FilterExpenses(ctx context.Context, ownerID int64, f models.ExpenseFilter) ([]models.Expense, error)
	GetExpensesByMonth(ctx context.Context, ownerID int64, year, month int) ([]models.Expense, error)
	GetCategoryTotalsByMonth(ctx context.Context, ownerID int64, year, month int) ([]models.CategoryTotal, error)
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID int64) (string, time.Time, error)
}

// Service holds dependencies for account and expense operations.
type Service struct {
	store  Store
	hasher Hasher
	tokens TokenIssuer
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the time source used for server-assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service instance.
func NewService(store Store, hasher Hasher, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{store: store, hasher: hasher, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, hash, s.timestamp())
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateUsername) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks credentials and issues an access token. Unknown usernames and
// wrong passwords produce the same ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*models.AccessToken, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &models.AccessToken{Token: token, TokenType: "bearer", ExpiresAt: expiresAt}, nil
}

// CreateExpense stores a new expense owned by owner and returns it with all
// server-assigned fields set.
func (s *Service) CreateExpense(ctx context.Context, owner *models.User, in models.ExpenseInput) (*models.Expense, error) {
	if owner == nil {
		return nil, auth.ErrUnauthenticated
	}

	now := s.timestamp()
	e := &models.Expense{
		OwnerID:    owner.ID,
		CreatedAt:  now,
		OccurredAt: now,
	}
	if err := applyInput(e, in); err != nil {
		return nil, err
	}

	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	return e, nil
}

// GetExpense returns one of owner's expenses. Expenses of other users are
// reported as ErrNotFound.
func (s *Service) GetExpense(ctx context.Context, owner *models.User, id int64) (*models.Expense, error) {
	if owner == nil {
		return nil, auth.ErrUnauthenticated
	}
	e, err := s.store.GetExpense(ctx, owner.ID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// UpdateExpense replaces the client-editable fields of one of owner's expenses.
// Omitting occurred_at keeps the stored value.
func (s *Service) UpdateExpense(ctx context.Context, owner *models.User, id int64, in models.ExpenseInput) (*models.Expense, error) {
	e, err := s.GetExpense(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := applyInput(e, in); err != nil {
		return nil, err
	}

	if err := s.store.UpdateExpense(ctx, e); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update expense: %w", err)
	}
	return e, nil
}

// ListExpenses returns all of owner's expenses ordered by id.
func (s *Service) ListExpenses(ctx context.Context, owner *models.User) ([]models.Expense, error) {
	if owner == nil {
		return nil, auth.ErrUnauthenticated
	}
	expenses, err := s.store.ListExpenses(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// FilterExpenses returns owner's expenses matching every predicate set in f.
func (s *Service) FilterExpenses(ctx context.Context, owner *models.User, f models.ExpenseFilter) ([]models.Expense, error) {
	if owner == nil {
		return nil, auth.ErrUnauthenticated
	}
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	expenses, err := s.store.FilterExpenses(ctx, owner.ID, f)
	if err != nil {
		return nil, fmt.Errorf("filter expenses: %w", err)
	}
	return expenses, nil
}

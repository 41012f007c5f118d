package storage

import (
	"context"
	"time"

	"expense-api/internal/models"
)

const userColumns = "id, username, password_hash, created_at"

// CreateUser inserts a new user. The unique index on username decides
// conflicts, so concurrent registrations of one name cannot both succeed.
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string, createdAt time.Time) (*models.User, error) {
	u := models.User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt.UTC(),
	}

	err := db.conn.QueryRowxContext(ctx,
		db.conn.Rebind("INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING id"),
		u.Username, u.PasswordHash, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := db.conn.GetContext(ctx, &u,
		db.conn.Rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetUserByUsername retrieves a user by exact, case-sensitive username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := db.conn.GetContext(ctx, &u,
		db.conn.Rebind("SELECT "+userColumns+" FROM users WHERE username = ?"), username)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.GetContext(ctx, &count, "SELECT COUNT(*) FROM users")
	return count, err
}

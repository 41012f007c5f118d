package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"expense-api/internal/models"
	"expense-api/internal/storage"
)

// ErrAuthentication matches every identity resolution failure via errors.Is.
var ErrAuthentication = errors.New("authentication failed")

// authError is a resolution failure. Clients only ever see a generic 401;
// the reason is kept for logs and metrics.
type authError struct {
	msg    string
	reason string
}

func (e *authError) Error() string { return e.msg }

func (e *authError) Is(target error) bool { return target == ErrAuthentication }

var (
	ErrUnauthenticated = &authError{msg: "not authenticated", reason: "missing_token"}
	ErrInvalidToken    = &authError{msg: "invalid token", reason: "invalid_token"}
	ErrTokenExpired    = &authError{msg: "token expired", reason: "token_expired"}
	ErrUserNotFound    = &authError{msg: "user not found", reason: "user_not_found"}
)

// Reason returns a short label for an authentication failure, or "" if err is not one.
func Reason(err error) string {
	var ae *authError
	if errors.As(err, &ae) {
		return ae.reason
	}
	return ""
}

// UserFinder looks up users by id. Implementations return storage.ErrNotFound
// for unknown ids.
type UserFinder interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Resolver turns a presented token into the user making the request.
type Resolver struct {
	tokens *TokenService
	users  UserFinder
}

// NewResolver creates a Resolver.
func NewResolver(tokens *TokenService, users UserFinder) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve validates rawToken and loads its user. It fails closed: any
// error means no identity.
func (r *Resolver) Resolve(ctx context.Context, rawToken string) (*models.User, error) {
	if rawToken == "" {
		return nil, ErrUnauthenticated
	}

	userID, err := r.tokens.Verify(rawToken)
	switch {
	case errors.Is(err, ErrExpiredToken):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := r.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return user, nil
}

// ResolveRequest resolves the bearer token carried by req.
func (r *Resolver) ResolveRequest(req *http.Request) (*models.User, error) {
	return r.Resolve(req.Context(), BearerToken(req))
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// It returns "" when the header is absent or uses another scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

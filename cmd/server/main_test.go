package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expense-api/internal/auth"
	"expense-api/internal/config"
	"expense-api/internal/handlers"
	"expense-api/internal/storage"
	"expense-api/internal/tracker"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(t *testing.T) (*storage.DB, *tracker.Service, *auth.TokenService) {
	t.Helper()
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err, "failed to create database")
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService([]byte("server-test-secret-server-test-s"), time.Minute)
	require.NoError(t, err)
	return db, tracker.NewService(db, auth.NewPasswordHasher(bcrypt.MinCost), tokens), tokens
}

func TestSetupRouter(t *testing.T) {
	db, svc, tokens := newTestService(t)
	h := handlers.NewHandlers(svc, auth.NewResolver(tokens, db), db, quietLogger())
	mux := setupRouter(h, quietLogger())

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{
			name:       "Root returns welcome",
			method:     "GET",
			path:       "/",
			wantStatus: http.StatusOK,
		},
		{
			name:       "Health check",
			method:     "GET",
			path:       "/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "Metrics exposed",
			method:     "GET",
			path:       "/metrics",
			wantStatus: http.StatusOK,
		},
		{
			name:       "List Expenses requires auth",
			method:     "GET",
			path:       "/expenses",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Statistics requires auth",
			method:     "GET",
			path:       "/statistics",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Unknown route",
			method:     "GET",
			path:       "/nope",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Wrong method",
			method:     "DELETE",
			path:       "/expenses",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code,
				"%s %s returned unexpected status", tt.method, tt.path)
		})
	}
}

func TestRouterServesRegistration(t *testing.T) {
	db, svc, tokens := newTestService(t)
	mux := setupRouter(handlers.NewHandlers(svc, auth.NewResolver(tokens, db), db, quietLogger()), quietLogger())

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"username":"alice","password":"secret"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	db, svc, _ := newTestService(t)
	cfg := &config.Config{AdminUser: "admin", AdminPassword: "admin-pass"}

	require.NoError(t, bootstrapAdmin(ctx, db, svc, cfg, quietLogger()))
	count, err := db.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A second start must not fail on the existing account.
	require.NoError(t, bootstrapAdmin(ctx, db, svc, cfg, quietLogger()))

	_, err = svc.Login(ctx, "admin", "admin-pass")
	assert.NoError(t, err)
}

func TestBootstrapAdminSkippedWhenUsersExist(t *testing.T) {
	ctx := context.Background()
	db, svc, _ := newTestService(t)
	_, err := svc.Register(ctx, "alice", "secret")
	require.NoError(t, err)

	cfg := &config.Config{AdminUser: "admin", AdminPassword: "admin-pass"}
	require.NoError(t, bootstrapAdmin(ctx, db, svc, cfg, quietLogger()))

	count, err := db.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

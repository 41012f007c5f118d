// Package handlers exposes the tracker service as a JSON HTTP API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"expense-api/internal/auth"
	"expense-api/internal/logging"
	"expense-api/internal/metrics"
	"expense-api/internal/models"
	"expense-api/internal/tracker"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Context key type to avoid collisions.
type contextKey string

// UserContextKey is the context key for the authenticated user.
const UserContextKey contextKey = "user"

const maxBodyBytes = 1 << 20

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	service  *tracker.Service
	resolver *auth.Resolver
	db       Pinger
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *tracker.Service, resolver *auth.Resolver, db Pinger, logger logrus.FieldLogger) *Handlers {
	return &Handlers{
		service:  service,
		resolver: resolver,
		db:       db,
		logger:   logger,
		now:      time.Now,
	}
}

// Routes registers the API endpoints on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Post("/users", h.Register)
	r.Post("/token", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Get("/users/me", h.Me)
		r.Post("/expenses", h.CreateExpense)
		r.Get("/expenses", h.ListExpenses)
		r.Get("/expenses/filter", h.FilterExpenses)
		r.Get("/expenses/{id}", h.GetExpense)
		r.Put("/expenses/{id}", h.UpdateExpense)
		r.Get("/statistics", h.Statistics)
	})
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// AuthMiddleware resolves the bearer token of every request and rejects the
// request with 401 unless it identifies an existing user.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.resolver.ResolveRequest(r)
		if err != nil {
			if reason := auth.Reason(err); reason != "" {
				metrics.RecordAuthFailure(reason)
				logging.FromRequest(h.logger, r).WithField("reason", reason).Warn("authentication rejected")
			}
			h.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Root returns a welcome message.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Expense Tracker API"})
}

// Health reports whether the service and its database are up.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			logging.FromRequest(h.logger, r).WithError(err).Error("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a user account.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.service.Register(r.Context(), in.Username, in.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	logging.FromRequest(h.logger, r).WithField("user_id", user.ID).Info("user registered")
	writeJSON(w, http.StatusCreated, user)
}

// Login exchanges a username and password for an access token. It accepts a
// JSON body or an application/x-www-form-urlencoded form.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if isForm(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			h.writeError(w, r, errBadRequest)
			return
		}
		in.Username = r.PostFormValue("username")
		in.Password = r.PostFormValue("password")
	} else if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.service.Login(r.Context(), in.Username, in.Password)
	metrics.RecordLogin(err == nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// Me returns the authenticated user.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	if user == nil {
		h.writeError(w, r, auth.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

var errBadRequest = errors.New("malformed request body")

func isForm(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && (ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data")
}

// decodeJSON reads a single JSON object from the request body. Syntax errors
// map to errBadRequest and type mismatches to a *tracker.ValidationError.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &tracker.ValidationError{Field: typeErr.Field, Message: "has the wrong type"}
		}
		var timeErr *time.ParseError
		if errors.As(err, &timeErr) {
			return &tracker.ValidationError{Field: "occurred_at", Message: "must be an RFC 3339 timestamp"}
		}
		return errBadRequest
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps service errors to HTTP statuses. Unexpected errors are
// logged and reported with a generic message.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *tracker.ValidationError
	switch {
	case errors.Is(err, auth.ErrAuthentication):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "could not validate credentials"})
	case errors.Is(err, tracker.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, tracker.ErrDuplicateUsername):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, tracker.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: verr.Error()})
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		logging.FromRequest(h.logger, r).WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

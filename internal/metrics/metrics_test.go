package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/expenses/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := httpRequests.WithLabelValues("GET", "/expenses/{id}", "404")
	before := testutil.ToFloat64(counter)

	for _, path := range []string{"/expenses/1", "/expenses/2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestRecordAuthFailure(t *testing.T) {
	before := testutil.ToFloat64(authFailures.WithLabelValues("token_expired"))
	RecordAuthFailure("token_expired")
	assert.Equal(t, before+1, testutil.ToFloat64(authFailures.WithLabelValues("token_expired")))

	beforeUnknown := testutil.ToFloat64(authFailures.WithLabelValues("unknown"))
	RecordAuthFailure("")
	assert.Equal(t, beforeUnknown+1, testutil.ToFloat64(authFailures.WithLabelValues("unknown")))
}

func TestRecordLogin(t *testing.T) {
	before := testutil.ToFloat64(logins.WithLabelValues("failure"))
	RecordLogin(false)
	assert.Equal(t, before+1, testutil.ToFloat64(logins.WithLabelValues("failure")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordLogin(true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "expense_api_auth_logins_total"))
}

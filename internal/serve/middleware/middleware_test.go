package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellar/stellar-anchor-backend/internal/monitor"
)

func Test_RecoverHandler(t *testing.T) {
	handler := RecoverHandler(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		panic("test panic")
	}))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"An internal error occurred while processing this request.","code":"error"}`, rr.Body.String())
}

func Test_RecoverHandler_doesNotRecoverAbortHandler(t *testing.T) {
	handler := RecoverHandler(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rr := httptest.NewRecorder()
	assert.PanicsWithError(t, http.ErrAbortHandler.Error(), func() {
		handler.ServeHTTP(rr, req)
	})
}

func Test_MetricsRequestHandler(t *testing.T) {
	metricsService := monitor.NewMetricsService()

	mux := chi.NewMux()
	mux.Use(MetricsRequestHandler(metricsService))
	mux.Get("/auth", func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr = httptest.NewRecorder()
	metricsService.Handler().ServeHTTP(rr, req)
	assert.Contains(t, rr.Body.String(), `anchor_http_request_duration_seconds_count{method="GET",route="/auth",status="200"} 1`)
}

func Test_CorsMiddleware(t *testing.T) {
	mux := chi.NewMux()
	mux.Use(CorsMiddleware([]string{"https://wallet.example.com"}))
	mux.Get("/sep24/info", func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sep24/info", nil)
		req.Header.Set("Origin", "https://wallet.example.com")
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		assert.Equal(t, "https://wallet.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sep24/info", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})
}

func Test_RateLimitMiddleware(t *testing.T) {
	mux := chi.NewMux()
	mux.Use(RateLimitMiddleware(2))
	mux.Get("/auth", func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/auth", nil)
		req.RemoteAddr = "192.0.2.10:4312"
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		statuses = append(statuses, rr.Code)

		if rr.Code == http.StatusTooManyRequests {
			assert.JSONEq(t, `{"error":"Too many requests","code":"rate_limit_exceeded"}`, rr.Body.String())
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)

	t.Run("a different client ip has its own budget", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth", nil)
		req.RemoteAddr = "192.0.2.99:4312"
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func Test_getRoutePattern(t *testing.T) {
	mux := chi.NewMux()
	var pattern string
	mux.Get("/sep24/transaction", func(rw http.ResponseWriter, req *http.Request) {
		pattern = getRoutePattern(req)
	})

	req := httptest.NewRequest(http.MethodGet, "/sep24/transaction?id=abc", nil)
	mux.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "/sep24/transaction", pattern)

	t.Run("no chi context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whatever", nil)
		assert.Equal(t, "undefined", getRoutePattern(req))
	})
}

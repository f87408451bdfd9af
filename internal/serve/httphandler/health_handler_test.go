package httphandler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_HealthHandler(t *testing.T) {
	handler := HealthHandler{
		Version:   "1.0.0",
		ServiceID: "anchor-serve",
		ReleaseID: "a6b9d3c",
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"pass","version":"1.0.0","service_id":"anchor-serve","release_id":"a6b9d3c"}`, rr.Body.String())
}

func Test_HealthHandler_omitsEmptyFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	HealthHandler{}.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"pass"}`, rr.Body.String())
}

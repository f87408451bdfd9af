package httphandler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellar/stellar-anchor-backend/internal/anchor"
)

func initiateDeposit(t *testing.T, engine *anchor.Engine) string {
	t.Helper()
	result, err := engine.InitiateDeposit(context.Background(), anchor.ModeInteractive, anchor.InitiationRequest{
		Account:   testAccount,
		AssetCode: "USDC",
	})
	require.NoError(t, err)
	return result.Transfer.ID
}

func Test_MoreInfoHandler_defaultPage(t *testing.T) {
	engine := newTestEngine(t, anchor.Hooks{})
	handler := MoreInfoHandler{Engine: engine}
	id := initiateDeposit(t, engine)

	req := httptest.NewRequest(http.MethodGet, "/sep24/transaction/more_info?id="+id, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), id)
	assert.Contains(t, rr.Body.String(), "incomplete")
	assert.Contains(t, rr.Body.String(), "deposit")
}

func Test_MoreInfoHandler_unknownTransferStillRendersHTML(t *testing.T) {
	handler := MoreInfoHandler{Engine: newTestEngine(t, anchor.Hooks{})}

	req := httptest.NewRequest(http.MethodGet, "/sep24/transaction/more_info?id=missing", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "unknown")
	assert.NotContains(t, rr.Body.String(), `"error"`)
}

func Test_MoreInfoHandler_hookOverridesThePage(t *testing.T) {
	engine := newTestEngine(t, anchor.Hooks{
		RenderMoreInfo: func(ctx context.Context, tr *anchor.Transfer) (string, error) {
			return "<html><body><h1>Operator page for " + tr.ID + "</h1></body></html>", nil
		},
	})
	handler := MoreInfoHandler{Engine: engine}
	id := initiateDeposit(t, engine)

	req := httptest.NewRequest(http.MethodGet, "/sep24/transaction/more_info?id="+id, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<html><body><h1>Operator page for "+id+"</h1></body></html>", rr.Body.String())
}

func Test_MoreInfoHandler_hookFailureFallsBackToDefaultPage(t *testing.T) {
	engine := newTestEngine(t, anchor.Hooks{
		RenderMoreInfo: func(ctx context.Context, tr *anchor.Transfer) (string, error) {
			return "", errors.New("template service down")
		},
	})
	handler := MoreInfoHandler{Engine: engine}
	id := initiateDeposit(t, engine)

	req := httptest.NewRequest(http.MethodGet, "/sep24/transaction/more_info?id="+id, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), id)
	assert.NotContains(t, rr.Body.String(), "template service down")
}

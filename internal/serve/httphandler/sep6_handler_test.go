package httphandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellar/stellar-anchor-backend/internal/anchor"
)

func Test_SEP6Handler_GetInfo(t *testing.T) {
	handler := SEP6Handler{Engine: newTestEngine(t, anchor.Hooks{})}

	req := httptest.NewRequest(http.MethodGet, "/sep6/info", nil)
	rr := httptest.NewRecorder()
	handler.GetInfo(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	wantBody := `{
		"deposit": {
			"USDC": {"enabled": true, "authentication_required": true, "min_amount": 1, "max_amount": 10000},
			"SRT": {"enabled": false, "authentication_required": true}
		},
		"withdraw": {
			"USDC": {"enabled": true, "authentication_required": true},
			"SRT": {"enabled": true, "authentication_required": true}
		}
	}`
	assert.JSONEq(t, wantBody, rr.Body.String())
}

func Test_SEP6Handler_Deposit(t *testing.T) {
	engine := newTestEngine(t, anchor.Hooks{})
	handler := SEP6Handler{Engine: engine}

	t.Run("requires authentication", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sep6/deposit?asset_code=USDC", nil)
		rr := httptest.NewRecorder()
		handler.Deposit(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"Missing or invalid authorization header","code":"unauthorized"}`, rr.Body.String())
	})

	t.Run("🎉 successfully initiates a programmatic deposit", func(t *testing.T) {
		req := authenticatedRequest(http.MethodGet, "/sep6/deposit?asset_code=USDC&amount=500", nil)
		rr := httptest.NewRecorder()
		handler.Deposit(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp SEP6DepositResponse
		require.NoError(t, unmarshalBody(rr, &resp))
		assert.Len(t, resp.ID, 32)
		assert.Contains(t, resp.How, testSigningKey)
		assert.Contains(t, resp.How, resp.ID)
		require.NotNil(t, resp.MinAmount)
		assert.Equal(t, float64(1), *resp.MinAmount)
		require.NotNil(t, resp.MaxAmount)
		assert.Equal(t, float64(10000), *resp.MaxAmount)

		// programmatic transfers carry no interactive token
		transfer, err := engine.GetByID(req.Context(), resp.ID)
		require.NoError(t, err)
		assert.Equal(t, anchor.ModeProgrammatic, transfer.Mode)
		assert.Nil(t, transfer.InteractiveToken)
		assert.Empty(t, transfer.InteractiveURL)
	})

	t.Run("deposit hook overrides the instructions", func(t *testing.T) {
		hooked := SEP6Handler{Engine: newTestEngine(t, anchor.Hooks{
			OnDeposit: func(ctx context.Context, tr *anchor.Transfer) (*anchor.DepositInstructions, error) {
				return &anchor.DepositInstructions{
					How:       "Wire to account 12345 at Example Bank",
					ETA:       3600,
					ExtraInfo: map[string]any{"message": "expect a 1-2 day delay"},
				}, nil
			},
		})}

		req := authenticatedRequest(http.MethodGet, "/sep6/deposit?asset_code=USDC", nil)
		rr := httptest.NewRecorder()
		hooked.Deposit(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp SEP6DepositResponse
		require.NoError(t, unmarshalBody(rr, &resp))
		assert.Equal(t, "Wire to account 12345 at Example Bank", resp.How)
		assert.Equal(t, 3600, resp.ETA)
		assert.Equal(t, map[string]any{"message": "expect a 1-2 day delay"}, resp.ExtraInfo)
	})

	t.Run("disabled asset", func(t *testing.T) {
		req := authenticatedRequest(http.MethodGet, "/sep6/deposit?asset_code=SRT", nil)
		rr := httptest.NewRecorder()
		handler.Deposit(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("malformed account parameter", func(t *testing.T) {
		req := authenticatedRequest(http.MethodGet, "/sep6/deposit?asset_code=USDC&account=bogus", nil)
		rr := httptest.NewRecorder()
		handler.Deposit(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"account is not a valid ed25519 public key","code":"bad_request"}`, rr.Body.String())
	})
}

func Test_SEP6Handler_Withdraw(t *testing.T) {
	engine := newTestEngine(t, anchor.Hooks{})
	handler := SEP6Handler{Engine: engine}

	t.Run("requires authentication", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sep6/withdraw?asset_code=USDC&type=bank_account&dest=12345", nil)
		rr := httptest.NewRecorder()
		handler.Withdraw(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("🎉 successfully initiates a programmatic withdrawal", func(t *testing.T) {
		req := authenticatedRequest(http.MethodGet, "/sep6/withdraw?asset_code=USDC&type=bank_account&dest=12345&dest_extra=021000021", nil)
		rr := httptest.NewRecorder()
		handler.Withdraw(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp SEP6WithdrawResponse
		require.NoError(t, unmarshalBody(rr, &resp))
		assert.Equal(t, testSigningKey, resp.AccountID)
		assert.Equal(t, "id", resp.MemoType)
		assert.NotEmpty(t, resp.Memo)
		assert.Len(t, resp.ID, 32)

		transfer, err := engine.GetByID(req.Context(), resp.ID)
		require.NoError(t, err)
		assert.Equal(t, "12345", transfer.Dest)
		assert.Equal(t, "021000021", transfer.DestExtra)
	})

	t.Run("withdraw hook overrides the destination", func(t *testing.T) {
		hooked := SEP6Handler{Engine: newTestEngine(t, anchor.Hooks{
			OnWithdraw: func(ctx context.Context, tr *anchor.Transfer) (*anchor.WithdrawalInstructions, error) {
				return &anchor.WithdrawalInstructions{
					AccountID: testAccount,
					Memo:      "custom-memo",
					MemoType:  "text",
				}, nil
			},
		})}

		req := authenticatedRequest(http.MethodGet, "/sep6/withdraw?asset_code=USDC&type=bank_account&dest=12345", nil)
		rr := httptest.NewRecorder()
		hooked.Withdraw(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp SEP6WithdrawResponse
		require.NoError(t, unmarshalBody(rr, &resp))
		assert.Equal(t, testAccount, resp.AccountID)
		assert.Equal(t, "custom-memo", resp.Memo)
		assert.Equal(t, "text", resp.MemoType)
	})

	t.Run("missing type", func(t *testing.T) {
		req := authenticatedRequest(http.MethodGet, "/sep6/withdraw?asset_code=USDC&dest=12345", nil)
		rr := httptest.NewRecorder()
		handler.Withdraw(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"type is required for programmatic withdrawals","code":"bad_request"}`, rr.Body.String())
	})

	t.Run("missing dest", func(t *testing.T) {
		req := authenticatedRequest(http.MethodGet, "/sep6/withdraw?asset_code=USDC&type=bank_account", nil)
		rr := httptest.NewRecorder()
		handler.Withdraw(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"dest is required for withdrawals","code":"bad_request"}`, rr.Body.String())
	})
}

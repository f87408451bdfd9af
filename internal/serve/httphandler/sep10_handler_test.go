package httphandler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stellar/stellar-anchor-backend/internal/sepauth"
)

func Test_SEP10Handler_GetChallenge(t *testing.T) {
	t.Run("missing account parameter", func(t *testing.T) {
		handler := SEP10Handler{SEP10Service: sepauth.NewMockSEP10Service(t)}

		req := httptest.NewRequest(http.MethodGet, "/auth", nil)
		rr := httptest.NewRecorder()
		handler.GetChallenge(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"account parameter is required","code":"bad_request"}`, rr.Body.String())
	})

	t.Run("🎉 successfully returns a challenge", func(t *testing.T) {
		sep10ServiceMock := sepauth.NewMockSEP10Service(t)
		sep10ServiceMock.
			On("CreateChallenge", mock.Anything, sepauth.ChallengeRequest{Account: testAccount}).
			Return(&sepauth.ChallengeResponse{
				Transaction:       "AAAAAgAAAAB...",
				NetworkPassphrase: "Test SDF Network ; September 2015",
			}, nil).
			Once()
		handler := SEP10Handler{SEP10Service: sep10ServiceMock}

		req := httptest.NewRequest(http.MethodGet, "/auth?account="+testAccount, nil)
		rr := httptest.NewRecorder()
		handler.GetChallenge(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"transaction":"AAAAAgAAAAB...","network_passphrase":"Test SDF Network ; September 2015"}`, rr.Body.String())
	})

	t.Run("invalid account maps to invalid_challenge", func(t *testing.T) {
		sep10ServiceMock := sepauth.NewMockSEP10Service(t)
		sep10ServiceMock.
			On("CreateChallenge", mock.Anything, sepauth.ChallengeRequest{Account: "not-a-key"}).
			Return(nil, fmt.Errorf("%w: account is not a valid ed25519 public key", sepauth.ErrInvalidChallenge)).
			Once()
		handler := SEP10Handler{SEP10Service: sep10ServiceMock}

		req := httptest.NewRequest(http.MethodGet, "/auth?account=not-a-key", nil)
		rr := httptest.NewRecorder()
		handler.GetChallenge(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"invalid challenge: account is not a valid ed25519 public key","code":"invalid_challenge"}`, rr.Body.String())
	})

	t.Run("unexpected error is reported as a 500", func(t *testing.T) {
		sep10ServiceMock := sepauth.NewMockSEP10Service(t)
		sep10ServiceMock.
			On("CreateChallenge", mock.Anything, mock.Anything).
			Return(nil, errors.New("nonce registry is full")).
			Once()
		handler := SEP10Handler{SEP10Service: sep10ServiceMock}

		req := httptest.NewRequest(http.MethodGet, "/auth?account="+testAccount, nil)
		rr := httptest.NewRecorder()
		handler.GetChallenge(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"error":"An internal error occurred while processing this request.","code":"error"}`, rr.Body.String())
	})
}

func Test_SEP10Handler_PostChallenge(t *testing.T) {
	t.Run("malformed body", func(t *testing.T) {
		handler := SEP10Handler{SEP10Service: sepauth.NewMockSEP10Service(t)}

		req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{invalid`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		handler.PostChallenge(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"invalid request body","code":"invalid_challenge"}`, rr.Body.String())
	})

	t.Run("🎉 successfully mints a token from a JSON body", func(t *testing.T) {
		sep10ServiceMock := sepauth.NewMockSEP10Service(t)
		sep10ServiceMock.
			On("ValidateChallenge", mock.Anything, sepauth.ValidationRequest{Transaction: "AAAAAgAAAAB..."}).
			Return(&sepauth.ValidationResponse{Token: "signed.jwt.token", Account: testAccount}, nil).
			Once()
		handler := SEP10Handler{SEP10Service: sep10ServiceMock}

		req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"transaction":"AAAAAgAAAAB..."}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		handler.PostChallenge(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"token":"signed.jwt.token"}`, rr.Body.String())
	})

	t.Run("accepts urlencoded form bodies", func(t *testing.T) {
		sep10ServiceMock := sepauth.NewMockSEP10Service(t)
		sep10ServiceMock.
			On("ValidateChallenge", mock.Anything, sepauth.ValidationRequest{Transaction: "AAAAAgAAAAB..."}).
			Return(&sepauth.ValidationResponse{Token: "signed.jwt.token", Account: testAccount}, nil).
			Once()
		handler := SEP10Handler{SEP10Service: sep10ServiceMock}

		req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader("transaction=AAAAAgAAAAB..."))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		handler.PostChallenge(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"token":"signed.jwt.token"}`, rr.Body.String())
	})

	t.Run("insufficient signature weight", func(t *testing.T) {
		sep10ServiceMock := sepauth.NewMockSEP10Service(t)
		sep10ServiceMock.
			On("ValidateChallenge", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: signers found have weight 1, threshold is 5", sepauth.ErrInsufficientWeight)).
			Once()
		handler := SEP10Handler{SEP10Service: sep10ServiceMock}

		req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"transaction":"AAAA"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		handler.PostChallenge(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"signature weight below required threshold: signers found have weight 1, threshold is 5","code":"unauthorized"}`, rr.Body.String())
	})

	t.Run("horizon outage is retryable", func(t *testing.T) {
		sep10ServiceMock := sepauth.NewMockSEP10Service(t)
		sep10ServiceMock.
			On("ValidateChallenge", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: 503", sepauth.ErrHorizonUnavailable)).
			Once()
		handler := SEP10Handler{SEP10Service: sep10ServiceMock}

		req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"transaction":"AAAA"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		handler.PostChallenge(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"could not verify account signers, retry with a new challenge","code":"invalid_challenge","retryable":true}`, rr.Body.String())
	})

	t.Run("replayed challenge", func(t *testing.T) {
		sep10ServiceMock := sepauth.NewMockSEP10Service(t)
		sep10ServiceMock.
			On("ValidateChallenge", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: challenge nonce is unknown, expired, or already used", sepauth.ErrInvalidChallenge)).
			Once()
		handler := SEP10Handler{SEP10Service: sep10ServiceMock}

		req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"transaction":"AAAA"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		handler.PostChallenge(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"invalid challenge: challenge nonce is unknown, expired, or already used","code":"invalid_challenge"}`, rr.Body.String())
	})
}

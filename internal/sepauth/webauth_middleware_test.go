package sepauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_WebAuthMiddleware(t *testing.T) {
	jwtManager, err := NewJWTManager(testJWTSecret, "https://anchor.test/auth")
	require.NoError(t, err)

	account := "GB54GWWWOSHATX5ALKHBBL2IQBZ2E7TBFO7F7VXKPIW6XANYDK4Y3RRC"
	validToken, err := jwtManager.GenerateToken(account, time.Now())
	require.NoError(t, err)

	var gotClaims *WebAuthClaims
	handler := WebAuthMiddleware(jwtManager)(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		gotClaims = GetWebAuthClaims(req.Context())
		rw.WriteHeader(http.StatusOK)
	}))

	testCases := []struct {
		name           string
		authHeader     string
		wantStatusCode int
		wantBody       string
	}{
		{
			name:           "missing header",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"error":"Missing or invalid authorization header","code":"unauthorized"}`,
		},
		{
			name:           "not a bearer token",
			authHeader:     "Basic abc",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"error":"Missing or invalid authorization header","code":"unauthorized"}`,
		},
		{
			name:           "empty bearer token",
			authHeader:     "Bearer ",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"error":"Invalid token","code":"unauthorized"}`,
		},
		{
			name:           "garbage token",
			authHeader:     "Bearer not.a.jwt",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"error":"Invalid token","code":"unauthorized"}`,
		},
		{
			name:           "valid token",
			authHeader:     "Bearer " + validToken,
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gotClaims = nil
			req := httptest.NewRequest(http.MethodGet, "/sep24/transactions", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatusCode, rr.Code)
			if tc.wantStatusCode == http.StatusOK {
				require.NotNil(t, gotClaims)
				assert.Equal(t, account, gotClaims.Account())
			} else {
				assert.Nil(t, gotClaims)
				assert.JSONEq(t, tc.wantBody, rr.Body.String())
			}
		})
	}
}

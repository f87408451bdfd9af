package sepauth

import (
	"context"
	"net/http"
	"strings"

	"github.com/stellar/stellar-anchor-backend/internal/serve/httperror"
)

type ContextType string

// WebAuthClaimsContextKey is the context key used to store web auth claims.
const WebAuthClaimsContextKey ContextType = "webauth_claims"

// GetWebAuthClaims retrieves web auth claims from the request context, if present.
func GetWebAuthClaims(ctx context.Context) *WebAuthClaims {
	claims := ctx.Value(WebAuthClaimsContextKey)
	if claims == nil {
		return nil
	}
	return claims.(*WebAuthClaims)
}

// WebAuthMiddleware validates a bearer token provided via the Authorization
// header (Authorization: Bearer <token>) and stores the parsed claims in the
// request context for downstream handlers.
func WebAuthMiddleware(jwtManager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			authHeader := req.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				httperror.Unauthorized("Missing or invalid authorization header", nil, nil).Render(rw)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if strings.TrimSpace(token) == "" {
				httperror.Unauthorized("Invalid token", nil, nil).Render(rw)
				return
			}

			claims, err := jwtManager.ParseToken(token)
			if err != nil {
				httperror.Unauthorized("Invalid token", err, nil).Render(rw)
				return
			}

			ctx = context.WithValue(ctx, WebAuthClaimsContextKey, claims)
			req = req.WithContext(ctx)

			next.ServeHTTP(rw, req)
		})
	}
}

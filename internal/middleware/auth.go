package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ayush/autos-marketplace/backend/internal/auth"
	"github.com/ayush/autos-marketplace/backend/internal/respond"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	tokenKey
)

// TokenVerifier checks bearer tokens and decodes who they belong to.
type TokenVerifier interface {
	Verify(token string) bool
	Subject(token string) (string, error)
}

// RevocationChecker reports tokens revoked before their expiry.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RequireToken is middleware that validates the auth-token header and
// injects the caller's user id and token into the request context.
// revoked may be nil.
func RequireToken(tokens TokenVerifier, revoked RevocationChecker, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(auth.TokenHeader)
			if !tokens.Verify(token) {
				respond.Unauthorized(w)
				return
			}

			if revoked != nil {
				isRevoked, err := revoked.IsRevoked(r.Context(), token)
				if err != nil {
					logger.Error("revocation lookup failed", zap.Error(err))
					respond.Unauthorized(w)
					return
				}
				if isRevoked {
					respond.Unauthorized(w)
					return
				}
			}

			userID, err := tokens.Subject(token)
			if err != nil {
				respond.Unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated caller, or "" outside RequireToken.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Token returns the verified bearer token, or "" outside RequireToken.
func Token(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey).(string)
	return tok
}

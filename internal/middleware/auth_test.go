package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayush/autos-marketplace/backend/internal/auth"
)

type failingRevocations struct{}

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRequireToken(t *testing.T) {
	tokens, err := auth.NewTokens(auth.TokenConfig{
		Secret: "test-secret-key-12345678901234567890123456789012",
		TTL:    time.Hour,
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	revs := auth.NewRevocations(rdb)

	good, err := tokens.Issue("64b7f0c2a1b2c3d4e5f60718")
	require.NoError(t, err)
	revokedTok, err := tokens.Issue("64b7f0c2a1b2c3d4e5f60719")
	require.NoError(t, err)
	require.NoError(t, revs.Revoke(context.Background(), revokedTok, time.Now().Add(time.Hour)))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"user_id": UserID(r.Context()), "token": Token(r.Context())})
	})

	tests := []struct {
		name           string
		header         string
		revocations    RevocationChecker
		expectedStatus int
		expectedUserID string
	}{
		{"Happy Path", good, revs, http.StatusOK, "64b7f0c2a1b2c3d4e5f60718"},
		{"Without Revocation List", good, nil, http.StatusOK, "64b7f0c2a1b2c3d4e5f60718"},
		{"Missing Header", "", revs, http.StatusUnauthorized, ""},
		{"Malformed Token", "malformed.token.here", revs, http.StatusUnauthorized, ""},
		{"Revoked Token", revokedTok, revs, http.StatusUnauthorized, ""},
		{"Revocation Lookup Fails", good, failingRevocations{}, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireToken(tokens, tt.revocations, zap.NewNop())(next)
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(auth.TokenHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.expectedUserID, body["user_id"])
				assert.Equal(t, tt.header, body["token"])
			}
		})
	}
}

func TestUserIDOutsideMiddleware(t *testing.T) {
	assert.Empty(t, UserID(context.Background()))
	assert.Empty(t, Token(context.Background()))
}

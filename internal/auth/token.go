package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenHeader is the request header carrying the bearer token.
const TokenHeader = "auth-token"

var (
	ErrNoSecret     = errors.New("token secret is not configured")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// TokenConfig is injected at construction; a zero TTL issues tokens
// without expiry.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// Claims is the signed payload of an issued token.
type Claims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HMAC-signed bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(cfg TokenConfig) (*Tokens, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}
	return &Tokens{secret: []byte(cfg.Secret), ttl: cfg.TTL, now: time.Now}, nil
}

// Issue signs a token for userID.
func (t *Tokens) Issue(userID string) (string, error) {
	now := t.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if t.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify reports whether token is well formed, correctly signed and not
// expired. It never returns an error; any failure is simply false.
func (t *Tokens) Verify(token string) bool {
	_, err := t.parse(token)
	return err == nil
}

// Subject decodes the user id the token was issued for.
func (t *Tokens) Subject(token string) (string, error) {
	claims, err := t.parse(token)
	if err != nil {
		return "", err
	}
	if claims.UserID != "" {
		return claims.UserID, nil
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// ExpiresAt returns the expiry of token, or the zero time when it has none.
func (t *Tokens) ExpiresAt(token string) (time.Time, error) {
	claims, err := t.parse(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

func (t *Tokens) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates a malformed, expired or mis-signed token.
var ErrInvalidToken = errors.New("security: invalid token")

// AccountClaims carries the account identity inside a bearer token.
type AccountClaims struct {
	AccountID string `json:"sub_account"`
	jwt.RegisteredClaims
}

// IssueAccountToken signs an HS256 bearer token for an account.
func IssueAccountToken(secret string, expiry time.Duration, accountID string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("security: missing jwt secret")
	}
	now := time.Now().UTC()
	claims := AccountClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("security: sign token: %w", errSign)
	}
	return signed, nil
}

// ParseAccountToken validates a bearer token and returns its claims.
func ParseAccountToken(secret, raw string) (*AccountClaims, error) {
	claims := &AccountClaims{}
	token, errParse := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if errParse != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.AccountID) == "" {
		claims.AccountID = claims.Subject
	}
	if strings.TrimSpace(claims.AccountID) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

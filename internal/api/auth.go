package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultTokenTTL is used when the config sets no token_ttl.
const defaultTokenTTL = 12 * time.Hour

// IssueToken mints an HS256 bearer token for the given subject, signed
// with the configured secret. Panels obtain their tokens out of band;
// hearthd's -issue-token flag calls this for provisioning.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("api: no auth secret configured")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    "hearth-core",
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// validateToken checks an HS256 bearer token against the configured
// secret, including expiry.
func (s *Server) validateToken(tokenString string) error {
	_, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Auth.Secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return fmt.Errorf("parsing token: %w", err)
	}
	return nil
}

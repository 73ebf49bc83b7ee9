package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeIngest allows calling the write endpoints.
const ScopeIngest = "ingest"

// Claims defines JWT claims accepted by the write endpoints.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateToken issues an HS256 token for subject.
func GenerateToken(secret, subject string, duration time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := Claims{
		Scope: ScopeIngest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "threadsense",
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a JWT and returns its claims.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Scope != ScopeIngest {
		return nil, errors.New("token scope does not allow ingestion")
	}
	return claims, nil
}

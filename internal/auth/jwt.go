// Package auth выпускает и проверяет JWT владельцев ссылок
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultTokenTTL срок действия выпускаемого токена
const DefaultTokenTTL = 30 * 24 * time.Hour

var (
	// ErrInvalidToken токен не прошёл проверку подписи или срока действия
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptySecret секрет подписи не задан
	ErrEmptySecret = errors.New("jwt secret is empty")
)

// Claims утверждения токена; Subject содержит ID владельца
type Claims struct {
	jwt.RegisteredClaims
}

// SignToken выпускает токен HS256 для владельца ownerID
func SignToken(ownerID, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken проверяет токен и возвращает ID владельца
func ParseToken(tokenString, secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

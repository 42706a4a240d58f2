package handlers

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer значение claim iss для токенов узла
const tokenIssuer = "deltasync"

// PeerClaims представляет JWT claims пира
type PeerClaims struct {
	PeerID        string `json:"peer_id"`
	Collaboration string `json:"collaboration"`
	jwt.RegisteredClaims
}

// JWTConfig содержит конфигурацию для JWT
type JWTConfig struct {
	Secret   []byte
	TokenTTL time.Duration
}

// Enabled возвращает true, если проверка токенов включена
func (c JWTConfig) Enabled() bool {
	return len(c.Secret) > 0
}

// GenerateAccessToken создает JWT access token пира для одной коллаборации
func GenerateAccessToken(cfg JWTConfig, peerID, collaboration string) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(cfg.TokenTTL)

	claims := PeerClaims{
		PeerID:        peerID,
		Collaboration: collaboration,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   peerID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, int64(cfg.TokenTTL.Seconds()), nil
}

// ValidateAccessToken валидирует и парсит JWT access token
func ValidateAccessToken(cfg JWTConfig, tokenString string) (*PeerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PeerClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*PeerClaims); ok && token.Valid {
		if claims.PeerID == "" || claims.Collaboration == "" {
			return nil, fmt.Errorf("token has no peer or collaboration")
		}
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

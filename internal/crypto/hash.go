package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashAuthKey хеширует auth_key с использованием SHA256.
// Пир отправляет хеш вместо самого ключа при запросе токена.
func HashAuthKey(authKey []byte) (string, error) {
	if len(authKey) == 0 {
		return "", fmt.Errorf("auth key cannot be empty")
	}

	hash := sha256.Sum256(authKey)
	return hex.EncodeToString(hash[:]), nil
}

// VerifyAuthKey проверяет, соответствует ли хеш, присланный пиром, ключу узла
func VerifyAuthKey(authKey []byte, hashedAuthKey string) error {
	if hashedAuthKey == "" {
		return fmt.Errorf("hashed auth key cannot be empty")
	}

	computedHash, err := HashAuthKey(authKey)
	if err != nil {
		return fmt.Errorf("failed to compute auth key hash: %w", err)
	}

	if !hmac.Equal([]byte(computedHash), []byte(hashedAuthKey)) {
		return fmt.Errorf("invalid auth key")
	}

	return nil
}

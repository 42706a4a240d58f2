package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Keys содержит ключи, производные от секрета коллаборации
type Keys struct {
	AuthKey       []byte // ключ для аутентификации пиров (32 bytes)
	EncryptionKey []byte // ключ для шифрования снимков в хранилище (32 bytes)
}

// Параметры Argon2id
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// Argon2KeyLen - длина выходного ключа в байтах
	Argon2KeyLen = 32
)

// SaltFor возвращает детерминированную соль коллаборации.
// Все пиры одной коллаборации должны получить одинаковые ключи,
// поэтому соль выводится из имени, а не генерируется случайно.
func SaltFor(collaboration string) []byte {
	sum := sha256.Sum256([]byte("deltasync/" + collaboration))
	return sum[:]
}

// DeriveKeys генерирует два независимых ключа из секрета коллаборации:
// - AuthKey для выдачи токенов пирам
// - EncryptionKey для шифрования снимков
// Использует Argon2id с разными context strings для независимости ключей
func DeriveKeys(secret, collaboration string) (*Keys, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret cannot be empty")
	}
	if collaboration == "" {
		return nil, fmt.Errorf("collaboration name cannot be empty")
	}

	salt := SaltFor(collaboration)
	baseInput := []byte(secret + collaboration)

	authContext := append(append([]byte{}, baseInput...), []byte("auth")...)
	authKey := argon2.IDKey(authContext, salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)

	encryptContext := append(append([]byte{}, baseInput...), []byte("encrypt")...)
	encryptionKey := argon2.IDKey(encryptContext, salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)

	return &Keys{
		AuthKey:       authKey,
		EncryptionKey: encryptionKey,
	}, nil
}

// storageContext отделяет ключ хранилища от ключей коллабораций
const storageContext = "storage"

// DeriveStorageKey генерирует ключ шифрования снимков узла из секрета хранилища
func DeriveStorageKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("storage secret cannot be empty")
	}

	input := append([]byte(secret), []byte(storageContext)...)
	return argon2.IDKey(input, SaltFor(storageContext), Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen), nil
}

package validation

import (
	"fmt"
	"regexp"
)

// NamePattern определяет допустимый формат имени коллаборации или вложенной реплики.
// Латинские буквы, цифры, '_', '-', '.'; символ '/' зарезервирован для ключей хранилища.
var NamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// PeerIDPattern определяет допустимый формат идентификатора реплики (в том числе UUID)
var PeerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

const (
	// MaxNameLen максимальная длина имени
	MaxNameLen = 64
	// MaxPeerIDLen максимальная длина идентификатора реплики
	MaxPeerIDLen = 128
	// MinSecretLen минимальная длина общего секрета
	MinSecretLen = 12
)

// ValidateName проверяет имя коллаборации или вложенной реплики
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if len(name) > MaxNameLen {
		return fmt.Errorf("name must not exceed %d characters", MaxNameLen)
	}

	if !NamePattern.MatchString(name) {
		return fmt.Errorf("name can only contain letters, numbers, '_', '-' and '.'")
	}

	return nil
}

// ValidatePeerID проверяет идентификатор реплики
func ValidatePeerID(peerID string) error {
	if peerID == "" {
		return fmt.Errorf("peer id cannot be empty")
	}

	if len(peerID) > MaxPeerIDLen {
		return fmt.Errorf("peer id must not exceed %d characters", MaxPeerIDLen)
	}

	if !PeerIDPattern.MatchString(peerID) {
		return fmt.Errorf("peer id can only contain letters, numbers, '_', '-', '.' and ':'")
	}

	return nil
}

// ValidateSecret проверяет минимальные требования к общему секрету
func ValidateSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("secret cannot be empty")
	}

	if len(secret) < MinSecretLen {
		return fmt.Errorf("secret must be at least %d characters long", MinSecretLen)
	}

	return nil
}

package storage

import (
	"encoding/json"
	"fmt"

	"github.com/iudanet/deltasync/internal/crypto"
)

// Codec serializes snapshots for the byte-oriented backends.
// With a cipher configured, blobs are encrypted and bound to their key.
type Codec struct {
	cipher *crypto.Cipher
}

// NewCodec creates a codec. A nil key disables encryption.
func NewCodec(key []byte) (*Codec, error) {
	if key == nil {
		return &Codec{}, nil
	}

	c, err := crypto.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot cipher: %w", err)
	}
	return &Codec{cipher: c}, nil
}

// Encrypted reports whether blobs are encrypted
func (c *Codec) Encrypted() bool {
	return c.cipher != nil
}

// Encode marshals snapshot for storage under key
func (c *Codec) Encode(key string, snapshot *Snapshot) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if c.cipher == nil {
		return data, nil
	}

	sealed, err := c.cipher.Seal(data, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt snapshot: %w", err)
	}
	return sealed, nil
}

// Decode restores a snapshot stored under key
func (c *Codec) Decode(key string, data []byte) (*Snapshot, error) {
	if c.cipher != nil {
		opened, err := c.cipher.Open(data, []byte(key))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt snapshot: %w", err)
		}
		data = opened
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

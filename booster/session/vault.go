package session

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Vault seals bot tokens at rest with XChaCha20-Poly1305. The key is
// derived from the configured secret so the same secret always opens
// the same files.
type Vault struct {
	aead cipher.AEAD
}

func NewVault(secret string) (*Vault, error) {
	if secret == "" {
		return nil, fmt.Errorf("vault secret is empty")
	}
	hash := sha256.Sum256([]byte(secret))
	aead, err := chacha20poly1305.NewX(hash[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create XChaCha20-Poly1305 instance: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Seal returns nonce||ciphertext with a fresh random nonce.
func (v *Vault) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (v *Vault) Open(ciphertext []byte) ([]byte, error) {
	nonceSize := v.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext is too short")
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

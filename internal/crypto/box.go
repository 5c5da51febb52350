package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// Box — симметричное шифрование чувствительных данных в БД:
// WB API токены и номера телефонов browser-сессий.
// AES-256-GCM, nonce хранится префиксом шифртекста, всё — base64.
type Box struct {
	aead cipher.AEAD
}

var ErrDecrypt = errors.New("crypto: decrypt failed")

// New строит Box из ключа произвольной строки: ключ прогоняется через
// SHA-256, поэтому подходит и base64-ключ из setup-скрипта, и passphrase.
func New(key string) (*Box, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("crypto: key too short (%d chars, need at least 32)", len(key))
	}
	sum := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Box{aead: aead}, nil
}

func (b *Box) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (b *Box) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecrypt
	}
	ns := b.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrDecrypt
	}
	plain, err := b.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

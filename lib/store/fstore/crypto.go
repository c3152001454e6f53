package fstore

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Layout of an encrypted store file:
// - 8 bytes: magic header
// - 16 bytes: argon2id salt
// - 24 bytes: XChaCha20-Poly1305 nonce
// - N bytes: sealed JSON document
const (
	saltSize = 16
)

var magicHeader = []byte("DSTATE\x00\x01")

// Argon2id parameters. Derived keys are cached per salt, so the cost is paid once per store file.
const (
	argonTime    = 1
	argonMemory  = 32 * 1024 // KiB
	argonThreads = 2
)

// cipherBox seals and opens store files with a passphrase
type cipherBox struct {
	passphrase []byte
	salt       []byte
	key        []byte
}

func newCipherBox(passphrase string) *cipherBox {
	return &cipherBox{passphrase: []byte(passphrase)}
}

// isSealed reports whether data starts with the encrypted file header
func isSealed(data []byte) bool {
	return bytes.HasPrefix(data, magicHeader)
}

// keyFor derives (or returns the cached) key for a salt
func (c *cipherBox) keyFor(salt []byte) []byte {
	if c.key != nil && bytes.Equal(c.salt, salt) {
		return c.key
	}
	c.salt = append([]byte(nil), salt...)
	c.key = argon2.IDKey(c.passphrase, c.salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	return c.key
}

// seal encrypts plaintext. The salt of the last opened file is reused so the key cache stays warm.
func (c *cipherBox) seal(plaintext []byte) ([]byte, error) {
	salt := c.salt
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %v", err)
		}
	}

	aead, err := chacha20poly1305.NewX(c.keyFor(salt))
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %v", err)
	}

	out := make([]byte, 0, len(magicHeader)+saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, magicHeader...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// open decrypts a sealed file
func (c *cipherBox) open(data []byte) ([]byte, error) {
	headerSize := len(magicHeader) + saltSize + chacha20poly1305.NonceSizeX
	if len(data) < headerSize {
		return nil, fmt.Errorf("encrypted file is truncated")
	}

	pos := len(magicHeader)
	salt := data[pos : pos+saltSize]
	pos += saltSize
	nonce := data[pos : pos+chacha20poly1305.NonceSizeX]
	pos += chacha20poly1305.NonceSizeX

	aead, err := chacha20poly1305.NewX(c.keyFor(salt))
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, data[pos:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt (wrong encryption key or corrupt file)")
	}
	return plaintext, nil
}

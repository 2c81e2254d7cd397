// Package evidence implements the encrypted evidence storage proxy: files
// are AES-256-CBC encrypted before they reach the blob store and decrypted
// on the way out.
package evidence

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ivLength is the AES block size; the IV is prepended to each ciphertext
const ivLength = 16

// keyLength is the AES-256 key size
const keyLength = 32

var (
	// ErrBadKey is returned when the configured key is not 32 bytes
	ErrBadKey = errors.New("encryption key must be 32 bytes")

	// ErrCorrupt is returned when a ciphertext cannot be decrypted. The
	// message stays generic: padding details must not leak.
	ErrCorrupt = errors.New("corrupt or truncated ciphertext")
)

// Cipher encrypts and decrypts evidence blobs
type Cipher struct {
	key []byte
}

// NewCipher creates a cipher from a 32-byte key
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keyLength {
		return nil, ErrBadKey
	}
	c := &Cipher{key: make([]byte, keyLength)}
	copy(c.key, key)
	return c, nil
}

// Encrypt returns iv || AES-256-CBC(pkcs7(plaintext)) with a fresh random IV
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, ivLength+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[ivLength:], padded)
	return out, nil
}

// Decrypt strips the prepended IV, decrypts and removes the padding
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < ivLength+aes.BlockSize {
		return nil, ErrCorrupt
	}
	iv, body := ciphertext[:ivLength], ciphertext[ivLength:]
	if len(body)%aes.BlockSize != 0 {
		return nil, ErrCorrupt
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)
	return pkcs7Unpad(plain, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(pad)}, pad)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrCorrupt
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize || pad > len(data) {
		return nil, ErrCorrupt
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, ErrCorrupt
		}
	}
	return data[:len(data)-pad], nil
}

package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// AESEncryptBase64 encrypts plaintext with AES-256-CBC and returns standard
// base64 ciphertext. The key must be exactly 32 bytes and the IV is the
// first 16 bytes of the key. The fixed IV is an upstream compatibility
// requirement: the partner derives the same IV from its copy of the key, so
// switching to a random IV would break decryption on their side.
func AESEncryptBase64(plaintext, key []byte) (string, error) {
	if len(key) != aes.BlockSize*2 {
		return "", fmt.Errorf("aes key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, key[:aes.BlockSize]).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// AESDecryptBase64 reverses AESEncryptBase64 with the same key scheme.
func AESDecryptBase64(encoded string, key []byte) ([]byte, error) {
	if len(key) != aes.BlockSize*2 {
		return nil, fmt.Errorf("aes key must be 32 bytes, got %d", len(key))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a block multiple", len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, key[:aes.BlockSize]).CryptBlocks(plaintext, ciphertext)

	return pkcs7Unpad(plaintext, aes.BlockSize)
}

// PipeHash returns the SHA-512 hex digest over the pipe-joined values with
// the client credentials at either end: client_id|v1|...|vN|client_secret.
// Values containing "|" are joined as-is; the upstream's verifier does the
// same, so no escaping is applied here.
func PipeHash(clientID, clientSecret string, values []string) string {
	parts := make([]string, 0, len(values)+2)
	parts = append(parts, clientID)
	parts = append(parts, values...)
	parts = append(parts, clientSecret)

	sum := sha512.Sum512([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}

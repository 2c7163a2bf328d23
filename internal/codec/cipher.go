package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	clerr "classlink/internal/errors"
)

// Encrypt pads plaintext with PKCS#7, encrypts it with AES-256-CBC and
// returns the ciphertext as standard base64.  The result never contains
// a newline.
func Encrypt(plaintext string, km KeyMaterial) (string, error) {
	block, err := aes.NewCipher(km.Key[:])
	if err != nil {
		return "", fmt.Errorf("aes: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, km.IV[:]).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt is the exact inverse of [Encrypt].  Any malformed input
// (bad base64, partial block, invalid padding) yields an error that
// matches ErrFrameDecode.
func Decrypt(frame string, km KeyMaterial) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(frame)
	if err != nil {
		return "", fmt.Errorf("%w: base64: %v", clerr.ErrFrameDecode, err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d", clerr.ErrFrameDecode, len(raw))
	}

	block, err := aes.NewCipher(km.Key[:])
	if err != nil {
		return "", fmt.Errorf("aes: %w", err)
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, km.IV[:]).CryptBlocks(out, raw)

	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", clerr.ErrFrameDecode)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: bad padding", clerr.ErrFrameDecode)
		}
	}
	return b[:len(b)-n], nil
}

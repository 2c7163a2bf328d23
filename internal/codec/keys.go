// Package codec implements the classlink key schedule and frame
// encoding: a SHA-256 derived AES-256 key and IV per identifier,
// AES-CBC with PKCS#7 padding, base64 text, one frame per line.
//
// Both ends derive the same KeyMaterial from the identifier alone; the
// key never crosses the wire.  That also means anyone who knows an
// identifier holds its key, which is only acceptable on a closed local
// network.
package codec

import (
	"crypto/sha256"
	"crypto/subtle"
)

const (
	// KeySize is the AES-256 key length.
	KeySize = 32
	// IVSize is the AES block size.
	IVSize = 16
)

// KeyMaterial is the (key, IV) pair used for one identifier's traffic.
type KeyMaterial struct {
	Key [KeySize]byte
	IV  [IVSize]byte
}

// DeriveKey hashes seed with SHA-256 and uses the full digest as the
// key and its first 16 bytes as the IV.
func DeriveKey(seed string) KeyMaterial {
	sum := sha256.Sum256([]byte(seed))

	var km KeyMaterial
	copy(km.Key[:], sum[:KeySize])
	copy(km.IV[:], sum[:IVSize])
	return km
}

// Equal compares two strings in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

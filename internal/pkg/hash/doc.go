// Package hash provides helpers for hashing and verifying secrets.
//
// Typical usage is for OTP codes and session tokens: store only the hash,
// then verify user input by comparing the plaintext against the stored hash.
// Implementations (like HMAC-SHA256) live in this package behind a small
// interface.
package hash

// Hash hashes plaintext secrets and verifies them against stored hashes.
type Hash interface {
	Hash(str string) ([]byte, error)
	Verify(hashed, str string) bool
}

// Package otpcode generates short one-time passcodes for delivery over SMS
// or email. Codes are drawn from crypto/rand with a uniform distribution
// over the configured alphabet, so no character is favored regardless of
// the alphabet size.
package otpcode

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// DefaultAlphabet is the numeric character set used unless configured
// otherwise. Digits survive every SMS gateway and are easy to dictate.
const DefaultAlphabet = "0123456789"

// DefaultLength matches what users expect from an SMS passcode.
const DefaultLength = 6

// ErrEmptyAlphabet indicates the generator was configured without characters.
var ErrEmptyAlphabet = errors.New("otpcode: alphabet must not be empty")

// Generator produces one-time passcodes.
type Generator interface {
	Generate() (string, error)
}

// RandomCode generates fixed-length codes over an alphabet.
type RandomCode struct {
	length   int
	alphabet string
}

// NewRandomCode creates a generator. Zero or negative length falls back to
// DefaultLength; an empty alphabet falls back to DefaultAlphabet.
func NewRandomCode(length int, alphabet string) *RandomCode {
	if length <= 0 {
		length = DefaultLength
	}
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}

	return &RandomCode{length: length, alphabet: alphabet}
}

// Generate returns a new code. Each position is an independent uniform draw
// via rand.Int, which rejects out-of-range values internally, so there is no
// modulo bias for any alphabet size.
func (g *RandomCode) Generate() (string, error) {
	if len(g.alphabet) == 0 {
		return "", ErrEmptyAlphabet
	}

	var sb strings.Builder
	sb.Grow(g.length)

	max := big.NewInt(int64(len(g.alphabet)))
	for i := 0; i < g.length; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(g.alphabet[idx.Int64()])
	}

	return sb.String(), nil
}

// Package shortid generates the short URL-facing resource identifiers.
package shortid

import (
	"crypto/rand"
	"fmt"
)

// Length is the number of characters in a generated identifier.
const Length = 12

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// New returns a Length-character identifier drawn uniformly from a 62-char
// alphanumeric alphabet using crypto/rand. Identifiers are not sequential
// and not guessable; uniqueness is probabilistic and enforced, if at all,
// by the caller on insert.
func New() (string, error) {
	id := make([]byte, Length)
	// Rejection sampling keeps the draw uniform: a raw byte mod 62 would
	// bias toward the low end of the alphabet.
	buf := make([]byte, 1)
	const max = byte(len(alphabet) * (256 / len(alphabet))) // 248
	for i := 0; i < Length; {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("shortid: read random: %w", err)
		}
		if buf[0] >= max {
			continue
		}
		id[i] = alphabet[int(buf[0])%len(alphabet)]
		i++
	}
	return string(id), nil
}

// MustNew is New for call sites where a random source failure is fatal.
func MustNew() string {
	id, err := New()
	if err != nil {
		panic(err)
	}
	return id
}

// Valid reports whether s has the shape of a generated identifier.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

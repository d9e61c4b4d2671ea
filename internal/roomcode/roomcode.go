package roomcode

import (
	"crypto/rand"
	"strings"
)

// Length is the number of characters in a room code.
const Length = 6

// alphabet omits 0/O and 1/I to keep codes easy to read aloud.
// 32 characters, so a random byte maps onto it without modulo bias.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generate returns a random shareable room code. Generation is stateless;
// uniqueness among live sessions is the registry's job.
func Generate() string {
	b := make([]byte, Length)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}

// Valid reports whether s has the shape of a room code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}

package roomcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := Generate()
		assert.Len(t, code, Length)
		assert.True(t, Valid(code), "generated code %q should be valid", code)
	}
}

func TestGenerateVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[Generate()] = true
	}
	// 32^6 codes; 50 draws colliding would mean a broken source
	assert.Greater(t, len(seen), 45)
}

func TestValid(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("ABC"))
	assert.False(t, Valid("ABCDEFG"))
	assert.False(t, Valid("ABC-12"))
	assert.False(t, Valid("abcdef"), "lowercase is not part of the alphabet")
	assert.False(t, Valid("AB0DEF"), "zero is excluded from the alphabet")
	assert.True(t, Valid("XK7PQ2"))
}

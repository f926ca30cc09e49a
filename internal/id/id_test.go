package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerators(t *testing.T) {
	t.Parallel()

	assert.Len(t, UUID(), 36)
	assert.NotEqual(t, UUID(), UUID())

	assert.Len(t, Short(), 16)
	assert.True(t, strings.HasPrefix(Connection(), "conn-"))

	tok := Token(12)
	assert.Len(t, tok, 12)
	for _, r := range tok {
		assert.Contains(t, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", string(r))
	}
}

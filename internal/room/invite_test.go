package room

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInviteCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateInviteCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	// 100 draws from a 36^8 space colliding would point at a broken generator.
	assert.Equal(t, 100, len(seen))
}

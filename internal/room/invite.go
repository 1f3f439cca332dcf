package room

import (
	"crypto/rand"
	"math/big"
)

const inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateInviteCode returns a random 8-character code from an
// uppercase-alphanumeric alphabet. Uniqueness against existing rooms is the
// caller's job; the store's unique constraint is the backstop.
func generateInviteCode() (string, error) {
	code := make([]byte, inviteCodeLength)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

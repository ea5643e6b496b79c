package utils

import (
	"crypto/rand"
	"fmt"
)

// joinCodeAlphabet omits ambiguous characters (0/O, 1/I/L) so codes
// survive being read aloud or copied from a screen.
const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// JoinCodeLength is the default length of generated join codes.
const JoinCodeLength = 6

// GenerateJoinCode creates a random join code of the given length.
func GenerateJoinCode(length int) (string, error) {
	if length <= 0 {
		length = JoinCodeLength
	}

	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate join code: %w", err)
	}

	code := make([]byte, length)
	for i, b := range bytes {
		code[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(code), nil
}

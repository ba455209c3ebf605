package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const codeDigits = 6

var codeMax = big.NewInt(1000000)

// GenerateCode produces a uniformly random, zero-padded 6-digit verification
// code in [000000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeMax)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}

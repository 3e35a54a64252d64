package raffle

import (
	"crypto/rand"
	"math/big"
)

// RandomGenerator produces uniformly distributed integers
type RandomGenerator interface {
	// GenerateInRange returns a number in [min, max] (inclusive)
	GenerateInRange(min, max int) (int, error)
}

// SecureRandomGenerator implements secure random number generation using crypto/rand
type SecureRandomGenerator struct{}

// NewSecureRandomGenerator creates a new secure random generator
func NewSecureRandomGenerator() *SecureRandomGenerator {
	return &SecureRandomGenerator{}
}

// GenerateInRange generates a secure random number within the specified range [min, max] (inclusive)
func (g *SecureRandomGenerator) GenerateInRange(min, max int) (int, error) {
	if min > max {
		return 0, ErrInvalidParameters.WithDetails("invalid range: min must be less than or equal to max")
	}

	// Handle edge case where min == max
	if min == max {
		return min, nil
	}

	rangeSize := max - min + 1

	randomBig, err := rand.Int(rand.Reader, big.NewInt(int64(rangeSize)))
	if err != nil {
		return 0, err
	}

	return int(randomBig.Int64()) + min, nil
}

package random

import (
	"crypto/rand"
	"math/big"
)

// Random provides randomness for ID and verification code generation,
// mockable for deterministic tests.
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int

	// String generates a random string of the given length drawn from alphabet
	String(length int, alphabet string) string
}

// SecureRandom implements Random on crypto/rand. IDs and verification
// codes are bearer-ish identifiers, so they use a CSPRNG rather than
// math/rand.
type SecureRandom struct{}

// New creates a SecureRandom
func New() *SecureRandom {
	return &SecureRandom{}
}

// Intn returns a cryptographically random int in [0, n)
func (r *SecureRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	result, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails if the OS entropy source is broken
		return 0
	}
	return int(result.Int64())
}

// String generates a random string of the given length drawn from alphabet
func (r *SecureRandom) String(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 {
		return ""
	}
	result := make([]byte, length)
	for i := range result {
		result[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(result)
}

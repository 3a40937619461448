package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// NewServerSeed returns a random 32-byte hex seed and its SHA-256 hash.
// The hash can be published before play and checked with VerifySeed later.
func NewServerSeed() (seed string, hash string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("failed to generate server seed: %w", err)
	}

	seed = hex.EncodeToString(bytes)
	return seed, HashSeed(seed), nil
}

func HashSeed(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

func VerifySeed(seed, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashSeed(seed)), []byte(hash)) == 1
}

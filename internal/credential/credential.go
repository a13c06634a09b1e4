// Package credential holds the one-way transforms for passwords, refresh
// tokens and e-mail verification codes.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const DefaultCodeLength = 6

// Hasher is the slow-hash primitive used for every stored secret.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
}

// Bcrypt hashes with a fixed cost. Zero Cost means bcrypt.DefaultCost.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b Bcrypt) Hash(secret string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(secret), b.cost())
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(out), nil
}

// Verify reports false for a mismatch and for any malformed digest.
func (b Bcrypt) Verify(secret, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}

// prehash keeps bcrypt under its 72 byte input limit for any password length.
func prehash(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// HashPassword returns bcrypt(sha256hex(plain)).
func HashPassword(plain string, cost int) (string, error) {
	return Bcrypt{Cost: cost}.Hash(prehash(plain))
}

// VerifyPassword safely compares a stored password digest and a plain password.
func VerifyPassword(plain, digest string) bool {
	return Bcrypt{}.Verify(prehash(plain), digest)
}

// DecoyDigest returns a password digest at cost that no input matches.
// Verifying against it takes as long as verifying a real password, so
// lookups for unknown accounts can spend the same time as known ones.
func DecoyDigest(cost int) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("decoy secret: %w", err)
	}
	return HashPassword(hex.EncodeToString(buf), cost)
}

// GenerateNumericCode returns n uniformly random decimal digits.
func GenerateNumericCode(n int) (string, error) {
	if n <= 0 {
		n = DefaultCodeLength
	}
	ten := big.NewInt(10)
	buf := make([]byte, n)
	for i := range buf {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}

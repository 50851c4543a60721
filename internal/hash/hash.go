package hash

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the minimum cost accepted for stored secrets.
const DefaultCost = 12

// Hasher hashes passwords and OTP codes with bcrypt. Digests embed their own salt.
type Hasher struct {
	Cost int

	dummyOnce sync.Once
	dummy     []byte
}

func New(cost int) *Hasher {
	if cost == 0 {
		cost = DefaultCost
	}
	return &Hasher{Cost: cost}
}

func (h *Hasher) Hash(plain string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hashbytes), nil
}

// Verify never fails loudly: a malformed digest is simply a non-match.
func (h *Hasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// Burn spends the time of one Verify against a throwaway digest, so callers can
// answer for unknown accounts as slowly as for known ones.
func (h *Hasher) Burn(plain string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), h.Cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}

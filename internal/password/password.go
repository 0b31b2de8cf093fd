package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher wraps bcrypt with a fixed work factor and keeps a throwaway hash
// around so login can burn the same verification cost when no user exists.
type Hasher struct {
	cost      int
	dummyHash string
}

func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}

	return &Hasher{cost: cost, dummyHash: string(dummy)}, nil
}

func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. A wrong password is a plain
// false, never an error.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyDummy runs a full bcrypt comparison against the throwaway hash and
// always fails. Called on the no-such-user path so its duration matches a
// real mismatch.
func (h *Hasher) VerifyDummy(password string) bool {
	_ = bcrypt.CompareHashAndPassword([]byte(h.dummyHash), []byte(password))
	return false
}

package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultLegacySalt is the fixed salt the legacy deployment appended to
// every password before digesting. Identical passwords produce identical
// digests under this scheme, which is why new hashes use bcrypt instead.
const DefaultLegacySalt = "roadease_salt_2024"

// PasswordHasher hashes and verifies passwords. Verify must accept both
// bcrypt digests and legacy fixed-salt SHA-256 digests so accounts imported
// from the legacy store keep working.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

type Hasher struct {
	cost       int
	legacySalt string

	dummyOnce sync.Once
	dummy     string
}

func NewHasher(cost int, legacySalt string) *Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if legacySalt == "" {
		legacySalt = DefaultLegacySalt
	}
	return &Hasher{cost: cost, legacySalt: legacySalt}
}

func (h *Hasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify dispatches on the digest shape: bcrypt digests carry a "$2" version
// prefix, anything else is treated as a legacy hex digest.
func (h *Hasher) Verify(password, digest string) bool {
	if digest == "" {
		return false
	}
	if strings.HasPrefix(digest, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	}
	computed := h.LegacyHash(password)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

// LegacyHash reproduces the legacy scheme: hex SHA-256 of password + fixed
// salt. Deterministic across accounts; retained for verification only.
func (h *Hasher) LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password + h.legacySalt))
	return hex.EncodeToString(sum[:])
}

// DummyDigest is a syntactically valid bcrypt digest of a throwaway value,
// generated at the same cost as real hashes. Login verifies against it when
// no account matched the identifier, so a miss costs the same as a mismatch.
func (h *Hasher) DummyDigest() string {
	h.dummyOnce.Do(func() {
		digest, err := bcrypt.GenerateFromPassword([]byte("workshop-dummy-credential"), h.cost)
		if err != nil {
			return
		}
		h.dummy = string(digest)
	})
	return h.dummy
}

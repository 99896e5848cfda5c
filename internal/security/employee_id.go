package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateEmployeeID returns an EMP-NNNN identifier that does not collide
// with any of the existing ids, retrying up to 100 times before giving up
// and returning the last candidate.
func GenerateEmployeeID(existing []string) (string, error) {
	taken := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		taken[id] = struct{}{}
	}

	var candidate string
	for attempts := 0; attempts < 100; attempts++ {
		n, err := rand.Int(rand.Reader, big.NewInt(9999))
		if err != nil {
			return "", fmt.Errorf("read random number: %w", err)
		}
		candidate = fmt.Sprintf("EMP-%04d", n.Int64()+1)
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}
	return candidate, nil
}

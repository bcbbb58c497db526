// Package slug generates the short public identifiers used in share links.
package slug

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const (
	// Prefix marks a slug as issued by this service.
	Prefix = "jtc"
	// Length is the number of random characters after the prefix.
	Length = 6

	alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var slugRegex = regexp.MustCompile(`^` + Prefix + `[a-z0-9]{6}$`)

// New returns a fresh slug such as "jtc4k9x2a". It does not check for collisions.
func New() (string, error) {
	buf := make([]byte, Length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return Prefix + string(buf), nil
}

// Valid checks if s has the shape of a generated slug
func Valid(s string) bool {
	return slugRegex.MatchString(s)
}

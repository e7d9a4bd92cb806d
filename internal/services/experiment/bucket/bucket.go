// Package bucket assigns visitors to experiment variants deterministically.
package bucket

import (
	"crypto/sha256"
	"encoding/hex"
)

// Experiment variants. A is control, B is treatment.
const (
	VariantA = "A"
	VariantB = "B"
)

// ChooseVariant maps a visitor identifier to a variant using the final hex
// digit of the identifier's SHA-256 digest: even digits bucket to A, odd to
// B. The function is pure, so the same visitor always lands in the same
// bucket regardless of storage state.
func ChooseVariant(visitorID string) string {
	digest := sha256.Sum256([]byte(visitorID))
	hexDigest := hex.EncodeToString(digest[:])
	last := hexDigest[len(hexDigest)-1]
	var nibble byte
	switch {
	case last >= '0' && last <= '9':
		nibble = last - '0'
	default:
		nibble = last - 'a' + 10
	}
	if nibble%2 == 0 {
		return VariantA
	}
	return VariantB
}

// IsValid reports whether value names a known variant.
func IsValid(value string) bool {
	return value == VariantA || value == VariantB
}

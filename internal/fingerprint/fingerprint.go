// Package fingerprint normalises text and computes the content hashes used for
// change detection and article deduplication.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Normalize collapses every run of whitespace into a single space and trims
// the result.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Hash returns the hex SHA-256 of the normalised text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// HashBytes hashes a raw body after normalisation.
func HashBytes(raw []byte) string {
	return Hash(string(raw))
}

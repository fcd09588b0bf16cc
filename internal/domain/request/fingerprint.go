package request

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint generates a deterministic cache key from a message and its
// category. Two semantically identical requests map to the same key: the text
// is lowercased, trimmed, and internal whitespace runs are collapsed to a
// single space. The category is part of the keyed material, so identical text
// under different categories never collides (a cached question answer must
// not serve a greeting).
func Fingerprint(text string, category Category) string {
	combined := string(category) + "|" + Normalize(text)
	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:])
}

// Normalize lowercases the text, trims surrounding whitespace, and collapses
// internal whitespace runs to single spaces.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// CacheKey hashes text together with the numeric parameters that shape its
// summary, so the same chunk under a different length budget gets its own key.
func CacheKey(text string, params ...int) string {
	hasher := sha256.New()
	for _, p := range params {
		hasher.Write([]byte(strconv.Itoa(p)))
		hasher.Write([]byte{0})
	}
	hasher.Write([]byte(text))
	return hex.EncodeToString(hasher.Sum(nil))
}

// ShortHash returns the first 16 hex characters of the SHA-256 of s.
func ShortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// Package checksum fingerprints note content.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the hex-encoded SHA-256 digest of data. It is the persisted
// fingerprint in the metadata cache.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fast returns a 64-bit xxhash of data, used to pair rename events.
func Fast(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// FastString is Fast rendered as fixed-width hex.
func FastString(data []byte) string {
	s := strconv.FormatUint(Fast(data), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}

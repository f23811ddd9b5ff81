// Package digest provides the stable string digests used to derive staging
// directory names. The algorithm is fixed across versions: changing it would
// move every staging directory and break build reproducibility.
package digest

import (
	"crypto/sha1"
	"encoding/hex"
)

// SHA1Hex returns the lowercase hex-encoded SHA-1 digest of s.
func SHA1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint produces a stable hash over the ordered configuration
// fragments of a loader. Callers pass only non-default-valued settings so
// that an unset option and an explicitly-default option hash identically.
// Each fragment is length-framed before hashing so that no concatenation
// of fragments can collide with a different split of the same bytes.
func Fingerprint(parts ...string) string {
	hash := sha256.New()
	for _, part := range parts {
		if part == "" {
			continue
		}
		_, _ = fmt.Fprintf(hash, "%d:%s|", len(part), part)
	}
	return hex.EncodeToString(hash.Sum(nil))
}

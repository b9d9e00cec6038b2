// Package checksum computes content digests used as ETags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/starford/tooknotes/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Note returns the digest of every user-visible field of n.
func Note(n models.Note) string {
	return Sum(fmt.Appendf(nil, "%d\x00%s\x00%s\x00%d\x00%d", n.ID, n.Title, n.Content, n.Timestamp, n.Color))
}

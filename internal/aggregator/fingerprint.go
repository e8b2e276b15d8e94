package aggregator

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/marketpulse/core/internal/model"
)

// Fingerprint computes the stable identity hash over normalized title and
// canonical URL (I1). Articles differing only by tracking params or title
// casing/whitespace fingerprint identically.
func Fingerprint(a model.Article) string {
	title := strings.ToLower(strings.Join(strings.Fields(a.Title), " "))
	sum := sha256.Sum256([]byte(title + "\x00" + a.CanonicalURL))
	return hex.EncodeToString(sum[:])
}

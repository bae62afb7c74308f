package checklist

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/sells-group/grc-cli/internal/model"
)

// ItemID derives the stable checklist item id for a merge key.
//
// Keys already in canonical form (lowercase [a-z0-9._-], no leading or
// trailing '-') are used verbatim. Any other key is normalized and suffixed
// with a short digest of the raw key, so two distinct merge keys never share
// an id regardless of which packs are selected or in what order.
//
// A canonical key that itself ends in '-' plus eight hex digits would be
// indistinguishable from a derived id, so it is suffixed as well. Verbatim ids
// therefore never carry that shape.
func ItemID(mergeKey string) string {
	norm := normalizeKey(mergeKey)
	if norm == mergeKey && norm != "" && !hasDigestSuffix(norm) {
		return norm
	}
	sum := sha256.Sum256([]byte(mergeKey))
	digest := hex.EncodeToString(sum[:])[:digestLen]
	if norm == "" {
		return "item-" + digest
	}
	return norm + "-" + digest
}

const digestLen = 8

// hasDigestSuffix reports whether s ends in '-' followed by digestLen
// lowercase hex digits.
func hasDigestSuffix(s string) bool {
	if len(s) <= digestLen || s[len(s)-digestLen-1] != '-' {
		return false
	}
	for _, r := range s[len(s)-digestLen:] {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func normalizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// mergeKeyFor returns the requirement's merge key, falling back to a
// pack-qualified key for requirements that do not declare one.
func mergeKeyFor(pack model.ControlPack, req model.Requirement) string {
	if k := strings.TrimSpace(req.MergeKey); k != "" {
		return k
	}
	return pack.Domain + "." + pack.ID + "." + req.ID
}

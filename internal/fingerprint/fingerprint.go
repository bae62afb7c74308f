// Package fingerprint computes the hashes stamped on every checklist
// generation. Each hash is a pure function of its inputs; none of them covers
// user workflow state.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/grc-cli/internal/model"
)

// Field names reported by Drift.
const (
	FieldGeneratorVersion = "generator_version"
	FieldTaxonomy         = "taxonomy_hash"
	FieldPacks            = "packs_hash"
	FieldChecklist        = "checklist_hash"
)

// Sum returns the hex sha256 digest of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// TaxonomyHash digests the canonical JSON form of the full industry list.
func TaxonomyHash(industries []model.Industry) (string, error) {
	if industries == nil {
		industries = []model.Industry{}
	}
	data, err := json.Marshal(industries)
	if err != nil {
		return "", eris.Wrap(err, "fingerprint: marshal taxonomy")
	}
	return Sum(data), nil
}

// PacksHash digests "domain:id:version:content_hash" for each pack, joined
// with '|' in selection order.
func PacksHash(packs []model.ControlPack) string {
	parts := make([]string, len(packs))
	for i, p := range packs {
		parts[i] = p.Domain + ":" + p.ID + ":" + p.Version + ":" + p.ContentHash
	}
	return Sum([]byte(strings.Join(parts, "|")))
}

// ChecklistHash digests the ordered (merge_key, severity, title) triples.
// Status, owner, notes and evidence are deliberately excluded.
func ChecklistHash(items []model.ChecklistItem) (string, error) {
	triples := make([][3]string, len(items))
	for i, it := range items {
		triples[i] = [3]string{it.MergeKey, string(it.Severity), it.Title}
	}
	data, err := json.Marshal(triples)
	if err != nil {
		return "", eris.Wrap(err, "fingerprint: marshal checklist")
	}
	return Sum(data), nil
}

// Compute stamps a full fingerprint set.
func Compute(generatorVersion string, industries []model.Industry, packs []model.ControlPack, items []model.ChecklistItem) (model.FingerprintSet, error) {
	taxHash, err := TaxonomyHash(industries)
	if err != nil {
		return model.FingerprintSet{}, err
	}
	clHash, err := ChecklistHash(items)
	if err != nil {
		return model.FingerprintSet{}, err
	}
	return model.FingerprintSet{
		GeneratorVersion: generatorVersion,
		TaxonomyHash:     taxHash,
		PacksHash:        PacksHash(packs),
		ChecklistHash:    clHash,
	}, nil
}

// Drift lists the fields that differ between a stored and a freshly computed
// fingerprint set, in a fixed order.
func Drift(stored, current model.FingerprintSet) []string {
	var changed []string
	if stored.GeneratorVersion != current.GeneratorVersion {
		changed = append(changed, FieldGeneratorVersion)
	}
	if stored.TaxonomyHash != current.TaxonomyHash {
		changed = append(changed, FieldTaxonomy)
	}
	if stored.PacksHash != current.PacksHash {
		changed = append(changed, FieldPacks)
	}
	if stored.ChecklistHash != current.ChecklistHash {
		changed = append(changed, FieldChecklist)
	}
	return changed
}

package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/grc-cli/internal/model"
)

// LoadPackFile reads and validates a single control pack document.
func LoadPackFile(path string) (model.ControlPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ControlPack{}, eris.Wrapf(err, "registry: read pack %s", path)
	}
	pack, err := ParsePack(data)
	if err != nil {
		return model.ControlPack{}, eris.Wrapf(err, "registry: parse pack %s", path)
	}
	return pack, nil
}

// ParsePack decodes a YAML control pack and stamps its content hash, the
// sha256 of the raw document bytes.
func ParsePack(data []byte) (model.ControlPack, error) {
	var pack model.ControlPack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return model.ControlPack{}, eris.Wrap(err, "registry: unmarshal pack")
	}

	pack.Domain = strings.TrimSpace(pack.Domain)
	pack.ID = strings.TrimSpace(pack.ID)
	pack.Version = strings.TrimSpace(pack.Version)
	if pack.Domain == "" || pack.ID == "" || pack.Version == "" {
		return model.ControlPack{}, eris.New("registry: pack requires domain, id and version")
	}

	seen := make(map[string]bool, len(pack.Requirements))
	for i := range pack.Requirements {
		req := &pack.Requirements[i]
		req.ID = strings.TrimSpace(req.ID)
		req.MergeKey = strings.TrimSpace(req.MergeKey)
		req.Title = strings.TrimSpace(req.Title)

		if req.ID == "" {
			return model.ControlPack{}, eris.Errorf("registry: requirement %d in %s has no id", i, pack.Ref())
		}
		if seen[req.ID] {
			return model.ControlPack{}, eris.Errorf("registry: duplicate requirement id %s in %s", req.ID, pack.Ref())
		}
		seen[req.ID] = true

		if req.Title == "" {
			return model.ControlPack{}, eris.Errorf("registry: requirement %s in %s has no title", req.ID, pack.Ref())
		}
		if _, err := model.ParseSeverity(string(req.Severity)); err != nil {
			return model.ControlPack{}, eris.Wrapf(err, "registry: requirement %s in %s", req.ID, pack.Ref())
		}
	}

	sum := sha256.Sum256(data)
	pack.ContentHash = hex.EncodeToString(sum[:])
	return pack, nil
}

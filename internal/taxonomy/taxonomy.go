// Package taxonomy loads the industry / segment / use-case tree that projects
// are scoped against.
package taxonomy

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/grc-cli/internal/model"
)

// Taxonomy is an immutable, indexed industry tree.
type Taxonomy struct {
	industries []model.Industry
	useCases   map[string]model.UseCase
}

type document struct {
	Industries []model.Industry `yaml:"industries"`
}

// Load reads a taxonomy YAML file.
func Load(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: read %s", path)
	}
	return Parse(data)
}

// Parse decodes a taxonomy document and indexes its use cases. Use case ids
// must be unique across the whole tree.
func Parse(data []byte) (*Taxonomy, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "taxonomy: unmarshal")
	}
	return New(doc.Industries)
}

// New indexes an in-memory industry list.
func New(industries []model.Industry) (*Taxonomy, error) {
	t := &Taxonomy{
		industries: industries,
		useCases:   make(map[string]model.UseCase),
	}
	for _, ind := range industries {
		if strings.TrimSpace(ind.ID) == "" {
			return nil, eris.New("taxonomy: industry without id")
		}
		for _, seg := range ind.Segments {
			if strings.TrimSpace(seg.ID) == "" {
				return nil, eris.Errorf("taxonomy: segment without id in industry %s", ind.ID)
			}
			for _, uc := range seg.UseCases {
				if strings.TrimSpace(uc.ID) == "" {
					return nil, eris.Errorf("taxonomy: use case without id in %s/%s", ind.ID, seg.ID)
				}
				if prev, dup := t.useCases[uc.ID]; dup {
					return nil, eris.Errorf("taxonomy: use case %s declared in both %s/%s and %s/%s",
						uc.ID, prev.Industry.ID, prev.Segment.ID, ind.ID, seg.ID)
				}
				t.useCases[uc.ID] = model.UseCase{
					ID:          uc.ID,
					Name:        uc.Name,
					Description: uc.Description,
					Tags:        uc.Tags,
					Industry:    model.Ref{ID: ind.ID, Name: ind.Name},
					Segment:     model.Ref{ID: seg.ID, Name: seg.Name},
				}
			}
		}
	}
	return t, nil
}

// UseCase resolves a use case id together with its declaring industry and
// segment.
func (t *Taxonomy) UseCase(id string) (model.UseCase, bool) {
	uc, ok := t.useCases[id]
	return uc, ok
}

// Industries returns the full industry list in declaration order. Callers
// must not modify it.
func (t *Taxonomy) Industries() []model.Industry {
	return t.industries
}

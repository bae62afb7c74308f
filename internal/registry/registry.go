package registry

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/grc-cli/internal/model"
)

// maxParallelLoads bounds concurrent pack file parsing during List.
const maxParallelLoads = 8

var packExts = []string{".yaml", ".yml"}

// Pack identifiers double as path segments, so they are restricted to a safe
// character set.
var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// PackRegistry resolves control packs from a directory tree laid out as
// <root>/<domain>/<pack_id>/<version>.yaml. Loaded packs are cached; pack
// files are treated as immutable once published.
type PackRegistry struct {
	root string

	mu    sync.RWMutex
	cache map[model.SelectedPack]model.ControlPack
}

// NewPackRegistry creates a registry rooted at dir.
func NewPackRegistry(dir string) *PackRegistry {
	return &PackRegistry{
		root:  dir,
		cache: make(map[model.SelectedPack]model.ControlPack),
	}
}

// Lookup resolves a pack by identity. The boolean is false when no pack with
// that (domain, pack id, version) exists; the error is reserved for packs
// that exist but cannot be read or parsed.
func (r *PackRegistry) Lookup(ctx context.Context, ref model.SelectedPack) (model.ControlPack, bool, error) {
	ref = ref.Normalize()
	if !validSegment(ref.Domain) || !validSegment(ref.PackID) || !validSegment(ref.Version) {
		return model.ControlPack{}, false, nil
	}

	r.mu.RLock()
	cached, ok := r.cache[ref]
	r.mu.RUnlock()
	if ok {
		return cached, true, nil
	}

	if err := ctx.Err(); err != nil {
		return model.ControlPack{}, false, eris.Wrap(err, "registry: lookup")
	}

	path, found := r.packPath(ref)
	if !found {
		return model.ControlPack{}, false, nil
	}

	pack, err := LoadPackFile(path)
	if err != nil {
		return model.ControlPack{}, false, err
	}
	if pack.Ref() != ref {
		return model.ControlPack{}, false, eris.Errorf("registry: %s declares identity %s", path, pack.Ref())
	}

	r.mu.Lock()
	r.cache[ref] = pack
	r.mu.Unlock()

	return pack, true, nil
}

// List loads every pack under the root and returns them ordered by domain,
// pack id and version.
func (r *PackRegistry) List(ctx context.Context) ([]model.ControlPack, error) {
	var paths []string
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !hasPackExt(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("registry: pack directory does not exist", zap.String("dir", r.root))
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "registry: walk %s", r.root)
	}

	packs := make([]model.ControlPack, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pack, err := LoadPackFile(path)
			if err != nil {
				return err
			}
			packs[i] = pack
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "registry: list packs")
	}

	r.mu.Lock()
	for _, p := range packs {
		r.cache[p.Ref()] = p
	}
	r.mu.Unlock()

	sort.Slice(packs, func(i, j int) bool {
		a, b := packs[i], packs[j]
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Version < b.Version
	})
	return packs, nil
}

func (r *PackRegistry) packPath(ref model.SelectedPack) (string, bool) {
	for _, ext := range packExts {
		path := filepath.Join(r.root, ref.Domain, ref.PackID, ref.Version+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func validSegment(s string) bool {
	return segmentPattern.MatchString(s) && !strings.Contains(s, "..")
}

func hasPackExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range packExts {
		if ext == e {
			return true
		}
	}
	return false
}

// Package evidence stores uploaded evidence files.
//
// Files live under <root>/<project_id>/<item_id>/ and are named with a prefix
// of their sha256 digest, so re-uploading identical content under the same
// name resolves to the same object.
package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
)

// DefaultFilename is used for uploads that carry no file name.
const DefaultFilename = "upload.bin"

// ErrTooLarge is returned when an upload exceeds the configured size limit.
var ErrTooLarge = eris.New("evidence: upload exceeds size limit")

// Stored describes a persisted evidence object.
type Stored struct {
	Ref    string // path relative to the store root
	SHA256 string
	Size   int64

	// Created is false when identical content under the same name was
	// already stored. Only created objects may be removed on rollback.
	Created bool
}

// Store writes evidence blobs to a filesystem.
type Store struct {
	fs       afero.Fs
	maxBytes int64
}

// NewStore creates a store rooted at dir on the local disk. maxBytes <= 0
// disables the size limit.
func NewStore(dir string, maxBytes int64) *Store {
	return NewStoreFs(afero.NewBasePathFs(afero.NewOsFs(), dir), maxBytes)
}

// NewStoreFs creates a store on an arbitrary afero filesystem.
func NewStoreFs(fs afero.Fs, maxBytes int64) *Store {
	return &Store{fs: fs, maxBytes: maxBytes}
}

// Save streams r to the store while hashing it. The object becomes visible
// only after it has been fully written. Callers serialize saves per project.
func (s *Store) Save(ctx context.Context, projectID, itemID, filename string, r io.Reader) (*Stored, error) {
	dir := path.Join(safeSegment(projectID), safeSegment(itemID))
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "evidence: mkdir %s", dir)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".upload-*")
	if err != nil {
		return nil, eris.Wrap(err, "evidence: create temp file")
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()          //nolint:errcheck
		s.fs.Remove(tmpName) //nolint:errcheck
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), &ctxReader{ctx: ctx, r: src})
	if err != nil {
		cleanup()
		return nil, eris.Wrap(err, "evidence: write upload")
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		cleanup()
		return nil, eris.Wrapf(ErrTooLarge, "evidence: %d bytes allowed", s.maxBytes)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName) //nolint:errcheck
		return nil, eris.Wrap(err, "evidence: close upload")
	}

	sum := hex.EncodeToString(h.Sum(nil))
	ref := path.Join(dir, sum[:16]+"-"+SafeFilename(filename))
	stored := &Stored{Ref: ref, SHA256: sum, Size: n}

	exists, err := afero.Exists(s.fs, ref)
	if err != nil {
		s.fs.Remove(tmpName) //nolint:errcheck
		return nil, eris.Wrapf(err, "evidence: stat %s", ref)
	}
	if exists {
		s.fs.Remove(tmpName) //nolint:errcheck
		return stored, nil
	}
	if err := s.fs.Rename(tmpName, ref); err != nil {
		s.fs.Remove(tmpName) //nolint:errcheck
		return nil, eris.Wrapf(err, "evidence: store %s", ref)
	}
	stored.Created = true
	return stored, nil
}

// Remove deletes a single object. Missing objects are not an error.
func (s *Store) Remove(ref string) error {
	err := s.fs.Remove(path.Clean(ref))
	if err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "evidence: remove %s", ref)
	}
	return nil
}

// DeleteProject removes every object stored for a project.
func (s *Store) DeleteProject(projectID string) error {
	return eris.Wrapf(s.fs.RemoveAll(safeSegment(projectID)), "evidence: delete project %s", projectID)
}

// SafeFilename strips directory components and characters that are unsafe
// in file names. An empty result becomes DefaultFilename.
func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return DefaultFilename
	}
	return out
}

func safeSegment(s string) string {
	s = SafeFilename(s)
	if s == DefaultFilename {
		return "_"
	}
	return s
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Package sandbox confines filesystem tool paths to a single root directory.
//
// Every path-valued tool argument passes through Root.Validate before any
// filesystem access. Validation is pure: it resolves the path to a canonical
// absolute form and checks containment, leaving all I/O to the caller. The
// containment check is path-segment-aware, so "/data-evil" never passes for
// root "/data".
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsbridge/fsbridge-go/internal/errors"
)

// Root is the canonical sandbox root directory. It is immutable after
// construction and safe to share across concurrent handler invocations
// without locking.
type Root struct {
	path string
}

// New canonicalizes dir and returns it as a sandbox root. The directory must
// exist so the root itself cannot be replaced by a symlink after validation
// starts.
func New(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root %s: %w", dir, err)
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root %s: %w", dir, err)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("stat sandbox root %s: %w", dir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root %s is not a directory", dir)
	}

	return &Root{path: canonical}, nil
}

// Path returns the canonical root directory.
func (r *Root) Path() string {
	return r.path
}

// Validate resolves raw against the root and returns its canonical absolute
// form, or *errors.PathEscapeError if the resolved path falls outside the
// root. Relative paths are joined to the root; absolute paths are accepted
// only if they already point inside it.
//
// All "." and ".." segments and symbolic links are resolved before the
// containment check, so neither lexical traversal nor a link pointing
// outside the root can pass. Validate is idempotent: validating its own
// output returns the same path.
func (r *Root) Validate(raw string) (string, error) {
	joined := raw
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(r.path, joined)
	}

	joined = filepath.Clean(joined)

	canonical, err := resolveSymlinks(joined)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", raw, err)
	}

	if !r.contains(canonical) {
		return "", &errors.PathEscapeError{Path: raw, Root: r.path}
	}

	return canonical, nil
}

// contains reports whether p equals the root or has the root as a proper
// path-segment prefix.
func (r *Root) contains(p string) bool {
	if p == r.path {
		return true
	}

	return strings.HasPrefix(p, r.path+string(filepath.Separator))
}

// resolveSymlinks canonicalizes path, tolerating nonexistent trailing
// components so paths for files about to be created can still be validated.
// The longest existing ancestor is fully resolved and the nonexistent
// remainder is re-attached lexically.
func resolveSymlinks(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}

	if !os.IsNotExist(err) {
		return "", err
	}

	parent := filepath.Dir(path)
	if parent == path {
		// Filesystem root does not exist; nothing left to resolve.
		return "", err
	}

	resolvedParent, err := resolveSymlinks(parent)
	if err != nil {
		return "", err
	}

	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}

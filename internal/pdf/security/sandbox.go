// Package security confines the files the converter reads and writes to a
// configured root directory.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that escape the sandbox root
var ErrOutsideRoot = errors.New("path is outside configured directory")

// Sandbox resolves caller supplied paths against a root directory and
// rejects anything that escapes it, including through symlinks.
type Sandbox struct {
	root string
}

// NewSandbox creates a sandbox rooted at dir. The directory does not need to
// exist yet; until it does, every path is accepted.
func NewSandbox(dir string) (*Sandbox, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}
	return &Sandbox{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute sandbox root
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve turns path into an absolute path inside the root. Relative paths
// are taken relative to the root; NUL bytes are stripped.
func (s *Sandbox) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	abs := filepath.Clean(path)

	ok, err := s.Contains(abs)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return abs, nil
}

// ResolveDir resolves a directory the same way as Resolve and additionally
// requires that, when it exists, it is a directory. An empty dir resolves to
// the root itself.
func (s *Sandbox) ResolveDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return s.root, nil
	}
	abs, err := s.Resolve(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return abs, nil
	}
	if err != nil {
		return "", fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", dir)
	}
	return abs, nil
}

// Contains reports whether an absolute path lies within the root, checking
// both the lexical path and its symlink-resolved target.
func (s *Sandbox) Contains(abs string) (bool, error) {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return true, nil
	}

	realRoot := s.root
	if resolved, err := filepath.EvalSymlinks(s.root); err == nil {
		realRoot = resolved
	}

	realPath := abs
	if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return false, fmt.Errorf("cannot resolve symlink: %w", err)
		}
		realPath = resolved
	}

	lexicalOK := within(abs, s.root) || within(abs, realRoot)
	realOK := within(realPath, s.root) || within(realPath, realRoot)
	return lexicalOK && realOK, nil
}

func within(path, root string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

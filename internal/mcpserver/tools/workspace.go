package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace confines tool file access to a set of root directories
type Workspace struct {
	roots []string
}

// NewWorkspace resolves roots to absolute, symlink-free paths.
// An empty list defaults to the current working directory.
func NewWorkspace(roots []string) (*Workspace, error) {
	if len(roots) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getwd: %w", err)
		}
		roots = []string{cwd}
	}

	resolved := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("abs(%s): %w", root, err)
		}
		if r, err := filepath.EvalSymlinks(abs); err == nil {
			abs = r
		}
		resolved = append(resolved, abs)
	}
	return &Workspace{roots: resolved}, nil
}

// Roots returns the resolved workspace roots
func (w *Workspace) Roots() []string {
	return append([]string(nil), w.roots...)
}

// Resolve maps p to an absolute path inside one of the roots.
// Relative paths resolve against the first root. Symlinks are followed
// (for the leaf when it exists, else its parent) before the boundary check.
func (w *Workspace) Resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("path is empty")
	}

	candidate := filepath.Clean(p)
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(w.roots[0], candidate)
	}

	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else if parent, err := filepath.EvalSymlinks(filepath.Dir(candidate)); err == nil {
		candidate = filepath.Join(parent, filepath.Base(candidate))
	}

	for _, root := range w.roots {
		if within(root, candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("path %q is outside the workspace roots", p)
}

func within(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

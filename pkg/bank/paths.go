package bank

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathValidator confines all file access to a configured root directory.
// It has no side effects; every method is a pure function of (root, input).
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator anchored at root.
func NewPathValidator(root string) (*PathValidator, error) {
	if root == "" {
		return nil, opError(CodeInvalidArgument, "validator", "", fmt.Errorf("root directory is required"))
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, opError(CodeInvalidArgument, "validator", root, err)
	}

	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the normalized absolute root directory.
func (v *PathValidator) Root() string {
	return v.root
}

// ResolveType returns the absolute path for a known file type.
func (v *PathValidator) ResolveType(t FileType) (string, error) {
	rel, ok := t.RelativePath()
	if !ok {
		return "", opError(CodeUnknownFileType, "resolve", string(t), fmt.Errorf("unknown file type: %q", t))
	}
	return v.ResolvePath(rel)
}

// ResolvePath returns the absolute path for an arbitrary relative path,
// guaranteed to resolve inside the root.
func (v *PathValidator) ResolvePath(rel string) (string, error) {
	if rel == "" {
		return "", opError(CodeInvalidPath, "resolve", rel, fmt.Errorf("path cannot be empty"))
	}

	if strings.ContainsRune(rel, 0) {
		return "", opError(CodeInvalidPath, "resolve", rel, fmt.Errorf("path contains NUL byte"))
	}

	if filepath.IsAbs(rel) {
		return "", opError(CodeInvalidPath, "resolve", rel, fmt.Errorf("path must be relative, got absolute path"))
	}

	// Check for parent directory references
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg == ".." {
			return "", opError(CodeInvalidPath, "resolve", rel, fmt.Errorf("path cannot reference parent directories"))
		}
	}

	if filepath.Clean(rel) == "." {
		return "", opError(CodeInvalidPath, "resolve", rel, fmt.Errorf("path resolves to the root itself"))
	}

	full := filepath.Clean(filepath.Join(v.root, rel))

	// Containment must hold after normalization as well.
	if !strings.HasPrefix(full, v.root+string(filepath.Separator)) {
		return "", opError(CodePathEscape, "resolve", rel, fmt.Errorf("path escapes root directory"))
	}

	return full, nil
}

// Relative returns the path of abs relative to the root.
func (v *PathValidator) Relative(abs string) (string, error) {
	rel, err := filepath.Rel(v.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", opError(CodePathEscape, "relative", abs, fmt.Errorf("path is outside root"))
	}
	return rel, nil
}

// Package paths normalizes filesystem paths and file:// URIs so that
// every component (fingerprints, cache invalidation, search scoping)
// agrees on a single canonical form for the same resource.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// WorkspaceScope is the canonical token for requests that address the
// whole workspace rather than a single file.
const WorkspaceScope = "workspace"

const (
	fileScheme = "file://"
	unknownURI = "file://unknown"
)

// NormalizeURI canonicalizes a request URI. Empty strings and the
// "file://unknown" placeholder both collapse to WorkspaceScope; every
// other form (bare path, relative path, file:// URI) canonicalizes to
// exactly one "file:///abs/path" spelling so fingerprints and cache
// invalidation agree.
func NormalizeURI(uri string, workspaceRoot string) string {
	trimmed := strings.TrimSpace(uri)
	if trimmed == "" || trimmed == unknownURI {
		return WorkspaceScope
	}

	p := strings.TrimPrefix(trimmed, fileScheme)
	if !filepath.IsAbs(p) {
		p = filepath.Join(workspaceRoot, p)
	}
	p = filepath.ToSlash(filepath.Clean(p))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return fileScheme + p
}

// URIToPath converts a file:// URI (or bare path) to a filesystem path.
// Returns workspaceRoot for the workspace-scope token and empty input.
func URIToPath(uri string, workspaceRoot string) string {
	trimmed := strings.TrimSpace(uri)
	if trimmed == "" || trimmed == unknownURI || trimmed == WorkspaceScope {
		return workspaceRoot
	}
	p := strings.TrimPrefix(trimmed, fileScheme)
	if !filepath.IsAbs(p) {
		p = filepath.Join(workspaceRoot, p)
	}
	return filepath.Clean(p)
}

// PathToURI converts a filesystem path to its canonical file:// URI.
func PathToURI(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return fileScheme + p
}

// ScopeDir returns the directory a request URI implies for search
// scoping: the URI's parent directory, or the workspace root when the
// request is workspace-wide.
func ScopeDir(uri string, workspaceRoot string) string {
	if strings.TrimSpace(uri) == "" || uri == unknownURI || uri == WorkspaceScope {
		return workspaceRoot
	}
	p := URIToPath(uri, workspaceRoot)
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		return p
	}
	return filepath.Dir(p)
}

// CanonicalizePath converts an absolute path to a workspace-relative
// canonical path: symlinks resolved, forward slashes.
func CanonicalizePath(absolutePath string, workspaceRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// If the file doesn't exist yet, use the path as-is
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(workspaceRoot)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = workspaceRoot
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinWorkspace checks if a path is inside the workspace root.
func IsWithinWorkspace(path string, workspaceRoot string) bool {
	canonical, err := CanonicalizePath(path, workspaceRoot)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(canonical, "..")
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// JoinWorkspacePath joins the workspace root with a canonical path.
func JoinWorkspacePath(workspaceRoot string, canonicalPath string) string {
	normalized := strings.ReplaceAll(canonicalPath, "\\", "/")
	parts := strings.Split(normalized, "/")
	return filepath.Join(append([]string{workspaceRoot}, parts...)...)
}

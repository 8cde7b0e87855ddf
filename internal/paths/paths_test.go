package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeURI(t *testing.T) {
	root := "/work/space"

	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"empty means workspace", "", WorkspaceScope},
		{"whitespace means workspace", "   ", WorkspaceScope},
		{"unknown placeholder means workspace", "file://unknown", WorkspaceScope},
		{"absolute path", "/work/space/src/a.ts", "file:///work/space/src/a.ts"},
		{"file uri passes through", "file:///work/space/src/a.ts", "file:///work/space/src/a.ts"},
		{"uncleaned path", "/work/space/src/../src/a.ts", "file:///work/space/src/a.ts"},
		{"relative joined to root", "src/a.ts", "file:///work/space/src/a.ts"},
		{"trailing slash cleaned", "/work/space/src/", "file:///work/space/src"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURI(tt.uri, root); got != tt.want {
				t.Errorf("NormalizeURI(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}

func TestNormalizeURICollapsesEquivalentForms(t *testing.T) {
	root := "/work/space"
	forms := []string{
		"/work/space/pkg/user.go",
		"file:///work/space/pkg/user.go",
		"pkg/user.go",
		"/work/space/./pkg/user.go",
	}

	want := NormalizeURI(forms[0], root)
	for _, f := range forms[1:] {
		if got := NormalizeURI(f, root); got != want {
			t.Errorf("NormalizeURI(%q) = %q, want %q", f, got, want)
		}
	}
}

func TestURIToPath(t *testing.T) {
	root := "/work/space"

	tests := []struct {
		uri  string
		want string
	}{
		{"", root},
		{"file://unknown", root},
		{WorkspaceScope, root},
		{"file:///work/space/a.go", "/work/space/a.go"},
		{"/work/space/a.go", "/work/space/a.go"},
		{"a.go", "/work/space/a.go"},
	}

	for _, tt := range tests {
		if got := URIToPath(tt.uri, root); got != tt.want {
			t.Errorf("URIToPath(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestPathToURIRoundTrip(t *testing.T) {
	path := "/work/space/internal/cache/store.go"
	uri := PathToURI(path)
	if uri != "file:///work/space/internal/cache/store.go" {
		t.Fatalf("PathToURI = %q", uri)
	}
	if got := URIToPath(uri, "/work/space"); got != path {
		t.Errorf("round trip = %q, want %q", got, path)
	}
}

func TestScopeDir(t *testing.T) {
	tempDir := t.TempDir()
	sub := filepath.Join(tempDir, "src")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file := filepath.Join(sub, "a.go")
	if err := os.WriteFile(file, []byte("package a"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Run("workspace-wide request scopes to root", func(t *testing.T) {
		if got := ScopeDir("", tempDir); got != tempDir {
			t.Errorf("ScopeDir = %q, want %q", got, tempDir)
		}
	})

	t.Run("file uri scopes to parent dir", func(t *testing.T) {
		if got := ScopeDir(PathToURI(file), tempDir); got != sub {
			t.Errorf("ScopeDir = %q, want %q", got, sub)
		}
	})

	t.Run("directory uri scopes to itself", func(t *testing.T) {
		if got := ScopeDir(PathToURI(sub), tempDir); got != sub {
			t.Errorf("ScopeDir = %q, want %q", got, sub)
		}
	})
}

func TestCanonicalizePath(t *testing.T) {
	tempDir := t.TempDir()

	testFile := filepath.Join(tempDir, "subdir", "test.go")
	if err := os.MkdirAll(filepath.Dir(testFile), 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if err := os.WriteFile(testFile, []byte("package test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	canonical, err := CanonicalizePath(testFile, tempDir)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}

	if canonical != "subdir/test.go" {
		t.Errorf("Expected subdir/test.go, got %s", canonical)
	}
}

func TestIsWithinWorkspace(t *testing.T) {
	tempDir := t.TempDir()

	testFile := filepath.Join(tempDir, "subdir", "test.go")
	if err := os.MkdirAll(filepath.Dir(testFile), 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if err := os.WriteFile(testFile, []byte("package test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !IsWithinWorkspace(testFile, tempDir) {
		t.Error("Expected file to be within workspace")
	}

	outsideFile := filepath.Join(os.TempDir(), "outside.go")
	if IsWithinWorkspace(outsideFile, tempDir) {
		t.Error("Expected file outside workspace to return false")
	}
}

func TestJoinWorkspacePath(t *testing.T) {
	result := JoinWorkspacePath("/repo/root", "path/to/file.go")
	expected := filepath.Join("/repo/root", "path", "to", "file.go")
	if result != expected {
		t.Errorf("JoinWorkspacePath: expected %s, got %s", expected, result)
	}
}

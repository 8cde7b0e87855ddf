package propagate

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"strata/internal/layers"
	"strata/internal/logging"
	"strata/internal/search"
)

func newTestBackend(t *testing.T, root string) *Backend {
	t.Helper()
	engine := search.NewEngine(search.Config{
		WorkspaceRoot: root,
		MaxWorkers:    2,
		Timeout:       5 * time.Second,
	}, logging.NewLogger(logging.Config{Level: logging.ErrorLevel, Output: io.Discard}))
	t.Cleanup(func() { _ = engine.Close() })
	return New(engine, root)
}

func TestPropagateStyledReplacements(t *testing.T) {
	root := t.TempDir()
	content := "getUser()\nget_user = 1\nGET_USER = 2\n"
	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	b := newTestBackend(t, root)

	edits, err := b.Propagate(context.Background(), "getUser", "fetchAccount", "")
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}

	uri := "file://" + filepath.ToSlash(filepath.Join(root, "a.py"))
	fileEdits := edits[uri]
	if len(fileEdits) != 2 {
		t.Fatalf("edits = %v, want the snake and screaming-snake variants only", edits)
	}

	byText := map[string]bool{}
	for _, e := range fileEdits {
		byText[e.NewText] = true
	}
	if !byText["fetch_account"] || !byText["FETCH_ACCOUNT"] {
		t.Errorf("replacements = %v, want styled renderings of the new name", byText)
	}
}

func TestPropagateNoVariantsPresent(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0644); err != nil {
		t.Fatal(err)
	}
	b := newTestBackend(t, root)

	edits, err := b.Propagate(context.Background(), "getUser", "fetchUser", "")
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if edits.Size() != 0 {
		t.Errorf("edits = %v, want none", edits)
	}
}

func TestResolveReportsRelatedOccurrences(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("get_user = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	b := newTestBackend(t, root)

	out, err := b.Resolve(context.Background(), layers.Query{
		Operation:  layers.OpFindReferences,
		Identifier: "getUser",
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(out.References) != 1 {
		t.Fatalf("references = %v", out.References)
	}
	ref := out.References[0]
	if ref.Name != "get_user" || ref.Source != layers.SourceConceptual || ref.Confidence != confRelated {
		t.Errorf("reference = %+v", ref)
	}
	if ref.Layer != layers.Layer5 {
		t.Errorf("layer = %s", ref.Layer)
	}
}

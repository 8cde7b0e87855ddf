package patterns

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"strata/internal/layers"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "patterns.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDeriveRewrite(t *testing.T) {
	tests := []struct {
		name     string
		oldName  string
		newName  string
		wantFrom string
		wantTo   string
		wantKind RewriteKind
		wantOK   bool
	}{
		{"prefix swap", "getUser", "fetchUser", "get", "fetch", RewritePrefix, true},
		{"prefix swap snake", "get_user", "fetch_user", "get", "fetch", RewritePrefix, true},
		{"suffix swap", "userList", "userCollection", "list", "collection", RewriteSuffix, true},
		{"whole rename", "foo", "bar", "foo", "bar", RewriteWhole, true},
		{"multi-token whole", "getUser", "loadAccountData", "getUser", "loadAccountData", RewriteWhole, true},
		{"same name", "getUser", "getUser", "", "", "", false},
		{"empty old", "", "x", "", "", "", false},
		{"empty new", "x", "", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := DeriveRewrite(tt.oldName, tt.newName)
			if ok != tt.wantOK {
				t.Fatalf("ok = %t, want %t", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if p.FromToken != tt.wantFrom || p.ToToken != tt.wantTo || p.Kind != tt.wantKind {
				t.Errorf("DeriveRewrite = %s->%s (%s), want %s->%s (%s)",
					p.FromToken, p.ToToken, p.Kind, tt.wantFrom, tt.wantTo, tt.wantKind)
			}
		})
	}
}

func TestLearnAccumulatesSupport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rc := layers.RenameContext{OldName: "getUser", NewName: "fetchUser"}
		if err := s.Learn(ctx, rc); err != nil {
			t.Fatalf("Learn: %v", err)
		}
	}
	// A different rename teaching the same rewrite.
	if err := s.Learn(ctx, layers.RenameContext{OldName: "getOrder", NewName: "fetchOrder"}); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("stored %d patterns, want 1 merged rewrite", len(all))
	}
	p := all[0]
	if p.FromToken != "get" || p.ToToken != "fetch" || p.Kind != RewritePrefix {
		t.Errorf("stored pattern = %s->%s (%s)", p.FromToken, p.ToToken, p.Kind)
	}
	if p.Support != 4 {
		t.Errorf("support = %d, want 4", p.Support)
	}
}

func TestLearnUnlearnablePair(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Learn(ctx, layers.RenameContext{OldName: "same", NewName: "same"}); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("unlearnable pair stored %d patterns", n)
	}
}

func TestAllOrdersBySupport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_ = s.Upsert(ctx, Pattern{FromToken: "rare", ToToken: "scarce", Kind: RewriteWhole, Support: 1})
	for i := 0; i < 5; i++ {
		_ = s.Upsert(ctx, Pattern{FromToken: "get", ToToken: "fetch", Kind: RewritePrefix, Support: 1})
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("stored %d patterns, want 2", len(all))
	}
	if all[0].FromToken != "get" {
		t.Errorf("highest-support pattern not first: %v", all[0])
	}
}

func TestLoadSeeds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "patterns.toml")
	doc := `
[[patterns]]
from = "get"
to = "fetch"
kind = "prefix"
support = 3

[[patterns]]
from = "list"
to = "collection"
kind = "suffix"

[[patterns]]
from = ""
to = "dropped"
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.LoadSeeds(ctx, path)
	if err != nil {
		t.Fatalf("LoadSeeds: %v", err)
	}
	if loaded != 2 {
		t.Errorf("loaded %d seeds, want 2 (empty from is skipped)", loaded)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("stored %d patterns", len(all))
	}
	if all[0].FromToken != "get" || all[0].Support != 3 {
		t.Errorf("seed support lost: %v", all[0])
	}
}

func TestLoadSeedsMissingFile(t *testing.T) {
	s := openTestStore(t)
	loaded, err := s.LoadSeeds(context.Background(), filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing seed file must not error: %v", err)
	}
	if loaded != 0 {
		t.Errorf("loaded = %d, want 0", loaded)
	}
}

package structural

import (
	"testing"

	"strata/internal/layers"
)

func TestSymbolDisplayName(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"scip-go gomod github.com/acme/widget . `widget`/getUser().", "getUser"},
		{"scip-go gomod github.com/acme/widget . `widget`/UserService#", "UserService"},
		{"scip-go gomod github.com/acme/widget . `widget`/MaxRetries.", "MaxRetries"},
		{"scip-typescript npm widget 1.0.0 src/`user.ts`/fetchUser().", "fetchUser"},
		{"local 12", "12"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := symbolDisplayName(tt.symbol); got != tt.want {
			t.Errorf("symbolDisplayName(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestOccurrenceRange(t *testing.T) {
	tests := []struct {
		name  string
		raw   []int32
		want  layers.Range
		valid bool
	}{
		{
			"single line",
			[]int32{4, 2, 9},
			layers.Range{Start: layers.Position{Line: 4, Character: 2}, End: layers.Position{Line: 4, Character: 9}},
			true,
		},
		{
			"multi line",
			[]int32{4, 2, 6, 1},
			layers.Range{Start: layers.Position{Line: 4, Character: 2}, End: layers.Position{Line: 6, Character: 1}},
			true,
		},
		{"too short", []int32{4, 2}, layers.Range{}, false},
		{"empty", nil, layers.Range{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := occurrenceRange(tt.raw)
			if ok != tt.valid {
				t.Fatalf("ok = %t, want %t", ok, tt.valid)
			}
			if ok && got != tt.want {
				t.Errorf("range = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSymbolKind(t *testing.T) {
	tests := []struct {
		symbol string
		want   layers.Kind
	}{
		{"pkg/getUser().", layers.KindFunction},
		{"pkg/UserService#", layers.KindClass},
		{"pkg/config:", layers.KindModule},
		{"pkg/maxRetries.", layers.KindVariable},
	}

	for _, tt := range tests {
		if got := symbolKind(tt.symbol); got != tt.want {
			t.Errorf("symbolKind(%q) = %s, want %s", tt.symbol, got, tt.want)
		}
	}
}

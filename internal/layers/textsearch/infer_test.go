package textsearch

import (
	"strings"
	"testing"

	"strata/internal/layers"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		identifier string
		wantKind   layers.Kind
		wantDecl   bool
	}{
		{"go func", "func getUser(id string) error {", "getUser", layers.KindFunction, true},
		{"go method", "func (s *Server) getUser(id string) error {", "getUser", layers.KindMethod, true},
		{"js function", "function getUser(id) {", "getUser", layers.KindFunction, true},
		{"exported async", "export async function getUser(id) {", "getUser", layers.KindFunction, true},
		{"python def", "def get_user(user_id):", "get_user", layers.KindFunction, true},
		{"rust fn", "pub fn get_user(id: u32) -> User {", "get_user", layers.KindFunction, true},
		{"class", "class UserService:", "UserService", layers.KindClass, true},
		{"go struct", "type UserService struct {", "UserService", layers.KindClass, true},
		{"interface", "interface UserStore {", "UserStore", layers.KindInterface, true},
		{"rust trait", "trait UserStore {", "UserStore", layers.KindInterface, true},
		{"js const", "const userCount = 0;", "userCount", layers.KindVariable, true},
		{"kotlin val", "val userCount = 0", "userCount", layers.KindVariable, true},
		{"assignment", "userCount = total", "userCount", layers.KindVariable, true},
		{"go short decl", "userCount := total", "userCount", layers.KindVariable, true},
		{"comparison is not a decl", "if userCount == 0 {", "userCount", layers.KindVariable, false},
		{"property access", "return s.userCount", "userCount", layers.KindProperty, false},
		{"plain usage", "return userCount + 1", "userCount", layers.KindVariable, false},
		{"call site", "n := getUser(id)", "getUser", layers.KindVariable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := strings.Index(tt.line, tt.identifier)
			if col < 0 {
				t.Fatalf("identifier %q not in line %q", tt.identifier, tt.line)
			}
			kind, decl := Classify(tt.line, col, tt.identifier)
			if kind != tt.wantKind || decl != tt.wantDecl {
				t.Errorf("Classify = (%s, %t), want (%s, %t)", kind, decl, tt.wantKind, tt.wantDecl)
			}
		})
	}
}

package layers

import (
	"strings"
	"unicode"
)

// CaseStyle classifies how an identifier joins its tokens.
type CaseStyle int

const (
	StyleCamel CaseStyle = iota // getUser
	StylePascal                 // GetUser
	StyleSnake                  // get_user
	StyleScreamingSnake         // GET_USER
	StyleKebab                  // get-user
)

// SplitTokens splits an identifier into lowercase tokens across
// camelCase humps, underscores and dashes. "getUserByID" becomes
// ["get", "user", "by", "id"].
func SplitTokens(identifier string) []string {
	if identifier == "" {
		return nil
	}

	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	runes := []rune(identifier)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			flush()
		case unicode.IsUpper(r):
			// A hump starts at an upper rune following a lower rune, or
			// at the last upper rune of an acronym run ("HTTPServer").
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				flush()
			}
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// DetectStyle reports the case style of an identifier. Mixed or
// unclassifiable identifiers default to camel.
func DetectStyle(identifier string) CaseStyle {
	switch {
	case strings.Contains(identifier, "-"):
		return StyleKebab
	case strings.Contains(identifier, "_"):
		if identifier == strings.ToUpper(identifier) && identifier != strings.ToLower(identifier) {
			return StyleScreamingSnake
		}
		return StyleSnake
	case identifier != "" && unicode.IsUpper([]rune(identifier)[0]):
		return StylePascal
	default:
		return StyleCamel
	}
}

// RenderStyle joins lowercase tokens back into an identifier in the
// given case style.
func RenderStyle(tokens []string, style CaseStyle) string {
	if len(tokens) == 0 {
		return ""
	}
	switch style {
	case StyleSnake:
		return strings.Join(tokens, "_")
	case StyleScreamingSnake:
		return strings.ToUpper(strings.Join(tokens, "_"))
	case StyleKebab:
		return strings.Join(tokens, "-")
	case StylePascal:
		var b strings.Builder
		for _, tok := range tokens {
			b.WriteString(capitalize(tok))
		}
		return b.String()
	default: // StyleCamel
		var b strings.Builder
		b.WriteString(tokens[0])
		for _, tok := range tokens[1:] {
			b.WriteString(capitalize(tok))
		}
		return b.String()
	}
}

// CaseVariants returns the identifier rendered in every case style
// other than its own, deduplicated. Used by the propagation layer to
// find semantically related spellings of the same name.
func CaseVariants(identifier string) []string {
	tokens := SplitTokens(identifier)
	if len(tokens) == 0 {
		return nil
	}

	styles := []CaseStyle{StyleCamel, StylePascal, StyleSnake, StyleScreamingSnake, StyleKebab}
	seen := map[string]bool{identifier: true}
	var variants []string
	for _, style := range styles {
		v := RenderStyle(tokens, style)
		if v != "" && !seen[v] {
			seen[v] = true
			variants = append(variants, v)
		}
	}
	return variants
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

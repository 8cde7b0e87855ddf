package textsearch

import (
	"strings"

	"strata/internal/layers"
)

// declarationKeywords maps tokens that introduce a declaration to the
// symbol kind they imply. Covers the language set the structural layer
// parses plus common scripting forms.
var declarationKeywords = map[string]layers.Kind{
	"func":      layers.KindFunction,
	"function":  layers.KindFunction,
	"def":       layers.KindFunction,
	"fn":        layers.KindFunction,
	"class":     layers.KindClass,
	"struct":    layers.KindClass,
	"enum":      layers.KindClass,
	"trait":     layers.KindInterface,
	"interface": layers.KindInterface,
	"type":      layers.KindClass,
	"var":       layers.KindVariable,
	"let":       layers.KindVariable,
	"const":     layers.KindVariable,
	"val":       layers.KindVariable,
}

// Classify inspects the text before a matched identifier and reports
// the inferred symbol kind and whether the line looks like the
// identifier's declaration. A declaration keyword directly introducing
// the identifier is the strong signal; an assignment right after it is
// the weak one.
func Classify(line string, column int, identifier string) (layers.Kind, bool) {
	before := line
	if column >= 0 && column <= len(line) {
		before = line[:column]
	}

	fields := strings.Fields(before)
	if n := len(fields); n > 0 {
		// Walk back past modifiers (export, public, static, async...)
		// so "export async function foo" still classifies.
		for i := n - 1; i >= 0 && i >= n-4; i-- {
			if kind, ok := declarationKeywords[strings.TrimSuffix(fields[i], ":")]; ok {
				if kind == layers.KindFunction && (isTypeContext(fields[:i]) || isTypeContext(fields[i+1:])) {
					return layers.KindMethod, true
				}
				return kind, true
			}
		}
	}

	// Assignment directly after the identifier also marks a
	// declaration-looking line, just a weaker one.
	after := line[minInt(len(line), column+len(identifier)):]
	trimmed := strings.TrimLeft(after, " \t")
	if strings.HasPrefix(trimmed, "=") && !strings.HasPrefix(trimmed, "==") {
		return layers.KindVariable, true
	}
	if strings.HasPrefix(trimmed, ":=") {
		return layers.KindVariable, true
	}

	if strings.Contains(before, ".") && strings.HasSuffix(strings.TrimRight(before, " \t"), ".") {
		return layers.KindProperty, false
	}
	return layers.KindVariable, false
}

// isTypeContext reports whether surrounding tokens put a function
// declaration inside a type: a class keyword before it, or a Go-style
// receiver between the keyword and the name.
func isTypeContext(fields []string) bool {
	for _, f := range fields {
		if f == "class" || strings.HasPrefix(f, "(") {
			return true
		}
	}
	return false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

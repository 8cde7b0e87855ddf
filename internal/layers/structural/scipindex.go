package structural

import (
	"os"
	"path/filepath"
	"strings"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"strata/internal/layers"
	"strata/internal/paths"
)

// scipIndex is a loaded SCIP protobuf index ready for name lookup.
type scipIndex struct {
	docs          []*scippb.Document
	workspaceRoot string
}

// loadIndex reads and parses a SCIP index file.
func loadIndex(path, workspaceRoot string) (*scipIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	return &scipIndex{docs: index.Documents, workspaceRoot: workspaceRoot}, nil
}

// lookup collects occurrences whose symbol's display name matches the
// identifier. wantDefinitions selects definition occurrences; otherwise
// references are returned, with definitions included only when
// includeDeclaration is set.
func (ix *scipIndex) lookup(identifier string, wantDefinitions, includeDeclaration bool) []layers.Location {
	var out []layers.Location
	for _, doc := range ix.docs {
		for _, occ := range doc.Occurrences {
			if symbolDisplayName(occ.Symbol) != identifier {
				continue
			}
			isDefinition := occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0
			if wantDefinitions && !isDefinition {
				continue
			}
			if !wantDefinitions && isDefinition && !includeDeclaration {
				continue
			}

			rng, ok := occurrenceRange(occ.Range)
			if !ok {
				continue
			}
			conf := confIndexReference
			if isDefinition {
				conf = confIndexDefinition
			}
			out = append(out, layers.Location{
				URI:        paths.PathToURI(filepath.Join(ix.workspaceRoot, doc.RelativePath)),
				Range:      rng,
				Kind:       symbolKind(occ.Symbol),
				Name:       identifier,
				Source:     layers.SourceExact,
				Confidence: conf,
				Layer:      layers.Layer2,
			})
		}
	}
	return out
}

// occurrenceRange converts SCIP's packed range representation: either
// [startLine, startChar, endChar] for single-line occurrences or
// [startLine, startChar, endLine, endChar].
func occurrenceRange(r []int32) (layers.Range, bool) {
	switch len(r) {
	case 3:
		return layers.Range{
			Start: layers.Position{Line: int(r[0]), Character: int(r[1])},
			End:   layers.Position{Line: int(r[0]), Character: int(r[2])},
		}, true
	case 4:
		return layers.Range{
			Start: layers.Position{Line: int(r[0]), Character: int(r[1])},
			End:   layers.Position{Line: int(r[2]), Character: int(r[3])},
		}, true
	default:
		return layers.Range{}, false
	}
}

// symbolDisplayName extracts the bare name from a SCIP symbol string.
// The last descriptor carries the name plus a suffix marker: "Name()."
// for methods, "Name#" for types, "Name." for terms, "Name:" for meta.
func symbolDisplayName(symbol string) string {
	if symbol == "" || strings.HasPrefix(symbol, "local ") {
		return strings.TrimPrefix(symbol, "local ")
	}

	seg := symbol
	if i := strings.LastIndexAny(symbol, "/ "); i >= 0 {
		seg = symbol[i+1:]
	}
	seg = strings.TrimSuffix(seg, ".")
	seg = strings.TrimSuffix(seg, "()")
	seg = strings.TrimSuffix(seg, "#")
	seg = strings.TrimSuffix(seg, ":")
	seg = strings.Trim(seg, "`")
	return seg
}

// symbolKind infers a coarse kind from the SCIP descriptor suffix.
func symbolKind(symbol string) layers.Kind {
	switch {
	case strings.HasSuffix(symbol, "()."):
		return layers.KindFunction
	case strings.HasSuffix(symbol, "#"):
		return layers.KindClass
	case strings.HasSuffix(symbol, ":"):
		return layers.KindModule
	default:
		return layers.KindVariable
	}
}

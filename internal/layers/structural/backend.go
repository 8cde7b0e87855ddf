// Package structural is layer2: AST-grounded resolution. A SCIP index
// produced by an external indexer is the preferred source; tree-sitter
// extraction over a bounded file set is the fallback when no index
// exists. Tree-sitter needs cgo; without it the backend degrades to
// SCIP-only.
package structural

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"strata/internal/layers"
	"strata/internal/paths"
)

const (
	confIndexDefinition = 0.95
	confIndexReference  = 0.9
	confTreeDefinition  = 0.85
	confTreeReference   = 0.75
)

// Config bounds the structural layer's work.
type Config struct {
	WorkspaceRoot string
	IndexPath     string
	MaxFiles      int
	MaxFileBytes  int
	Exclude       []string
}

// Backend resolves symbols structurally.
type Backend struct {
	cfg Config
	ext *extractor
}

// New creates the structural backend.
func New(cfg Config) *Backend {
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 200
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = 1 << 20
	}
	return &Backend{cfg: cfg, ext: newExtractor()}
}

// ID returns layer2.
func (b *Backend) ID() layers.LayerID {
	return layers.Layer2
}

// Available reports whether either structural source is usable: a SCIP
// index on disk, or the tree-sitter extractor (nil without cgo).
func (b *Backend) Available() bool {
	return b.indexExists() || b.ext != nil
}

func (b *Backend) indexExists() bool {
	info, err := os.Stat(b.indexPath())
	return err == nil && !info.IsDir()
}

func (b *Backend) indexPath() string {
	if filepath.IsAbs(b.cfg.IndexPath) {
		return b.cfg.IndexPath
	}
	return filepath.Join(b.cfg.WorkspaceRoot, b.cfg.IndexPath)
}

// Resolve answers definition, reference and rename queries. The SCIP
// index wins when present; tree-sitter extraction over the scoped file
// set answers otherwise.
func (b *Backend) Resolve(ctx context.Context, q layers.Query) (*layers.Outcome, error) {
	if q.Identifier == "" || q.Operation == layers.OpGetCompletions {
		return &layers.Outcome{}, nil
	}

	wantDefinitions := q.Operation == layers.OpFindDefinition

	if b.indexExists() {
		ix, err := loadIndex(b.indexPath(), b.cfg.WorkspaceRoot)
		if err == nil {
			return b.outcome(ix.lookup(q.Identifier, wantDefinitions, q.IncludeDeclaration || q.Operation == layers.OpRename), q), nil
		}
		// A corrupt index falls through to tree-sitter rather than
		// failing the layer.
	}

	if b.ext == nil {
		return &layers.Outcome{}, nil
	}
	found, err := b.treeSitterLookup(ctx, q, wantDefinitions)
	if err != nil {
		return nil, err
	}
	return b.outcome(found, q), nil
}

func (b *Backend) outcome(found []layers.Location, q layers.Query) *layers.Outcome {
	out := &layers.Outcome{}
	if q.Operation == layers.OpFindDefinition {
		out.Definitions = found
	} else {
		out.References = found
	}
	return out
}

// treeSitterLookup parses the scoped file set and collects declaration
// or identifier nodes matching the query.
func (b *Backend) treeSitterLookup(ctx context.Context, q layers.Query, wantDefinitions bool) ([]layers.Location, error) {
	dir := paths.ScopeDir(q.URI, b.cfg.WorkspaceRoot)

	excluded := make(map[string]bool, len(b.cfg.Exclude))
	for _, d := range b.cfg.Exclude {
		excluded[d] = true
	}

	var found []layers.Location
	filesParsed := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if excluded[d.Name()] || (strings.HasPrefix(d.Name(), ".") && path != dir) {
				return filepath.SkipDir
			}
			return nil
		}
		if filesParsed >= b.cfg.MaxFiles {
			return filepath.SkipAll
		}
		if !supportedExtension(filepath.Ext(path)) {
			return nil
		}
		if info, infoErr := d.Info(); infoErr != nil || info.Size() > int64(b.cfg.MaxFileBytes) {
			return nil
		}

		filesParsed++
		source, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}

		var symbols []symbolRef
		if wantDefinitions {
			symbols = b.ext.declarations(ctx, source, path, q.Identifier)
		} else {
			symbols = b.ext.occurrences(ctx, source, path, q.Identifier)
		}
		for _, sym := range symbols {
			found = append(found, b.treeLocation(sym, q.Identifier, wantDefinitions))
			if q.Limit > 0 && len(found) >= q.Limit {
				return filepath.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (b *Backend) treeLocation(sym symbolRef, identifier string, isDefinition bool) layers.Location {
	conf := confTreeReference
	source := layers.SourceExact
	if isDefinition {
		conf = confTreeDefinition
	}
	return layers.Location{
		URI: paths.PathToURI(sym.path),
		Range: layers.Range{
			Start: layers.Position{Line: sym.line, Character: sym.column},
			End:   layers.Position{Line: sym.line, Character: sym.column + len(identifier)},
		},
		Kind:       sym.kind,
		Name:       identifier,
		Source:     source,
		Confidence: conf,
		Layer:      layers.Layer2,
	}
}

// symbolRef is one structural hit: a declaration or identifier node.
// Positions are 0-based.
type symbolRef struct {
	path   string
	line   int
	column int
	kind   layers.Kind
}

func supportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".go", ".js", ".jsx", ".ts", ".tsx", ".py", ".rs", ".java", ".kt":
		return true
	default:
		return false
	}
}

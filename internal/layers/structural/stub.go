//go:build !cgo

package structural

import "context"

// extractor is the tree-sitter extractor. Without CGO there is no
// grammar to load; the backend degrades to SCIP-index-only resolution.
type extractor struct{}

// newExtractor returns nil when CGO is not available.
func newExtractor() *extractor {
	return nil
}

func (x *extractor) declarations(ctx context.Context, source []byte, path, identifier string) []symbolRef {
	return nil
}

func (x *extractor) occurrences(ctx context.Context, source []byte, path, identifier string) []symbolRef {
	return nil
}

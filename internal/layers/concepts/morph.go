package concepts

import "strata/internal/layers"

// Variants generates conceptual variants of an identifier: each token
// that belongs to a synonym ring is swapped for its ring siblings, and
// the identifier is regenerated in its original case style, so
// getUser -> fetchUser, get_user -> fetch_user, GetUser -> FetchUser.
// At most max variants are returned.
func (o *Ontology) Variants(identifier string, max int) []string {
	tokens := layers.SplitTokens(identifier)
	if len(tokens) == 0 {
		return nil
	}
	style := layers.DetectStyle(identifier)

	seen := map[string]bool{identifier: true}
	var variants []string
	for i, tok := range tokens {
		for _, syn := range o.Synonyms(tok) {
			swapped := make([]string, len(tokens))
			copy(swapped, tokens)
			swapped[i] = syn

			v := layers.RenderStyle(swapped, style)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			variants = append(variants, v)
			if max > 0 && len(variants) >= max {
				return variants
			}
		}
	}
	return variants
}

package layers

import "fmt"

func identityKey(uri string, line, character int) string {
	return fmt.Sprintf("%s:%d:%d", uri, line, character)
}

// Dedupe removes duplicate locations by structural identity
// (uri, start line, start character). The first-seen item wins, so when
// the input follows layer invocation order the earlier layer's source
// and confidence survive a collision.
func Dedupe(items []Location) []Location {
	if len(items) < 2 {
		return items
	}
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		key := item.IdentityKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// Truncate caps a location list at limit; limit <= 0 means no cap.
func Truncate(items []Location, limit int) []Location {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// TruncateCompletions caps a completion list at limit.
func TruncateCompletions(items []CompletionItem, limit int) []CompletionItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

package layers

import "sort"

// sourcePriority orders result sources by trustworthiness for
// definition tie-breaks: exact > fuzzy > conceptual > pattern.
func sourcePriority(s Source) int {
	switch s {
	case SourceExact:
		return 3
	case SourceFuzzy:
		return 2
	case SourceConceptual:
		return 1
	default:
		return 0
	}
}

// RankDefinitions sorts definitions by confidence descending, breaking
// ties by source priority. The sort is stable so equal items keep layer
// invocation order.
func RankDefinitions(items []Location) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Confidence != items[j].Confidence {
			return items[i].Confidence > items[j].Confidence
		}
		return sourcePriority(items[i].Source) > sourcePriority(items[j].Source)
	})
}

// RankReferences sorts references by confidence descending only.
// Reference kind does not imply authority the way definition source
// does, so there is no source tie-break.
func RankReferences(items []Location) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Confidence > items[j].Confidence
	})
}

// RankCompletions sorts completions by confidence descending, then
// lexicographically by sort key.
func RankCompletions(items []CompletionItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Confidence != items[j].Confidence {
			return items[i].Confidence > items[j].Confidence
		}
		return items[i].SortKey < items[j].SortKey
	})
}

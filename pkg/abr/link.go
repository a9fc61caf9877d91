package abr

import "strings"

// The sample block and the descriptor block encode brush identifiers
// independently and do not agree on exact formatting (embedded null
// terminators, surrounding whitespace). Linking normalizes both sides and
// exact-matches; anything fuzzier than that has proven too eager in practice.

// LinkResult maps descriptor-preset indexes to sample indexes and reports
// the cases the caller may want to surface.
type LinkResult struct {
	// Matches maps preset index -> sample index.
	Matches map[int]int
	// DuplicateSamples lists normalized identifiers shared by more than one
	// sample; the first occurrence wins.
	DuplicateSamples []string
	// UnmatchedPresets lists preset indexes with no matching sample.
	UnmatchedPresets []int
}

// LinkByIdentifier matches descriptor presets to samples by normalized
// identifier. Pure function over the two identifier lists so the brittle part
// of the merge stays independently testable.
func LinkByIdentifier(sampleIDs, presetIDs []string) LinkResult {
	res := LinkResult{Matches: make(map[int]int)}

	byID := make(map[string]int, len(sampleIDs))
	for i, id := range sampleIDs {
		key := normalizeIdentifier(id)
		if key == "" {
			continue
		}
		if _, seen := byID[key]; seen {
			res.DuplicateSamples = append(res.DuplicateSamples, key)
			continue
		}
		byID[key] = i
	}

	for i, id := range presetIDs {
		key := normalizeIdentifier(id)
		if idx, ok := byID[key]; ok && key != "" {
			res.Matches[i] = idx
		} else {
			res.UnmatchedPresets = append(res.UnmatchedPresets, i)
		}
	}
	return res
}

// normalizeIdentifier strips embedded null terminators and surrounding
// whitespace.
func normalizeIdentifier(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}

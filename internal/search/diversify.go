package search

import "sort"

// diversify caps per-section result density. First pass applies the strict
// cap in rank order; when that leaves the output short of finalSize, the
// skipped results backfill in rank order. Completeness beats strict
// diversity, so a dominant section is capped only when other sections can
// fill the remaining slots.
func diversify(ranked []Result, maxPerSection, finalSize int) []Result {
	if finalSize <= 0 {
		return []Result{}
	}

	perSection := make(map[string]int)
	out := make([]Result, 0, finalSize)
	var skipped []Result

	for _, r := range ranked {
		if len(out) >= finalSize {
			break
		}
		section := r.Chunk.SectionPath
		if perSection[section] < maxPerSection {
			perSection[section]++
			out = append(out, r)
		} else {
			skipped = append(skipped, r)
		}
	}

	for _, r := range skipped {
		if len(out) >= finalSize {
			break
		}
		out = append(out, r)
	}

	// Backfilled results re-enter by score so the output stays non-increasing.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

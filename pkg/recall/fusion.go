package recall

import "sort"

const (
	// rankConstant dampens the score gap between adjacent ranks so that a
	// candidate appearing mid-list in several rankings can beat one that tops
	// a single ranking.
	rankConstant = 60

	// topRankWindow and topRankBonus give a small flat boost to the first few
	// positions of each ranking, which the reciprocal term alone flattens too
	// aggressively at this rankConstant.
	topRankWindow = 3
	topRankBonus  = 0.01
)

// rankedList is one ranked candidate source (best first) with its fusion
// weight.
type rankedList struct {
	ids    []string
	weight float64
}

type scoredID struct {
	id    string
	score float64
	seen  int
}

// fuse combines ranked lists with reciprocal rank fusion. Ties break toward
// the id seen earliest across the lists, which keeps the merge stable.
func fuse(lists ...rankedList) []scoredID {
	scores := make(map[string]*scoredID)
	seen := 0
	for _, l := range lists {
		for rank, id := range l.ids {
			s, ok := scores[id]
			if !ok {
				s = &scoredID{id: id, seen: seen}
				scores[id] = s
				seen++
			}
			s.score += l.weight / float64(rankConstant+rank+1)
			if rank < topRankWindow {
				s.score += l.weight * topRankBonus
			}
		}
	}

	out := make([]scoredID, 0, len(scores))
	for _, s := range scores {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].seen < out[j].seen
	})
	return out
}

// dedupe keeps the first occurrence of each id, preserving order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

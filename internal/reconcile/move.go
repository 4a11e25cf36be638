package reconcile

import "github.com/nhle/nailedit/internal/model"

// MoveIndex moves the item at position from to position to, both counted
// among the items of category c. The result lists every other category
// first, in their existing order, followed by the reordered category. The input
// is never modified. It reports false and returns items unchanged when an
// index is out of range or from == to.
func MoveIndex(items []model.Item, c model.Category, from, to int) ([]model.Item, bool) {
	in, out := partition(items, c)
	if from == to || from < 0 || to < 0 || from >= len(in) || to >= len(in) {
		return items, false
	}
	return append(out, move(in, from, to)...), true
}

// moveByID is MoveIndex with positions located by id.
func moveByID(items []model.Item, c model.Category, activeID, overID string) ([]model.Item, bool) {
	if activeID == overID {
		return items, false
	}
	in, out := partition(items, c)
	from, to := model.IndexOf(in, activeID), model.IndexOf(in, overID)
	if from < 0 || to < 0 {
		return items, false
	}
	return append(out, move(in, from, to)...), true
}

func partition(items []model.Item, c model.Category) (in, out []model.Item) {
	in = make([]model.Item, 0, len(items))
	out = make([]model.Item, 0, len(items))
	for _, it := range items {
		if it.Category == c {
			in = append(in, it)
		} else {
			out = append(out, it)
		}
	}
	return in, out
}

// move relocates s[from] to index to. s is modified.
func move(s []model.Item, from, to int) []model.Item {
	it := s[from]
	if from < to {
		copy(s[from:to], s[from+1:to+1])
	} else {
		copy(s[to+1:from+1], s[to:from])
	}
	s[to] = it
	return s
}

// Package projection derives per-category views of a collection. Every
// function is pure: inputs are never modified and results never alias them.
package projection

import "github.com/nhle/nailedit/internal/model"

// Column is the items of one category in collection order.
type Column struct {
	Category model.Category
	Items    []model.Item
}

// Project returns the items of category c in their collection order.
func Project(items []model.Item, c model.Category) []model.Item {
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if it.Category == c {
			out = append(out, it)
		}
	}
	return out
}

// Columns returns one column per category of kind, in display order.
func Columns(items []model.Item, kind model.Kind) []Column {
	cats := model.Categories(kind)
	cols := make([]Column, len(cats))
	for i, c := range cats {
		cols[i] = Column{Category: c, Items: Project(items, c)}
	}
	return cols
}

// Counts returns the number of items in each category of kind. Categories
// with no items are present with a zero count.
func Counts(items []model.Item, kind model.Kind) map[model.Category]int {
	counts := make(map[model.Category]int)
	for _, c := range model.Categories(kind) {
		counts[c] = 0
	}
	for _, it := range items {
		if _, ok := counts[it.Category]; ok {
			counts[it.Category]++
		}
	}
	return counts
}

// Share returns the percentage (0-100, rounded down) of items filed under c.
// An empty collection has a share of 0.
func Share(items []model.Item, c model.Category) int {
	if len(items) == 0 {
		return 0
	}
	n := 0
	for _, it := range items {
		if it.Category == c {
			n++
		}
	}
	return n * 100 / len(items)
}

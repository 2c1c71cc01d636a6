package core

import (
	"sort"
	"strings"
)

// ResolveOrder returns slides in display order.
//
// When every slide carries an Order the result is sorted by it. If any slide lacks one, the
// whole set is ordered by id instead: ids with DefaultIDPrefix first, then byte-wise id
// comparison inside each group. The two comparators are never mixed.
func ResolveOrder(slides []Slide) []Slide {
	out := make([]Slide, len(slides))
	copy(out, slides)

	if allOrdered(out) {
		sort.SliceStable(out, func(i, j int) bool {
			return *out[i].Order < *out[j].Order
		})
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		di := strings.HasPrefix(out[i].ID, DefaultIDPrefix)
		dj := strings.HasPrefix(out[j].ID, DefaultIDPrefix)
		if di != dj {
			return di
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func allOrdered(slides []Slide) bool {
	for _, s := range slides {
		if s.Order == nil {
			return false
		}
	}
	return true
}

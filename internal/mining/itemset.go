package mining

import (
	"sort"
	"strings"
)

// Itemset is a frequent itemset with its absolute and relative support.
// Items are kept in lexicographic order.
type Itemset struct {
	Items   []string `json:"items"`
	Count   int      `json:"count"`
	Support float64  `json:"support"`
}

// Label renders the items comma-joined for display.
func (s Itemset) Label() string { return label(s.Items) }

// Key returns a map key that cannot collide for distinct item sets, even when
// item identifiers themselves contain commas.
func (s Itemset) Key() string { return itemsetKey(s.Items) }

// Len returns the number of items in the set.
func (s Itemset) Len() int { return len(s.Items) }

// Contains reports whether item is a member of the set.
func (s Itemset) Contains(item string) bool {
	i := sort.SearchStrings(s.Items, item)
	return i < len(s.Items) && s.Items[i] == item
}

func label(items []string) string { return strings.Join(items, ", ") }

// itemsetKey expects items already sorted.
func itemsetKey(items []string) string { return strings.Join(items, "\x1f") }

// SortItemsets orders itemsets by support descending, then size, then label.
func SortItemsets(sets []Itemset) {
	sort.SliceStable(sets, func(i, j int) bool {
		a, b := sets[i], sets[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if len(a.Items) != len(b.Items) {
			return len(a.Items) < len(b.Items)
		}
		return a.Label() < b.Label()
	})
}

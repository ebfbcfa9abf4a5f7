package mining

import "sort"

// fpNode lives in an fpTree arena and refers to its parent and children by
// arena index. The root sentinel sits at index 0 with item -1.
type fpNode struct {
	item     int
	count    int
	parent   int
	children map[int]int
}

// headerEntry is the per-item secondary index: the summed count of the item in
// the tree and the arena indices of every node carrying it, in creation order.
type headerEntry struct {
	total int
	nodes []int
}

type fpTree struct {
	nodes  []fpNode
	header map[int]*headerEntry
	// order lists header items by descending support, ties by ascending
	// universe rank. It is also the insertion order of items along a path.
	order []int
}

// weightedPath is one entry of a (conditional) transaction database.
type weightedPath struct {
	items []int
	count int
}

// buildTree filters items below minCount and inserts each path into a fresh
// prefix tree, items reordered by descending support.
func buildTree(paths []weightedPath, minCount int) *fpTree {
	support := map[int]int{}
	for _, p := range paths {
		for _, it := range p.items {
			support[it] += p.count
		}
	}
	order := make([]int, 0, len(support))
	for it, c := range support {
		if c >= minCount {
			order = append(order, it)
		}
	}
	sort.Slice(order, func(a, b int) bool {
		sa, sb := support[order[a]], support[order[b]]
		if sa != sb {
			return sa > sb
		}
		return order[a] < order[b]
	})
	rank := make(map[int]int, len(order))
	t := &fpTree{
		nodes:  []fpNode{{item: -1, parent: -1}},
		header: make(map[int]*headerEntry, len(order)),
		order:  order,
	}
	for r, it := range order {
		rank[it] = r
		t.header[it] = &headerEntry{}
	}

	buf := make([]int, 0, 16)
	for _, p := range paths {
		buf = buf[:0]
		for _, it := range p.items {
			if _, ok := rank[it]; ok {
				buf = append(buf, it)
			}
		}
		if len(buf) == 0 {
			continue
		}
		sort.Slice(buf, func(a, b int) bool { return rank[buf[a]] < rank[buf[b]] })
		t.insert(buf, p.count)
	}
	return t
}

func (t *fpTree) insert(items []int, count int) {
	cur := 0
	for _, it := range items {
		child, ok := t.nodes[cur].children[it]
		if !ok {
			child = len(t.nodes)
			t.nodes = append(t.nodes, fpNode{item: it, parent: cur})
			if t.nodes[cur].children == nil {
				t.nodes[cur].children = make(map[int]int, 2)
			}
			t.nodes[cur].children[it] = child
			h := t.header[it]
			h.nodes = append(h.nodes, child)
		}
		t.nodes[child].count += count
		t.header[it].total += count
		cur = child
	}
}

// singlePath returns the node indices from the root downward when the tree
// has no branching.
func (t *fpTree) singlePath() ([]int, bool) {
	var path []int
	cur := 0
	for {
		ch := t.nodes[cur].children
		if len(ch) == 0 {
			return path, true
		}
		if len(ch) > 1 {
			return nil, false
		}
		for _, next := range ch {
			cur = next
		}
		path = append(path, cur)
	}
}

// prefix returns the items on the path from the root to node's parent.
func (t *fpTree) prefix(node int) []int {
	var items []int
	for p := t.nodes[node].parent; p > 0; p = t.nodes[p].parent {
		items = append(items, t.nodes[p].item)
	}
	return items
}

// conditionalBase collects the prefix paths of every occurrence of item,
// each weighted by that occurrence's count.
func (t *fpTree) conditionalBase(item int) []weightedPath {
	h := t.header[item]
	base := make([]weightedPath, 0, len(h.nodes))
	for _, nd := range h.nodes {
		if items := t.prefix(nd); len(items) > 0 {
			base = append(base, weightedPath{items: items, count: t.nodes[nd].count})
		}
	}
	return base
}

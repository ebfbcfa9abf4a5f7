package mining

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// supportEpsilon absorbs floating point noise in minSupport × n so that, for
// example, 0.07 × 100 yields a minimum count of 7 rather than 8.
const supportEpsilon = 1e-9

// MineOptions controls a single FP-Growth run.
type MineOptions struct {
	// MinSupport is the minimum support fraction in (0, 1].
	MinSupport float64
	// MaxLen caps the itemset size; 0 means unlimited.
	MaxLen int
	// MaxItemsets is a soft limit on the output size; 0 disables it.
	MaxItemsets int
}

// MinCount converts a support fraction into the minimum transaction count an
// itemset needs: ceil(minSupport × n), never less than 1.
func MinCount(minSupport float64, n int) int {
	c := int(math.Ceil(minSupport*float64(n) - supportEpsilon))
	if c < 1 {
		c = 1
	}
	return c
}

func (o MineOptions) validate() error {
	if math.IsNaN(o.MinSupport) || o.MinSupport <= 0 || o.MinSupport > 1 {
		return fmt.Errorf("%w: min support %v outside (0, 1]", ErrInvalidInput, o.MinSupport)
	}
	if o.MaxLen < 0 {
		return fmt.Errorf("%w: max len %d is negative", ErrInvalidInput, o.MaxLen)
	}
	if o.MaxItemsets < 0 {
		return fmt.Errorf("%w: max itemsets %d is negative", ErrInvalidInput, o.MaxItemsets)
	}
	return nil
}

// Mine returns every itemset whose support count reaches
// MinCount(opt.MinSupport, enc.N()). Emission order is unspecified; use
// SortItemsets for a stable presentation. Mining checks ctx at each recursion
// step and stops with the context error once it is done.
func Mine(ctx context.Context, enc *Encoding, opt MineOptions) ([]Itemset, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if enc == nil || enc.N() == 0 {
		return nil, fmt.Errorf("%w: no transactions to mine", ErrInvalidInput)
	}
	m := &miner{
		ctx:      ctx,
		items:    enc.Items,
		n:        enc.N(),
		minCount: MinCount(opt.MinSupport, enc.N()),
		maxLen:   opt.MaxLen,
		limit:    opt.MaxItemsets,
	}
	rows := enc.Transactions()
	db := make([]weightedPath, len(rows))
	for i, cols := range rows {
		db[i] = weightedPath{items: cols, count: 1}
	}
	if err := m.grow(buildTree(db, m.minCount), nil); err != nil {
		return nil, err
	}
	return m.out, nil
}

type miner struct {
	ctx      context.Context
	items    []string
	n        int
	minCount int
	maxLen   int
	limit    int
	out      []Itemset
}

// grow mines tree, whose itemsets are all implicitly extended by suffix.
func (m *miner) grow(tree *fpTree, suffix []int) error {
	if err := m.ctx.Err(); err != nil {
		return fmt.Errorf("mining interrupted: %w", err)
	}
	if len(tree.order) == 0 {
		return nil
	}
	if path, ok := tree.singlePath(); ok {
		return m.emitSubsets(tree, path, 0, suffix)
	}
	for i := len(tree.order) - 1; i >= 0; i-- {
		item := tree.order[i]
		set := extend(suffix, item)
		if err := m.emit(set, tree.header[item].total); err != nil {
			return err
		}
		if m.maxLen > 0 && len(set) >= m.maxLen {
			continue
		}
		base := tree.conditionalBase(item)
		if len(base) == 0 {
			continue
		}
		if err := m.grow(buildTree(base, m.minCount), set); err != nil {
			return err
		}
	}
	return nil
}

// emitSubsets enumerates every non-empty combination of path[start:] joined to
// set. Counts never increase down a path, so the support of a combination is
// the count of its deepest node.
func (m *miner) emitSubsets(tree *fpTree, path []int, start int, set []int) error {
	if err := m.ctx.Err(); err != nil {
		return fmt.Errorf("mining interrupted: %w", err)
	}
	for k := start; k < len(path); k++ {
		nd := tree.nodes[path[k]]
		next := extend(set, nd.item)
		if err := m.emit(next, nd.count); err != nil {
			return err
		}
		if m.maxLen > 0 && len(next) >= m.maxLen {
			continue
		}
		if err := m.emitSubsets(tree, path, k+1, next); err != nil {
			return err
		}
	}
	return nil
}

func (m *miner) emit(cols []int, count int) error {
	if m.limit > 0 && len(m.out) >= m.limit {
		return fmt.Errorf("%w: more than %d frequent itemsets at min count %d; raise min support or set a max length",
			ErrResourceExhausted, m.limit, m.minCount)
	}
	items := make([]string, len(cols))
	for i, c := range cols {
		items[i] = m.items[c]
	}
	sort.Strings(items)
	m.out = append(m.out, Itemset{Items: items, Count: count, Support: float64(count) / float64(m.n)})
	return nil
}

func extend(set []int, item int) []int {
	out := make([]int, len(set)+1)
	copy(out, set)
	out[len(set)] = item
	return out
}

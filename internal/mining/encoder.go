package mining

import (
	"fmt"
	"sort"
)

// Transaction is one basket: the distinct items bought together under ID.
type Transaction struct {
	ID    string
	Items []string
}

// Encoding is the boolean transaction-by-item incidence matrix together with
// its item universe. Items are ranked by descending global count, ties broken
// by first appearance, and Rows[i][j] is true iff transaction i holds Items[j].
// An Encoding is read-only once built.
type Encoding struct {
	Items  []string
	Counts []int
	Rows   [][]bool
	IDs    []string

	index map[string]int
}

// Encode builds the item universe and incidence matrix for txs.
func Encode(txs []Transaction) (*Encoding, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("%w: transaction list is empty", ErrInvalidInput)
	}

	counts := map[string]int{}
	first := map[string]int{}
	baskets := make([][]string, len(txs))
	for i, tx := range txs {
		seen := make(map[string]struct{}, len(tx.Items))
		basket := make([]string, 0, len(tx.Items))
		for _, it := range tx.Items {
			if it == "" {
				return nil, fmt.Errorf("%w: transaction %q has an empty item identifier", ErrInvalidInput, tx.ID)
			}
			if _, dup := seen[it]; dup {
				continue
			}
			seen[it] = struct{}{}
			basket = append(basket, it)
			if _, ok := first[it]; !ok {
				first[it] = len(first)
			}
			counts[it]++
		}
		if len(basket) == 0 {
			return nil, fmt.Errorf("%w: transaction %q (row %d) has no items", ErrInvalidInput, tx.ID, i+1)
		}
		baskets[i] = basket
	}

	items := make([]string, 0, len(counts))
	for it := range counts {
		items = append(items, it)
	}
	sort.Slice(items, func(a, b int) bool {
		ca, cb := counts[items[a]], counts[items[b]]
		if ca != cb {
			return ca > cb
		}
		return first[items[a]] < first[items[b]]
	})

	enc := &Encoding{
		Items:  items,
		Counts: make([]int, len(items)),
		Rows:   make([][]bool, len(txs)),
		IDs:    make([]string, len(txs)),
		index:  make(map[string]int, len(items)),
	}
	for j, it := range items {
		enc.index[it] = j
		enc.Counts[j] = counts[it]
	}
	for i, basket := range baskets {
		row := make([]bool, len(items))
		for _, it := range basket {
			row[enc.index[it]] = true
		}
		enc.Rows[i] = row
		enc.IDs[i] = txs[i].ID
	}
	return enc, nil
}

// N returns the number of transactions.
func (e *Encoding) N() int { return len(e.Rows) }

// M returns the size of the item universe.
func (e *Encoding) M() int { return len(e.Items) }

// Index returns the column of item in the universe.
func (e *Encoding) Index(item string) (int, bool) {
	j, ok := e.index[item]
	return j, ok
}

// Transactions returns, per row, the ascending column indices set in that row.
func (e *Encoding) Transactions() [][]int {
	out := make([][]int, len(e.Rows))
	for i, row := range e.Rows {
		var cols []int
		for j, ok := range row {
			if ok {
				cols = append(cols, j)
			}
		}
		out[i] = cols
	}
	return out
}

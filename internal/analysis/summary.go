package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// ItemCount is one item and the number of baskets containing it.
type ItemCount struct {
	Item  string  `json:"item"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// SizeBucket counts baskets with exactly Size items.
type SizeBucket struct {
	Size  int `json:"size"`
	Count int `json:"count"`
}

// Summary is an exploratory overview of a cleaned dataset.
type Summary struct {
	Name              string         `json:"name"`
	Columns           []string       `json:"columns"`
	TransactionColumn string         `json:"transaction_column"`
	ItemColumn        string         `json:"item_column"`
	Rows              int            `json:"rows"`
	Processed         int            `json:"processed"`
	LineItems         int            `json:"line_items"`
	Transactions      int            `json:"transactions"`
	DistinctItems     int            `json:"distinct_items"`
	MinBasket         int            `json:"min_basket"`
	MaxBasket         int            `json:"max_basket"`
	MeanBasket        float64        `json:"mean_basket"`
	SingleItemShare   float64        `json:"single_item_share"`
	Sizes             []SizeBucket   `json:"sizes"`
	TopItems          []ItemCount    `json:"top_items"`
	Dropped           map[string]int `json:"dropped,omitempty"`
	Warnings          []string       `json:"warnings,omitempty"`
}

// Summarize computes basket statistics and the top items of ds.
// top <= 0 defaults to 10.
func Summarize(ds *Dataset, top int) *Summary {
	if top <= 0 {
		top = 10
	}
	s := &Summary{
		Name:              ds.Name,
		Columns:           append([]string(nil), ds.Columns...),
		TransactionColumn: ds.TransactionColumn,
		ItemColumn:        ds.ItemColumn,
		Rows:              ds.Rows,
		Processed:         ds.Processed,
		LineItems:         ds.Kept,
		Transactions:      len(ds.Transactions),
		Warnings:          append([]string(nil), ds.Warnings...),
	}
	if len(ds.Dropped) > 0 {
		s.Dropped = make(map[string]int, len(ds.Dropped))
		for k, v := range ds.Dropped {
			s.Dropped[k] = v
		}
	}
	if s.Transactions == 0 {
		return s
	}

	counts := map[string]int{}
	first := map[string]int{}
	sizes := map[int]int{}
	total, singles := 0, 0
	s.MinBasket = len(ds.Transactions[0].Items)
	for _, tx := range ds.Transactions {
		n := len(tx.Items)
		total += n
		sizes[n]++
		if n == 1 {
			singles++
		}
		if n < s.MinBasket {
			s.MinBasket = n
		}
		if n > s.MaxBasket {
			s.MaxBasket = n
		}
		for _, it := range tx.Items {
			if _, ok := counts[it]; !ok {
				first[it] = len(first)
			}
			counts[it]++
		}
	}
	s.DistinctItems = len(counts)
	s.MeanBasket = float64(total) / float64(s.Transactions)
	s.SingleItemShare = float64(singles) / float64(s.Transactions)

	for size, c := range sizes {
		s.Sizes = append(s.Sizes, SizeBucket{Size: size, Count: c})
	}
	sort.Slice(s.Sizes, func(i, j int) bool { return s.Sizes[i].Size < s.Sizes[j].Size })

	items := make([]ItemCount, 0, len(counts))
	for it, c := range counts {
		items = append(items, ItemCount{Item: it, Count: c, Share: float64(c) / float64(s.Transactions)})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return first[items[i].Item] < first[items[j].Item]
	})
	if len(items) > top {
		items = items[:top]
	}
	s.TopItems = items
	return s
}

// Markdown renders the summary in the sectioned report format.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Name))
	}
	if s.Processed > 0 && s.Processed < s.Rows {
		b.WriteString(fmt.Sprintf("Rows: ~%d (processed %d)\n", s.Rows, s.Processed))
	} else {
		b.WriteString(fmt.Sprintf("Rows: %d\n", s.Rows))
	}
	b.WriteString(fmt.Sprintf("Columns: transaction=%s, item=%s\n", safeName(s.TransactionColumn), safeName(s.ItemColumn)))
	b.WriteString(fmt.Sprintf("Transactions: %d\n", s.Transactions))
	b.WriteString(fmt.Sprintf("Distinct items: %d\n", s.DistinctItems))
	b.WriteString(fmt.Sprintf("Line items: %d\n", s.LineItems))

	if s.Transactions > 0 {
		b.WriteString("\n[BASKET SIZES]\n")
		b.WriteString(fmt.Sprintf("min %d, max %d, mean %.2f, single-item %.1f%%\n", s.MinBasket, s.MaxBasket, s.MeanBasket, s.SingleItemShare*100))
		for _, sz := range s.Sizes {
			b.WriteString(fmt.Sprintf("- %d item(s): %d\n", sz.Size, sz.Count))
		}
	}
	if len(s.TopItems) > 0 {
		b.WriteString("\n[TOP ITEMS]\n")
		b.WriteString("| item | baskets | share |\n| --- | --- | --- |\n")
		for _, it := range s.TopItems {
			b.WriteString(fmt.Sprintf("| %s | %d | %.1f%% |\n", safeVal(it.Item), it.Count, it.Share*100))
		}
	}
	if len(s.Dropped) > 0 {
		b.WriteString("\n[CLEANING]\n")
		keys := make([]string, 0, len(s.Dropped))
		for k := range s.Dropped {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("- dropped %d row(s): %s\n", s.Dropped[k], k))
		}
	}
	if len(s.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range s.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

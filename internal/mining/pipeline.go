package mining

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Params are the user-facing thresholds of one analysis run.
type Params struct {
	MinSupport    float64 `json:"min_support" yaml:"min_support"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
	MinLift       float64 `json:"min_lift" yaml:"min_lift"`
	MaxLen        int     `json:"max_len,omitempty" yaml:"max_len,omitempty"`
	MaxItemsets   int     `json:"max_itemsets,omitempty" yaml:"max_itemsets,omitempty"`
	MaxRules      int     `json:"max_rules,omitempty" yaml:"max_rules,omitempty"`
}

// DefaultParams returns thresholds suitable for a small store's sales export.
func DefaultParams() Params {
	return Params{
		MinSupport:    0.02,
		MinConfidence: 0.5,
		MinLift:       1.0,
		MaxItemsets:   200000,
		MaxRules:      500000,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if math.IsNaN(p.MinSupport) || p.MinSupport <= 0 || p.MinSupport > 1 {
		return fmt.Errorf("%w: min support %v outside (0, 1]", ErrInvalidInput, p.MinSupport)
	}
	if math.IsNaN(p.MinConfidence) || p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("%w: min confidence %v outside [0, 1]", ErrInvalidInput, p.MinConfidence)
	}
	if math.IsNaN(p.MinLift) || p.MinLift < 0 {
		return fmt.Errorf("%w: min lift %v is negative", ErrInvalidInput, p.MinLift)
	}
	if p.MaxLen < 0 || p.MaxItemsets < 0 || p.MaxRules < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalidInput)
	}
	return nil
}

// Status tells a renderer whether there is anything to show.
type Status string

const (
	StatusOK         Status = "ok"
	StatusNoItemsets Status = "no_itemsets"
	StatusNoRules    Status = "no_rules"
)

// Result is the outcome of Analyze. Itemsets and Rules are sorted.
type Result struct {
	Transactions int
	Items        int
	MinCount     int
	Itemsets     []Itemset
	Rules        []Rule
	Status       Status
}

// Analyze encodes txs, mines frequent itemsets and derives rules filtered by
// confidence with a lift floor. Empty outputs are reported through Status.
func Analyze(ctx context.Context, txs []Transaction, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	enc, err := Encode(txs)
	if err != nil {
		return nil, err
	}
	sets, err := Mine(ctx, enc, MineOptions{MinSupport: p.MinSupport, MaxLen: p.MaxLen, MaxItemsets: p.MaxItemsets})
	if err != nil {
		return nil, err
	}
	res := &Result{
		Transactions: enc.N(),
		Items:        enc.M(),
		MinCount:     MinCount(p.MinSupport, enc.N()),
		Itemsets:     sets,
		Status:       StatusOK,
	}
	if len(sets) == 0 {
		res.Status = StatusNoItemsets
		return res, nil
	}
	rules, err := GenerateRules(sets, RuleOptions{
		Metric:       MetricConfidence,
		MinThreshold: p.MinConfidence,
		MinLift:      p.MinLift,
		MaxRules:     p.MaxRules,
	})
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		res.Status = StatusNoRules
	}
	SortItemsets(res.Itemsets)
	SortRules(rules)
	res.Rules = rules
	return res, nil
}

// SortRules orders rules by lift, then confidence, both descending, then by
// antecedent and consequent labels.
func SortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Lift != b.Lift {
			return a.Lift > b.Lift
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if la, lb := a.AntecedentLabel(), b.AntecedentLabel(); la != lb {
			return la < lb
		}
		return a.ConsequentLabel() < b.ConsequentLabel()
	})
}

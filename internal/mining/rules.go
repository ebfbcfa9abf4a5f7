package mining

import (
	"fmt"
	"math"
	"strings"
)

// Metric selects the rule measure compared against RuleOptions.MinThreshold.
type Metric int

const (
	MetricConfidence Metric = iota
	MetricLift
	MetricSupport
	MetricLeverage
	MetricConviction
)

// thresholdEpsilon keeps ratios such as 0.3/0.6 from falling just short of 0.5.
const thresholdEpsilon = 1e-12

// maxRuleItems bounds the itemset size whose splits can be enumerated with a
// 64-bit mask.
const maxRuleItems = 62

var metricNames = map[Metric]string{
	MetricConfidence: "confidence",
	MetricLift:       "lift",
	MetricSupport:    "support",
	MetricLeverage:   "leverage",
	MetricConviction: "conviction",
}

func (m Metric) String() string {
	if s, ok := metricNames[m]; ok {
		return s
	}
	return fmt.Sprintf("metric(%d)", int(m))
}

// ParseMetric maps a metric name to its Metric.
func ParseMetric(s string) (Metric, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return MetricConfidence, nil
	}
	for m, n := range metricNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown metric %q (use confidence|lift|support|leverage|conviction)", ErrInvalidInput, s)
}

// Rule is an association rule Antecedent → Consequent. Supports are fractions
// of all transactions; Conviction is +Inf when Confidence is 1.
type Rule struct {
	Antecedent        []string
	Consequent        []string
	AntecedentSupport float64
	ConsequentSupport float64
	Support           float64
	Confidence        float64
	Lift              float64
	Leverage          float64
	Conviction        float64
}

// AntecedentLabel renders the antecedent comma-joined.
func (r Rule) AntecedentLabel() string { return label(r.Antecedent) }

// ConsequentLabel renders the consequent comma-joined.
func (r Rule) ConsequentLabel() string { return label(r.Consequent) }

// Value returns the rule's measure for m.
func (r Rule) Value(m Metric) float64 {
	switch m {
	case MetricLift:
		return r.Lift
	case MetricSupport:
		return r.Support
	case MetricLeverage:
		return r.Leverage
	case MetricConviction:
		return r.Conviction
	default:
		return r.Confidence
	}
}

// RuleOptions configures rule generation. A rule is kept when its Metric value
// reaches MinThreshold and, independently, its lift reaches MinLift.
type RuleOptions struct {
	Metric       Metric
	MinThreshold float64
	MinLift      float64
	// MaxRules is a soft limit on the output size; 0 disables it.
	MaxRules int
}

func (o RuleOptions) validate() error {
	if _, ok := metricNames[o.Metric]; !ok {
		return fmt.Errorf("%w: unknown metric %v", ErrInvalidInput, o.Metric)
	}
	thr := o.MinThreshold
	if math.IsNaN(thr) {
		return fmt.Errorf("%w: min threshold is NaN", ErrInvalidInput)
	}
	switch o.Metric {
	case MetricConfidence, MetricSupport:
		if thr < 0 || thr > 1 {
			return fmt.Errorf("%w: min %s %v outside [0, 1]", ErrInvalidInput, o.Metric, thr)
		}
	case MetricLift, MetricConviction:
		if thr < 0 {
			return fmt.Errorf("%w: min %s %v is negative", ErrInvalidInput, o.Metric, thr)
		}
	case MetricLeverage:
		if thr < -1 || thr > 1 {
			return fmt.Errorf("%w: min leverage %v outside [-1, 1]", ErrInvalidInput, thr)
		}
	}
	if math.IsNaN(o.MinLift) || o.MinLift < 0 {
		return fmt.Errorf("%w: min lift %v is negative", ErrInvalidInput, o.MinLift)
	}
	if o.MaxRules < 0 {
		return fmt.Errorf("%w: max rules %d is negative", ErrInvalidInput, o.MaxRules)
	}
	return nil
}

// GenerateRules derives every rule X → Y where X ∪ Y is one of itemsets and
// X, Y are disjoint and non-empty, using only the supports recorded in
// itemsets. No qualifying rule yields (nil, nil). Output order is unspecified;
// use SortRules before presenting.
func GenerateRules(itemsets []Itemset, opt RuleOptions) ([]Rule, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if len(itemsets) == 0 {
		return nil, nil
	}
	supports := make(map[string]float64, len(itemsets))
	for _, s := range itemsets {
		supports[s.Key()] = s.Support
	}
	lookup := func(items []string) (float64, error) {
		sup, ok := supports[itemsetKey(items)]
		if !ok {
			return 0, fmt.Errorf("%w: support of {%s} missing from itemset collection", ErrInvalidInput, label(items))
		}
		return sup, nil
	}

	var rules []Rule
	for _, set := range itemsets {
		k := len(set.Items)
		if k < 2 {
			continue
		}
		if k > maxRuleItems {
			return nil, fmt.Errorf("%w: itemset of %d items is too large to split", ErrResourceExhausted, k)
		}
		full := uint64(1)<<uint(k) - 1
		for mask := uint64(1); mask < full; mask++ {
			ante, cons := split(set.Items, mask)
			sa, err := lookup(ante)
			if err != nil {
				return nil, err
			}
			sc, err := lookup(cons)
			if err != nil {
				return nil, err
			}
			r := newRule(ante, cons, sa, sc, set.Support)
			if !keep(r, opt) {
				continue
			}
			if opt.MaxRules > 0 && len(rules) >= opt.MaxRules {
				return nil, fmt.Errorf("%w: more than %d rules; raise the thresholds", ErrResourceExhausted, opt.MaxRules)
			}
			rules = append(rules, r)
		}
	}
	return rules, nil
}

func newRule(ante, cons []string, sa, sc, sup float64) Rule {
	conf := sup / sa
	r := Rule{
		Antecedent:        ante,
		Consequent:        cons,
		AntecedentSupport: sa,
		ConsequentSupport: sc,
		Support:           sup,
		Confidence:        conf,
		Lift:              conf / sc,
		Leverage:          sup - sa*sc,
	}
	if conf >= 1 {
		r.Conviction = math.Inf(1)
	} else {
		r.Conviction = (1 - sc) / (1 - conf)
	}
	return r
}

func keep(r Rule, opt RuleOptions) bool {
	if r.Value(opt.Metric) < opt.MinThreshold-thresholdEpsilon {
		return false
	}
	return r.Lift >= opt.MinLift-thresholdEpsilon
}

// split partitions sorted items by mask; both halves stay sorted.
func split(items []string, mask uint64) (in, out []string) {
	for i, it := range items {
		if mask&(1<<uint(i)) != 0 {
			in = append(in, it)
		} else {
			out = append(out, it)
		}
	}
	return in, out
}

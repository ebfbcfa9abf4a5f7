package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/sabrinalaillita/fpg-strl/internal/mining"
)

// ErrUnknownKind is returned by WriteCSV for a table other than itemsets or rules.
var ErrUnknownKind = errors.New("report: unknown table kind")

// Table kinds accepted by WriteCSV.
const (
	KindItemsets = "itemsets"
	KindRules    = "rules"
)

// Markdown renders the run as sectioned text with itemset and rule tables.
// limit caps the rows of each table; 0 shows everything.
func (r *Run) Markdown(limit int) string {
	var b strings.Builder
	b.WriteString("[ANALYSIS RUN]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("Name: %s\n", r.Name))
	}
	if r.ID != "" {
		b.WriteString(fmt.Sprintf("ID: %s\n", r.ID))
	}
	if r.Source != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", r.Source))
	}
	if !r.CreatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Created: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05 MST")))
	}
	b.WriteString(fmt.Sprintf("Parameters: min support %.4g, min confidence %.4g, min lift %.4g", r.Params.MinSupport, r.Params.MinConfidence, r.Params.MinLift))
	if r.Params.MaxLen > 0 {
		b.WriteString(fmt.Sprintf(", max length %d", r.Params.MaxLen))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Transactions: %d, distinct items: %d, min count: %d\n", r.Transactions, r.Items, r.MinCount))

	b.WriteString(fmt.Sprintf("\n[FREQUENT ITEMSETS] (%d)\n", len(r.Itemsets)))
	if len(r.Itemsets) == 0 {
		b.WriteString(fmt.Sprintf("No itemset reaches min support %.4g. Try lowering it.\n", r.Params.MinSupport))
	} else {
		b.WriteString("| itemset | support | count |\n| --- | --- | --- |\n")
		for i, s := range r.Itemsets {
			if limit > 0 && i >= limit {
				b.WriteString(fmt.Sprintf("... %d more\n", len(r.Itemsets)-limit))
				break
			}
			b.WriteString(fmt.Sprintf("| %s | %.4f | %d |\n", cellText(s.Label()), s.Support, s.Count))
		}
	}

	b.WriteString(fmt.Sprintf("\n[ASSOCIATION RULES] (%d)\n", len(r.Rules)))
	switch {
	case len(r.Rules) > 0:
		b.WriteString("| antecedent | consequent | support | confidence | lift | leverage | conviction |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
		for i, rr := range r.Rules {
			if limit > 0 && i >= limit {
				b.WriteString(fmt.Sprintf("... %d more\n", len(r.Rules)-limit))
				break
			}
			rule := rr.Rule()
			b.WriteString(fmt.Sprintf("| %s | %s | %.4f | %.4f | %.4f | %.4f | %s |\n",
				cellText(rule.AntecedentLabel()), cellText(rule.ConsequentLabel()),
				rule.Support, rule.Confidence, rule.Lift, rule.Leverage, formatConviction(rule.Conviction)))
		}
	case r.Status == mining.StatusNoItemsets:
		b.WriteString("No rules: there are no frequent itemsets.\n")
	default:
		b.WriteString(fmt.Sprintf("No rule reaches min confidence %.4g with lift >= %.4g. Try lowering the thresholds.\n", r.Params.MinConfidence, r.Params.MinLift))
	}
	return b.String()
}

// WriteCSV writes the itemsets or rules table of r to w.
func (r *Run) WriteCSV(w io.Writer, kind string) error {
	cw := csv.NewWriter(w)
	switch kind {
	case KindItemsets:
		if err := cw.Write([]string{"itemsets", "length", "count", "support"}); err != nil {
			return err
		}
		for _, s := range r.Itemsets {
			rec := []string{s.Label(), strconv.Itoa(s.Len()), strconv.Itoa(s.Count), formatFloat(s.Support)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	case KindRules:
		header := []string{"antecedents", "consequents", "antecedent support", "consequent support", "support", "confidence", "lift", "leverage", "conviction"}
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, rr := range r.Rules {
			rule := rr.Rule()
			rec := []string{
				rule.AntecedentLabel(), rule.ConsequentLabel(),
				formatFloat(rule.AntecedentSupport), formatFloat(rule.ConsequentSupport),
				formatFloat(rule.Support), formatFloat(rule.Confidence), formatFloat(rule.Lift),
				formatFloat(rule.Leverage), formatFloat(rule.Conviction),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %q (use %s or %s)", ErrUnknownKind, kind, KindItemsets, KindRules)
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatConviction(v float64) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.4f", v)
}

func cellText(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sabrinalaillita/fpg-strl/internal/analysis"
	"github.com/sabrinalaillita/fpg-strl/internal/mining"
	"github.com/sabrinalaillita/fpg-strl/internal/utils"
)

var (
	// ErrRunNotFound is returned when no saved run matches an id or prefix.
	ErrRunNotFound = errors.New("report: run not found")
	// ErrAmbiguousID is returned when a prefix matches more than one run.
	ErrAmbiguousID = errors.New("report: ambiguous run id")
)

const runExt = ".json"

// Run is one persisted analysis: the parameters used and everything mined.
type Run struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Source       string            `json:"source"`
	CreatedAt    time.Time         `json:"created_at"`
	Params       mining.Params     `json:"params"`
	Transactions int               `json:"transactions"`
	Items        int               `json:"items"`
	MinCount     int               `json:"min_count"`
	Status       mining.Status     `json:"status"`
	Itemsets     []mining.Itemset  `json:"itemsets"`
	Rules        []RuleRow         `json:"rules"`
	Summary      *analysis.Summary `json:"summary,omitempty"`
}

// RuleRow is the JSON form of a rule. Conviction is null when infinite.
type RuleRow struct {
	Antecedent        []string `json:"antecedent"`
	Consequent        []string `json:"consequent"`
	AntecedentSupport float64  `json:"antecedent_support"`
	ConsequentSupport float64  `json:"consequent_support"`
	Support           float64  `json:"support"`
	Confidence        float64  `json:"confidence"`
	Lift              float64  `json:"lift"`
	Leverage          float64  `json:"leverage"`
	Conviction        *float64 `json:"conviction"`
}

// NewRuleRow converts a mined rule for serialization.
func NewRuleRow(r mining.Rule) RuleRow {
	row := RuleRow{
		Antecedent:        r.Antecedent,
		Consequent:        r.Consequent,
		AntecedentSupport: r.AntecedentSupport,
		ConsequentSupport: r.ConsequentSupport,
		Support:           r.Support,
		Confidence:        r.Confidence,
		Lift:              r.Lift,
		Leverage:          r.Leverage,
	}
	if !math.IsInf(r.Conviction, 0) {
		c := r.Conviction
		row.Conviction = &c
	}
	return row
}

// Rule converts the row back, restoring an infinite conviction.
func (rr RuleRow) Rule() mining.Rule {
	conv := math.Inf(1)
	if rr.Conviction != nil {
		conv = *rr.Conviction
	}
	return mining.Rule{
		Antecedent:        rr.Antecedent,
		Consequent:        rr.Consequent,
		AntecedentSupport: rr.AntecedentSupport,
		ConsequentSupport: rr.ConsequentSupport,
		Support:           rr.Support,
		Confidence:        rr.Confidence,
		Lift:              rr.Lift,
		Leverage:          rr.Leverage,
		Conviction:        conv,
	}
}

// NewRun captures res under a fresh id. The name defaults to the source's
// base name without extension.
func NewRun(source string, p mining.Params, res *mining.Result) *Run {
	base := filepath.Base(source)
	r := &Run{
		ID:        uuid.NewString(),
		Name:      strings.TrimSuffix(base, filepath.Ext(base)),
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Params:    p,
		Itemsets:  []mining.Itemset{},
		Rules:     []RuleRow{},
	}
	if res == nil {
		return r
	}
	r.Transactions = res.Transactions
	r.Items = res.Items
	r.MinCount = res.MinCount
	r.Status = res.Status
	if res.Itemsets != nil {
		r.Itemsets = res.Itemsets
	}
	for _, rule := range res.Rules {
		r.Rules = append(r.Rules, NewRuleRow(rule))
	}
	return r
}

// Save writes the run to dir/<id>.json using atomic write and returns the path.
func (r *Run) Save(dir string) (string, error) {
	if r.ID == "" {
		return "", errors.New("run id not set")
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(r)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, r.ID+runExt)
	if err := utils.SafeWriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads a saved run file.
func Load(path string) (*Run, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run not found at %s: %w", path, ErrRunNotFound)
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	var r Run
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse run %s: %w", filepath.Base(path), err)
	}
	return &r, nil
}

// Summary is the listing view of a saved run.
type Summary struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Source       string        `json:"source"`
	CreatedAt    time.Time     `json:"created_at"`
	Status       mining.Status `json:"status"`
	Transactions int           `json:"transactions"`
	Itemsets     int           `json:"itemsets"`
	Rules        int           `json:"rules"`
}

// Summarize returns the listing view of r.
func (r *Run) Summarize() Summary {
	return Summary{
		ID:           r.ID,
		Name:         r.Name,
		Source:       r.Source,
		CreatedAt:    r.CreatedAt,
		Status:       r.Status,
		Transactions: r.Transactions,
		Itemsets:     len(r.Itemsets),
		Rules:        len(r.Rules),
	}
}

// List returns the runs saved in dir, newest first. A missing dir is empty.
// Files that fail to parse are skipped.
func List(dir string) ([]Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var out []Summary
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != runExt {
			continue
		}
		r, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, r.Summarize())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Find loads the run whose id equals or starts with idOrPrefix.
func Find(dir, idOrPrefix string) (*Run, error) {
	key := strings.TrimSuffix(strings.TrimSpace(idOrPrefix), runExt)
	if key == "" {
		return nil, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	if _, err := uuid.Parse(key); err == nil {
		return Load(filepath.Join(dir, key+runExt))
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, key)
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var matches []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != runExt {
			continue
		}
		if strings.HasPrefix(name, key) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, key)
	case 1:
		return Load(filepath.Join(dir, matches[0]))
	default:
		return nil, fmt.Errorf("%w: %s matches %d runs", ErrAmbiguousID, key, len(matches))
	}
}

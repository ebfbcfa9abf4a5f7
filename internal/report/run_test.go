package report_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sabrinalaillita/fpg-strl/internal/mining"
	"github.com/sabrinalaillita/fpg-strl/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleRun(t *testing.T) *report.Run {
	t.Helper()
	txs := []mining.Transaction{
		{ID: "t1", Items: []string{"A", "B", "C"}},
		{ID: "t2", Items: []string{"A", "B"}},
		{ID: "t3", Items: []string{"A", "C"}},
		{ID: "t4", Items: []string{"A"}},
		{ID: "t5", Items: []string{"B", "C"}},
	}
	p := mining.Params{MinSupport: 0.4, MinConfidence: 0.5, MinLift: 1.0}
	res, err := mining.Analyze(context.Background(), txs, p)
	require.NoError(t, err)
	return report.NewRun("/data/store sales.csv", p, res)
}

func TestNewRun(t *testing.T) {
	r := exampleRun(t)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "store sales", r.Name)
	assert.Equal(t, 5, r.Transactions)
	assert.Equal(t, 2, r.MinCount)
	assert.Equal(t, mining.StatusOK, r.Status)
	assert.Len(t, r.Itemsets, 6)
	require.Len(t, r.Rules, 2)
	assert.Equal(t, []string{"B"}, r.Rules[0].Antecedent)
	assert.Equal(t, []string{"C"}, r.Rules[0].Consequent)
	require.NotNil(t, r.Rules[0].Conviction)
	assert.InDelta(t, 1.2, *r.Rules[0].Conviction, 1e-9)
}

func TestNewRunEmptyResult(t *testing.T) {
	r := report.NewRun("x.csv", mining.DefaultParams(), &mining.Result{Status: mining.StatusNoItemsets})
	assert.NotNil(t, r.Itemsets)
	assert.NotNil(t, r.Rules)
	md := r.Markdown(0)
	assert.Contains(t, md, "No itemset reaches min support 0.02")
	assert.Contains(t, md, "No rules: there are no frequent itemsets.")
}

func TestRuleRowInfiniteConviction(t *testing.T) {
	row := report.NewRuleRow(mining.Rule{Antecedent: []string{"x"}, Consequent: []string{"y"}, Confidence: 1, Conviction: math.Inf(1)})
	assert.Nil(t, row.Conviction)
	assert.True(t, math.IsInf(row.Rule().Conviction, 1))

	r := &report.Run{ID: "00000000-0000-0000-0000-000000000001", Rules: []report.RuleRow{row}}
	dir := t.TempDir()
	path, err := r.Save(dir)
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"conviction": null`)

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf, report.KindRules))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), ",inf"), buf.String())
	assert.Contains(t, r.Markdown(0), "| ∞ |")
}

func TestSaveLoadFind(t *testing.T) {
	dir := t.TempDir()
	r := exampleRun(t)
	path, err := r.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, r.ID+".json"), path)

	got, err := report.Load(path)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, r.Itemsets, got.Itemsets)
	assert.Equal(t, r.Rules, got.Rules)
	assert.True(t, r.CreatedAt.Equal(got.CreatedAt))

	byID, err := report.Find(dir, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, byID.ID)

	byPrefix, err := report.Find(dir, r.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, r.ID, byPrefix.ID)

	_, err = report.Find(dir, "zzzz")
	assert.ErrorIs(t, err, report.ErrRunNotFound)
	_, err = report.Find(dir, "")
	assert.ErrorIs(t, err, report.ErrRunNotFound)
	_, err = report.Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, report.ErrRunNotFound)
}

func TestFindAmbiguousPrefix(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"abc10000-0000-0000-0000-000000000000", "abc20000-0000-0000-0000-000000000000"} {
		_, err := (&report.Run{ID: id}).Save(dir)
		require.NoError(t, err)
	}
	_, err := report.Find(dir, "abc")
	assert.ErrorIs(t, err, report.ErrAmbiguousID)
	r, err := report.Find(dir, "abc2")
	require.NoError(t, err)
	assert.Equal(t, "abc20000-0000-0000-0000-000000000000", r.ID)
}

func TestListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	older := exampleRun(t)
	older.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := exampleRun(t)
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	for _, r := range []*report.Run{older, newer} {
		_, err := r.Save(dir)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	list, err := report.List(dir)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, 6, list[0].Itemsets)
	assert.Equal(t, 2, list[0].Rules)

	missing, err := report.List(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestMarkdown(t *testing.T) {
	r := exampleRun(t)
	md := r.Markdown(0)
	for _, want := range []string{
		"[ANALYSIS RUN]",
		"Name: store sales",
		"Transactions: 5, distinct items: 3, min count: 2",
		"[FREQUENT ITEMSETS] (6)",
		"| A | 0.8000 | 4 |",
		"| A, B | 0.4000 | 2 |",
		"[ASSOCIATION RULES] (2)",
		"| B | C | 0.4000 | 0.6667 | 1.1111 | 0.0400 | 1.2000 |",
	} {
		assert.Contains(t, md, want)
	}
	assert.Contains(t, r.Markdown(2), "... 4 more")
}

func TestWriteCSV(t *testing.T) {
	r := exampleRun(t)

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf, report.KindItemsets))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 7)
	assert.Equal(t, []string{"itemsets", "length", "count", "support"}, recs[0])
	assert.Equal(t, []string{"A", "1", "4", "0.8"}, recs[1])

	buf.Reset()
	require.NoError(t, r.WriteCSV(&buf, report.KindRules))
	recs, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "antecedents", recs[0][0])
	assert.Equal(t, []string{"B", "C"}, recs[1][:2])

	assert.ErrorIs(t, r.WriteCSV(&buf, "pairs"), report.ErrUnknownKind)
}

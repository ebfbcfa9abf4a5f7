package mining_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabrinalaillita/fpg-strl/internal/mining"
)

func TestAnalyze_Example(t *testing.T) {
	res, err := mining.Analyze(context.Background(), exampleTxs(), mining.Params{MinSupport: 0.4, MinConfidence: 0.5, MinLift: 1.0})
	require.NoError(t, err)

	assert.Equal(t, mining.StatusOK, res.Status)
	assert.Equal(t, 5, res.Transactions)
	assert.Equal(t, 3, res.Items)
	assert.Equal(t, 2, res.MinCount)

	labels := make([]string, len(res.Itemsets))
	for i, s := range res.Itemsets {
		labels[i] = s.Label()
	}
	assert.Equal(t, []string{"A", "B", "C", "A, B", "A, C", "B, C"}, labels)

	require.Len(t, res.Rules, 2)
	assert.Equal(t, "B", res.Rules[0].AntecedentLabel())
	assert.Equal(t, "C", res.Rules[0].ConsequentLabel())
	assert.Equal(t, "C", res.Rules[1].AntecedentLabel())
}

func TestAnalyze_EmptyOutcomes(t *testing.T) {
	res, err := mining.Analyze(context.Background(), exampleTxs(), mining.Params{MinSupport: 1, MinConfidence: 0.5})
	require.NoError(t, err)
	assert.Equal(t, mining.StatusNoItemsets, res.Status)
	assert.Empty(t, res.Itemsets)

	res, err = mining.Analyze(context.Background(), exampleTxs(), mining.Params{MinSupport: 0.6, MinConfidence: 0.1})
	require.NoError(t, err)
	assert.Equal(t, mining.StatusNoRules, res.Status)
	assert.Len(t, res.Itemsets, 3)
	assert.Empty(t, res.Rules)
}

func TestAnalyze_InvalidInput(t *testing.T) {
	_, err := mining.Analyze(context.Background(), nil, mining.DefaultParams())
	assert.True(t, mining.IsInvalidInput(err), "zero transactions is invalid input, not an empty result")

	for name, p := range map[string]mining.Params{
		"Support":    {MinSupport: 0, MinConfidence: 0.5},
		"Confidence": {MinSupport: 0.4, MinConfidence: 1.5},
		"Lift":       {MinSupport: 0.4, MinConfidence: 0.5, MinLift: -2},
		"Limits":     {MinSupport: 0.4, MaxRules: -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := mining.Analyze(context.Background(), exampleTxs(), p)
			assert.True(t, mining.IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	txs := randomTxs(17, 120, 9)
	p := mining.Params{MinSupport: 0.05, MinConfidence: 0.2, MinLift: 0.8}
	a, err := mining.Analyze(context.Background(), txs, p)
	require.NoError(t, err)
	b, err := mining.Analyze(context.Background(), txs, p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

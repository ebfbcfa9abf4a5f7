package mining_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabrinalaillita/fpg-strl/internal/mining"
)

func basket(id string, items ...string) mining.Transaction {
	return mining.Transaction{ID: id, Items: items}
}

// exampleTxs is the five-basket store used throughout the package tests.
func exampleTxs() []mining.Transaction {
	return []mining.Transaction{
		basket("t1", "A", "B", "C"),
		basket("t2", "A", "B"),
		basket("t3", "A", "C"),
		basket("t4", "A"),
		basket("t5", "B", "C"),
	}
}

func TestEncode_UniverseAndMatrix(t *testing.T) {
	enc, err := mining.Encode(exampleTxs())
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, enc.Items)
	assert.Equal(t, []int{4, 3, 3}, enc.Counts)
	assert.Equal(t, 5, enc.N())
	assert.Equal(t, 3, enc.M())
	assert.Equal(t, []string{"t1", "t2", "t3", "t4", "t5"}, enc.IDs)
	assert.Equal(t, [][]bool{
		{true, true, true},
		{true, true, false},
		{true, false, true},
		{true, false, false},
		{false, true, true},
	}, enc.Rows)
	assert.Equal(t, [][]int{{0, 1, 2}, {0, 1}, {0, 2}, {0}, {1, 2}}, enc.Transactions())

	j, ok := enc.Index("C")
	assert.True(t, ok)
	assert.Equal(t, 2, j)
	_, ok = enc.Index("Z")
	assert.False(t, ok)
}

func TestEncode_TieBreakByFirstAppearance(t *testing.T) {
	cases := []struct {
		name string
		txs  []mining.Transaction
		want []string
	}{
		{"SameBasket", []mining.Transaction{basket("1", "x", "y"), basket("2", "y", "x")}, []string{"x", "y"}},
		{"LaterBasket", []mining.Transaction{basket("1", "b"), basket("2", "a", "b"), basket("3", "a")}, []string{"b", "a"}},
		{"CountWins", []mining.Transaction{basket("1", "p"), basket("2", "q"), basket("3", "q")}, []string{"q", "p"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enc, err := mining.Encode(tc.txs)
			require.NoError(t, err)
			assert.Equal(t, tc.want, enc.Items)
		})
	}
}

func TestEncode_DuplicatesCollapse(t *testing.T) {
	enc, err := mining.Encode([]mining.Transaction{basket("1", "tea", "tea", "cake"), basket("2", "tea")})
	require.NoError(t, err)
	assert.Equal(t, []string{"tea", "cake"}, enc.Items)
	assert.Equal(t, []int{2, 1}, enc.Counts)
}

func TestEncode_Errors(t *testing.T) {
	cases := []struct {
		name string
		txs  []mining.Transaction
	}{
		{"NoTransactions", nil},
		{"EmptyTransaction", []mining.Transaction{basket("1", "a"), basket("2")}},
		{"EmptyItem", []mining.Transaction{basket("1", "a", "")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mining.Encode(tc.txs)
			require.Error(t, err)
			assert.True(t, mining.IsInvalidInput(err), "got %v", err)
		})
	}
}

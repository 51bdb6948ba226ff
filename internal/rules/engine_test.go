package rules

import (
	"testing"
	"time"

	"bilancio/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func rule(id, pattern, category string, age time.Duration) core.MerchantRule {
	return core.MerchantRule{ID: id, Pattern: pattern, CategoryID: category, CreatedAt: t0.Add(age)}
}

func TestMatch_FirstMatchWins(t *testing.T) {
	rs := []core.MerchantRule{
		rule("r1", "AMA", "shopping", 0),
		rule("r2", "AMAZON", "subscriptions", time.Hour),
	}

	got, ok := Match("AMAZON PRIME", rs)
	require.True(t, ok)
	assert.Equal(t, "shopping", got)
}

func TestMatch_CaseInsensitive(t *testing.T) {
	rs := []core.MerchantRule{rule("r1", "esselunga", "groceries", 0)}

	tests := []struct {
		desc string
		want bool
	}{
		{"ESSELUNGA MILANO", true},
		{"Pagamento Esselunga", true},
		{"Conad", false},
		{"", false},
	}
	for _, tt := range tests {
		_, ok := Match(tt.desc, rs)
		assert.Equal(t, tt.want, ok, tt.desc)
	}
}

func TestMatch_EmptyPatternNeverMatches(t *testing.T) {
	rs := []core.MerchantRule{rule("r1", "  ", "misc", 0)}
	_, ok := Match("anything", rs)
	assert.False(t, ok)
}

func TestMatch_UnicodeUpperCasing(t *testing.T) {
	rs := []core.MerchantRule{rule("r1", "caffè", "bar", 0)}
	got, ok := Match("CAFFÈ CENTRALE", rs)
	require.True(t, ok)
	assert.Equal(t, "bar", got)
}

func TestNewEngine_OrdersByCreation(t *testing.T) {
	// Store returned newest first.
	e := NewEngine([]core.MerchantRule{
		rule("r2", "AMAZON", "subscriptions", time.Hour),
		rule("r1", "AMA", "shopping", 0),
	})

	got, ok := e.Match("amazon prime")
	require.True(t, ok)
	assert.Equal(t, "shopping", got)
	assert.Equal(t, "r1", e.Rules()[0].ID)
}

func TestNewEngine_TiesBrokenByID(t *testing.T) {
	e := NewEngine([]core.MerchantRule{
		rule("b", "PRIME", "video", 0),
		rule("a", "AMAZON", "shopping", 0),
	})
	got, _ := e.Match("AMAZON PRIME")
	assert.Equal(t, "shopping", got)
}

func TestNewEngine_SameInstantKeepsInsertionOrder(t *testing.T) {
	older := rule("zzz", "AMA", "shopping", 0)
	older.Seq = 1
	newer := rule("aaa", "AMAZON", "books", 0)
	newer.Seq = 2

	e := NewEngine([]core.MerchantRule{newer, older})
	got, ok := e.Match("AMAZON PRIME")
	require.True(t, ok)
	assert.Equal(t, "shopping", got)
	assert.Equal(t, "zzz", e.Rules()[0].ID)
}

func TestEngine_Apply(t *testing.T) {
	e := NewEngine([]core.MerchantRule{rule("r1", "coop", "groceries", 0)})
	manual := "home"
	txs := []core.Transaction{
		{Description: "COOP LOMBARDIA"},
		{Description: "Coop", CategoryID: &manual},
		{Description: "Netflix"},
	}

	n := e.Apply(txs)
	assert.Equal(t, 1, n)
	require.NotNil(t, txs[0].CategoryID)
	assert.Equal(t, "groceries", *txs[0].CategoryID)
	assert.Equal(t, "home", *txs[1].CategoryID, "existing category kept")
	assert.Nil(t, txs[2].CategoryID)
}

func TestEngine_EmptyApply(t *testing.T) {
	e := NewEngine(nil)
	txs := []core.Transaction{{Description: "x"}}
	assert.Zero(t, e.Apply(txs))
	assert.Zero(t, e.Len())
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("Amazon Prime", "PRIME"))
	assert.False(t, Contains("Amazon Prime", ""))
	assert.False(t, Contains("Amazon", "Netflix"))
}

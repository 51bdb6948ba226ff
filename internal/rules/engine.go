// Package rules implements keyword auto-categorization.
//
// A rule matches when its pattern is a case-insensitive substring of a
// transaction description. Rules are tried in creation order and the first
// match wins; there is no specificity ranking.
package rules

import (
	"sort"
	"strings"

	"bilancio/internal/core"
)

// Match returns the category of the first rule whose pattern the description contains.
func Match(description string, rules []core.MerchantRule) (string, bool) {
	desc := strings.ToUpper(description)
	for _, r := range rules {
		if matches(desc, r) {
			return r.CategoryID, true
		}
	}
	return "", false
}

// Contains reports whether description contains pattern, ignoring case.
func Contains(description, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	return strings.Contains(strings.ToUpper(description), strings.ToUpper(pattern))
}

func matches(upperDesc string, r core.MerchantRule) bool {
	pattern := strings.ToUpper(strings.TrimSpace(r.Pattern))
	return pattern != "" && r.CategoryID != "" && strings.Contains(upperDesc, pattern)
}

// Engine holds an ordered rule set.
type Engine struct {
	rules []core.MerchantRule
}

// NewEngine copies rules and orders them by creation time, then insertion
// sequence, then id.
func NewEngine(rules []core.MerchantRule) *Engine {
	ordered := make([]core.MerchantRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.ID < b.ID
	})
	return &Engine{rules: ordered}
}

func (e *Engine) Rules() []core.MerchantRule {
	return e.rules
}

func (e *Engine) Len() int {
	return len(e.rules)
}

// Match resolves a description against the ordered rules.
func (e *Engine) Match(description string) (string, bool) {
	return Match(description, e.rules)
}

// Categorize attaches the matching category to an uncategorized transaction.
// It reports whether the category was set.
func (e *Engine) Categorize(tx *core.Transaction) bool {
	if tx.IsCategorized() {
		return false
	}
	id, ok := e.Match(tx.Description)
	if !ok {
		return false
	}
	tx.CategoryID = &id
	return true
}

// Apply categorizes every uncategorized transaction in place and returns how many were set.
func (e *Engine) Apply(txs []core.Transaction) int {
	if len(e.rules) == 0 {
		return 0
	}
	n := 0
	for i := range txs {
		if e.Categorize(&txs[i]) {
			n++
		}
	}
	return n
}

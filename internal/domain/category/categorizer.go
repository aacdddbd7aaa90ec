package category

import (
	"strings"

	"github.com/MJSteenberg/xfinance/internal/domain/ledger"
)

// Categorizer assigns a category label to a normalized transaction. It is a
// pure capability: no side effects, never fails, nil means no match.
// Callers may substitute any implementation without touching the
// reconciliation engine.
type Categorizer interface {
	Categorize(tx ledger.Transaction) *string
}

// Noop never assigns a category.
type Noop struct{}

func (Noop) Categorize(ledger.Transaction) *string { return nil }

// Rule maps description keywords to a category label.
type Rule struct {
	Category string
	Keywords []string
}

// RuleBased matches case-insensitive keywords against the transaction
// description; first matching rule wins.
type RuleBased struct {
	rules []Rule
}

// NewRuleBased creates a keyword categorizer.
func NewRuleBased(rules []Rule) *RuleBased {
	return &RuleBased{rules: rules}
}

func (c *RuleBased) Categorize(tx ledger.Transaction) *string {
	desc := strings.ToLower(tx.Description)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(desc, strings.ToLower(kw)) {
				category := rule.Category
				return &category
			}
		}
	}
	return nil
}

// DefaultRules covers the labels the dashboard groups by.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "Income", Keywords: []string{"salary", "wages", "payroll"}},
		{Category: "Housing", Keywords: []string{"rent", "mortgage", "levy"}},
		{Category: "Groceries", Keywords: []string{"grocery", "supermarket", "checkers", "woolworths", "pick n pay"}},
		{Category: "Transport", Keywords: []string{"fuel", "petrol", "uber", "gautrain"}},
		{Category: "Utilities", Keywords: []string{"electricity", "water", "municipal", "prepaid"}},
		{Category: "Fees", Keywords: []string{"fee", "charge", "commission"}},
	}
}

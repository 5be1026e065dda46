package rules

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/raketrapport/raket/internal/accounts"
	"github.com/raketrapport/raket/internal/model"
)

// Kind tells how a rule obtains its amount.
type Kind int

const (
	// KindHeading groups rows and carries no amount.
	KindHeading Kind = iota
	// KindLeaf sums ledger accounts selected by number range or SRU code.
	KindLeaf
	// KindRef copies an amount computed by an earlier table.
	KindRef
	// KindFormula sums earlier rows of the same table.
	KindFormula
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindLeaf:
		return "leaf"
	case KindRef:
		return "ref"
	case KindFormula:
		return "formula"
	}
	return "unknown"
}

// Factor scales a row's sum, either by a literal or by a named rate looked up
// for the fiscal year. The zero Factor leaves the sum unchanged.
type Factor struct {
	Rate    string
	Literal decimal.Decimal
	set     bool
}

// IsZero reports whether no factor was declared.
func (f Factor) IsZero() bool {
	return !f.set
}

func (f Factor) String() string {
	switch {
	case !f.set:
		return ""
	case f.Rate != "":
		return f.Rate
	}
	return f.Literal.String()
}

// Resolve returns the multiplier for a fiscal year.
func (f Factor) Resolve(rates Rates, fiscalYear int) (decimal.Decimal, bool) {
	if !f.set {
		return decimal.NewFromInt(1), true
	}
	if f.Rate == "" {
		return f.Literal, true
	}
	return rates.Lookup(f.Rate, fiscalYear)
}

// Rule is a compiled line item rule. Rules are only built by Compile.
type Rule struct {
	ID          string
	Label       string
	SRU         []string
	Style       model.Style
	Kind        Kind
	Accounts    accounts.Spec
	Terms       []Term
	Ref         Ref
	Factor      Factor
	NonNegative bool
	ShowAmount  bool
	AlwaysShow  bool
	Group       string
	BalanceType model.BalanceType
	Explainer   string
}

// HasSRU reports whether the rule declares at least one SRU code.
func (r Rule) HasSRU() bool {
	return len(r.SRU) > 0
}

// MatchesSRU reports whether code equals one of the rule's SRU alternatives.
func (r Rule) MatchesSRU(code string) bool {
	code = strings.TrimSpace(code)
	for _, c := range r.SRU {
		if c == code {
			return true
		}
	}
	return false
}

// Formula returns the rule's formula text, empty for non-formula rules.
func (r Rule) Formula() string {
	return FormatFormula(r.Terms)
}

// Table is an ordered, validated, read-only rule table.
type Table struct {
	name  TableName
	rules []Rule
	index map[string]int
}

// Name returns the table name.
func (t *Table) Name() TableName {
	return t.name
}

// Len returns the number of rules.
func (t *Table) Len() int {
	return len(t.rules)
}

// At returns the i-th rule in evaluation order.
func (t *Table) At(i int) Rule {
	return t.rules[i]
}

// Rules returns a copy of the rules in evaluation order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Rule returns the rule with the given id.
func (t *Table) Rule(id string) (Rule, bool) {
	i, ok := t.index[id]
	if !ok {
		return Rule{}, false
	}
	return t.rules[i], true
}

// Has reports whether the table defines id.
func (t *Table) Has(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Export returns the table in declarative form. Compiling the result yields
// an equivalent table.
func (t *Table) Export() []Row {
	rows := make([]Row, len(t.rules))
	for i, r := range t.rules {
		rows[i] = r.export()
	}
	return rows
}

func (r Rule) export() Row {
	row := Row{
		ID:           r.ID,
		Label:        r.Label,
		SRU:          strings.Join(r.SRU, "/"),
		Formula:      r.Formula(),
		Range:        r.Accounts.Range.String(),
		Include:      accounts.FormatList(r.Accounts.Include),
		ExcludeRange: r.Accounts.ExcludeRange.String(),
		Exclude:      accounts.FormatList(r.Accounts.Exclude),
		Factor:       r.Factor.String(),
		NonNegative:  r.NonNegative,
		AlwaysShow:   r.AlwaysShow,
		Group:        r.Group,
		BalanceType:  string(r.BalanceType),
		Explainer:    r.Explainer,
	}
	if r.Style != model.StyleNormal {
		row.Style = string(r.Style)
	}
	if r.Kind == KindRef {
		ref := r.Ref
		row.Ref = &ref
	}
	if show := r.Kind != KindHeading; r.ShowAmount != show {
		v := r.ShowAmount
		row.ShowAmount = &v
	}
	return row
}

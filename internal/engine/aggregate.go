// Package engine evaluates a compiled rule table against ledger balances.
//
// A table is evaluated once per year in a single forward pass. Leaf rows sum
// the ledger accounts they select, formula rows sum earlier rows, ref rows
// copy an amount computed by an earlier table. Evaluation never fails: rows
// that cannot be computed come out null and the reason is reported as an Issue.
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/raketrapport/raket/internal/model"
	"github.com/raketrapport/raket/internal/rules"
)

// Year selects which ledger year a value belongs to.
type Year int

const (
	Current Year = iota
	Previous
)

func (y Year) String() string {
	if y == Previous {
		return "previous"
	}
	return "current"
}

// Issue codes.
const (
	IssueNullOperand  = "null_operand"
	IssueMissingInput = "missing_input"
	IssueMissingRate  = "missing_rate"
)

// Issue is a non-fatal problem met while evaluating a row.
type Issue struct {
	Code   string `json:"code"`
	RowID  string `json:"row_id"`
	Year   Year   `json:"-"`
	Detail string `json:"detail"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s (%s): %s", i.Code, i.RowID, i.Year, i.Detail)
}

// zeroed lists rows forced to zero after evaluation. "Övriga skatter" is
// reported separately and never enters the year's result.
var zeroed = map[rules.TableName]string{
	rules.TableRR: "3.25",
}

// Options carries everything besides the ledger that a pass may consult.
type Options struct {
	// FiscalYear selects named rates.
	FiscalYear int
	Rates      rules.Rates
	// Inputs holds the computed items of earlier tables, for ref rows.
	Inputs map[rules.TableName][]model.LineItem
	// Overrides replace a row's current-year amount.
	Overrides map[string]decimal.Decimal
	// Adjustments are added to a row's current-year amount after any override.
	Adjustments map[string]decimal.Decimal
}

// Result is the evaluated table.
type Result struct {
	Table  rules.TableName
	Items  []model.LineItem
	Issues []Issue
	// Overridden and Adjusted list the row ids an override or adjustment
	// was applied to, in table order.
	Overridden []string
	Adjusted   []string
}

// Item returns the computed item with the given id.
func (r Result) Item(id string) (model.LineItem, bool) {
	return model.FindItem(r.Items, id)
}

// Current returns the current-year amount of a row, null when absent.
func (r Result) Current(id string) decimal.NullDecimal {
	it, _ := r.Item(id)
	return it.CurrentAmount
}

// Aggregate evaluates table for the current year and, when the ledger has
// prior-year balances, the previous year.
func Aggregate(table *rules.Table, ledger model.Ledger, opts Options) Result {
	res := Result{Table: table.Name(), Items: make([]model.LineItem, table.Len())}

	cur := newPass(table, ledger.Current, ledger.SRU, Current, opts)
	cur.run()
	res.Issues = append(res.Issues, cur.issues...)
	res.Overridden = cur.overridden
	res.Adjusted = cur.adjusted

	var prev *pass
	if ledger.HasPrevious() {
		prev = newPass(table, ledger.Previous, ledger.SRU, Previous, opts)
		prev.run()
		res.Issues = append(res.Issues, prev.issues...)
	}

	for i := 0; i < table.Len(); i++ {
		r := table.At(i)
		it := model.LineItem{
			ID:             r.ID,
			Label:          r.Label,
			Style:          r.Style,
			Group:          r.Group,
			CurrentAmount:  cur.values[i],
			IsCalculated:   r.Kind == rules.KindFormula,
			IsManual:       cur.manual[i],
			ShowAmount:     r.ShowAmount,
			AlwaysShow:     r.AlwaysShow,
			BalanceType:    r.BalanceType,
			AccountDetails: cur.details[i],
			Explainer:      r.Explainer,
		}
		if prev != nil {
			it.PreviousAmount = prev.values[i]
		}
		res.Items[i] = it
	}
	return res
}

type pass struct {
	table    *rules.Table
	balances model.Balances
	sru      model.SRUMapping
	year     Year
	opts     Options

	accounts []int
	values   []decimal.NullDecimal
	details  [][]model.AccountDetail
	manual   []bool
	byID     map[string]decimal.NullDecimal

	issues     []Issue
	overridden []string
	adjusted   []string
}

func newPass(table *rules.Table, balances model.Balances, sru model.SRUMapping, year Year, opts Options) *pass {
	n := table.Len()
	return &pass{
		table:    table,
		balances: balances,
		sru:      sru,
		year:     year,
		opts:     opts,
		accounts: balances.Accounts(),
		values:   make([]decimal.NullDecimal, n),
		details:  make([][]model.AccountDetail, n),
		manual:   make([]bool, n),
		byID:     make(map[string]decimal.NullDecimal, n),
	}
}

func (p *pass) issue(code string, r rules.Rule, format string, args ...any) {
	p.issues = append(p.issues, Issue{Code: code, RowID: r.ID, Year: p.year, Detail: fmt.Sprintf(format, args...)})
}

func (p *pass) run() {
	for i := 0; i < p.table.Len(); i++ {
		r := p.table.At(i)
		v := p.evaluate(i, r)
		if r.Kind != rules.KindHeading {
			v = p.scale(r, v)
			if p.year == Current {
				v = p.manualInputs(i, r, v)
			}
		}
		p.values[i] = v
		p.byID[r.ID] = v
	}

	if id, ok := zeroed[p.table.Name()]; ok {
		for i := 0; i < p.table.Len(); i++ {
			if p.table.At(i).ID == id && p.values[i].Valid {
				p.values[i] = model.Amount(decimal.Zero)
				p.details[i] = nil
			}
		}
	}
}

func (p *pass) evaluate(i int, r rules.Rule) decimal.NullDecimal {
	switch r.Kind {
	case rules.KindHeading:
		return decimal.NullDecimal{}
	case rules.KindFormula:
		return p.formula(r)
	case rules.KindRef:
		return p.ref(r)
	}
	return p.leaf(i, r)
}

func (p *pass) leaf(i int, r rules.Rule) decimal.NullDecimal {
	sum := decimal.Zero
	var details []model.AccountDetail
	for _, acct := range p.accounts {
		bal := p.balances[acct]
		if bal.IsZero() || !p.matches(r, acct) {
			continue
		}
		sum = sum.Add(bal)
		details = append(details, model.AccountDetail{Account: acct, Amount: bal})
	}
	p.details[i] = details
	return model.Amount(sum)
}

// matches uses the account's SRU code when both the account and the rule
// have one, and the rule's account ranges otherwise.
func (p *pass) matches(r rules.Rule, acct int) bool {
	if code, ok := p.sru[acct]; ok && code != "" && r.HasSRU() {
		return r.MatchesSRU(code)
	}
	return r.Accounts.Contains(acct)
}

func (p *pass) formula(r rules.Rule) decimal.NullDecimal {
	sum := decimal.Zero
	for _, t := range r.Terms {
		v := p.byID[t.ID]
		if !v.Valid {
			p.issue(IssueNullOperand, r, "operand %s has no amount", t.ID)
			return decimal.NullDecimal{}
		}
		if t.Negative {
			sum = sum.Sub(v.Decimal)
		} else {
			sum = sum.Add(v.Decimal)
		}
	}
	return model.Amount(sum)
}

func (p *pass) ref(r rules.Rule) decimal.NullDecimal {
	items, ok := p.opts.Inputs[r.Ref.Table]
	if !ok {
		p.issue(IssueMissingInput, r, "table %s was not supplied", r.Ref.Table)
		return decimal.NullDecimal{}
	}
	it, ok := model.FindItem(items, r.Ref.ID)
	if !ok {
		p.issue(IssueMissingInput, r, "%s was not supplied", r.Ref)
		return decimal.NullDecimal{}
	}
	if p.year == Previous {
		return it.PreviousAmount
	}
	return it.CurrentAmount
}

func (p *pass) scale(r rules.Rule, v decimal.NullDecimal) decimal.NullDecimal {
	if !v.Valid {
		return v
	}
	if !r.Factor.IsZero() {
		f, ok := r.Factor.Resolve(p.opts.Rates, p.opts.FiscalYear)
		if !ok {
			p.issue(IssueMissingRate, r, "no rate %q for %d", r.Factor.Rate, p.opts.FiscalYear)
			return decimal.NullDecimal{}
		}
		v = model.Amount(v.Decimal.Mul(f))
	}
	if r.NonNegative && v.Decimal.IsNegative() {
		v = model.Amount(decimal.Zero)
	}
	return v
}

func (p *pass) manualInputs(i int, r rules.Rule, v decimal.NullDecimal) decimal.NullDecimal {
	if o, ok := p.opts.Overrides[r.ID]; ok {
		v = model.Amount(o)
		p.manual[i] = true
		p.overridden = append(p.overridden, r.ID)
	}
	if adj, ok := p.opts.Adjustments[r.ID]; ok {
		p.adjusted = append(p.adjusted, r.ID)
		if v.Valid {
			v = model.Amount(v.Decimal.Add(adj))
		}
	}
	return v
}

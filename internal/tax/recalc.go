// Package tax recomputes the INK2 tax calculation when a user edits manual
// amounts or adjusts the special payroll tax on pension premiums, and drives
// the tax decision flow built on top of that recalculation.
package tax

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/raketrapport/raket/internal/engine"
	"github.com/raketrapport/raket/internal/model"
	"github.com/raketrapport/raket/internal/rules"
)

// Variables with a fixed role in the tax flow.
const (
	PensionVariable       = "INK_sarskild_loneskatt"
	CalculatedTaxVariable = "INK_beraknad_skatt"
	BookedTaxVariable     = "INK_bokford_skatt"
)

// Warning codes.
const (
	WarnUnknownOverride   = "unknown_override"
	WarnMissingAccounts   = "missing_accounts"
	WarnMissingPensionRow = "missing_pension_row"
)

// Request is the recalculation input. The caller owns the override map and
// the pension adjustment and sends both in full every time.
type Request struct {
	CurrentAccounts model.Balances             `json:"current_accounts"`
	FiscalYear      int                        `json:"fiscal_year"`
	RRData          []model.LineItem           `json:"rr_data"`
	BRData          []model.LineItem           `json:"br_data"`
	ManualAmounts   map[string]decimal.Decimal `json:"manual_amounts"`
	// PensionAdjustment is added to INK_sarskild_loneskatt. Nil and zero
	// both mean no adjustment.
	PensionAdjustment *decimal.Decimal `json:"justering_sarskild_loneskatt,omitempty"`
}

// Warning is a non-fatal problem with a request.
type Warning struct {
	Code     string `json:"code"`
	Variable string `json:"variable,omitempty"`
	Message  string `json:"message"`
}

// Audit entry kinds.
const (
	AuditOverride          = "override"
	AuditPensionAdjustment = "pension_adjustment"
	AuditTransition        = "transition"
)

// AuditEntry records one manual input that changed the result.
type AuditEntry struct {
	Kind     string          `json:"kind"`
	Variable string          `json:"variable,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Detail   string          `json:"detail,omitempty"`
}

// ChangedInputs returns audit entries for the manual inputs that differ
// between two requests: overrides that were added, changed or removed, and
// a changed pension adjustment. Unchanged inputs yield nothing.
func ChangedInputs(before, after Request) []AuditEntry {
	var out []AuditEntry

	names := make([]string, 0, len(before.ManualAmounts)+len(after.ManualAmounts))
	for name := range after.ManualAmounts {
		names = append(names, name)
	}
	for name := range before.ManualAmounts {
		if _, ok := after.ManualAmounts[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		was, had := before.ManualAmounts[name]
		now, has := after.ManualAmounts[name]
		switch {
		case !has:
			out = append(out, AuditEntry{Kind: AuditOverride, Variable: name, Amount: decimal.Zero, Detail: "removed"})
		case !had || !was.Equal(now):
			out = append(out, AuditEntry{Kind: AuditOverride, Variable: name, Amount: now})
		}
	}

	was, now := adjustmentOf(before), adjustmentOf(after)
	if !was.Equal(now) {
		out = append(out, AuditEntry{Kind: AuditPensionAdjustment, Variable: PensionVariable, Amount: now})
	}
	return out
}

func adjustmentOf(r Request) decimal.Decimal {
	if r.PensionAdjustment == nil {
		return decimal.Zero
	}
	return *r.PensionAdjustment
}

// Result is the complete recalculated variable list.
type Result struct {
	Variables []model.TaxVariable `json:"ink2_data"`
	Warnings  []Warning           `json:"warnings,omitempty"`
	Issues    []engine.Issue      `json:"issues,omitempty"`
	Audit     []AuditEntry        `json:"-"`
}

// Variable returns the variable with the given name.
func (r *Result) Variable(name string) (model.TaxVariable, bool) {
	for _, v := range r.Variables {
		if v.VariableName == name {
			return v, true
		}
	}
	return model.TaxVariable{}, false
}

// Amount returns a variable's amount, null when it is absent or has none.
func (r *Result) Amount(name string) decimal.NullDecimal {
	v, _ := r.Variable(name)
	return v.Amount
}

// Service recalculates tax variables against a rule catalog.
type Service struct {
	catalog *rules.Catalog
}

// NewService returns a Service over catalog.
func NewService(catalog *rules.Catalog) *Service {
	return &Service{catalog: catalog}
}

// Catalog returns the rule catalog the service evaluates.
func (s *Service) Catalog() *rules.Catalog {
	return s.catalog
}

// Recalculate evaluates the INK2 table from scratch with the request's
// overrides and pension adjustment. Missing RR or BR results are derived
// from the request's accounts. Problems with the request come back as
// warnings; only a cancelled context is an error.
func (s *Service) Recalculate(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	if len(req.CurrentAccounts) == 0 {
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarnMissingAccounts,
			Message: "no account balances supplied, amounts derived from accounts are zero",
		})
	}

	ledger := model.Ledger{Current: req.CurrentAccounts}
	if ledger.Current == nil {
		ledger.Current = model.Balances{}
	}
	inputs := s.inputs(ledger, req)

	table := s.catalog.Table(rules.TableINK2)
	adjustments := map[string]decimal.Decimal{}
	if adj := req.PensionAdjustment; adj != nil && !adj.IsZero() {
		if table.Has(PensionVariable) {
			adjustments[PensionVariable] = *adj
		} else {
			res.Warnings = append(res.Warnings, Warning{
				Code:     WarnMissingPensionRow,
				Variable: PensionVariable,
				Message:  "pension adjustment ignored, the tax table has no row for it",
			})
		}
	}

	ev := engine.Aggregate(table, ledger, engine.Options{
		FiscalYear:  req.FiscalYear,
		Rates:       s.catalog.Rates(),
		Inputs:      inputs,
		Overrides:   req.ManualAmounts,
		Adjustments: adjustments,
	})
	res.Issues = ev.Issues

	applied := make(map[string]bool, len(ev.Overridden))
	for _, id := range ev.Overridden {
		applied[id] = true
		res.Audit = append(res.Audit, AuditEntry{Kind: AuditOverride, Variable: id, Amount: req.ManualAmounts[id]})
	}
	for _, id := range ev.Adjusted {
		res.Audit = append(res.Audit, AuditEntry{Kind: AuditPensionAdjustment, Variable: id, Amount: adjustments[id]})
	}

	var unknown []string
	for name := range req.ManualAmounts {
		if !applied[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		res.Warnings = append(res.Warnings, Warning{
			Code:     WarnUnknownOverride,
			Variable: name,
			Message:  fmt.Sprintf("override for %s ignored, not an overridable tax variable", name),
		})
	}

	res.Variables = Variables(ev.Items)
	return res, nil
}

func (s *Service) inputs(ledger model.Ledger, req Request) map[rules.TableName][]model.LineItem {
	rr := req.RRData
	if len(rr) == 0 {
		rr = engine.Aggregate(s.catalog.Table(rules.TableRR), ledger, engine.Options{}).Items
	}
	br := req.BRData
	if len(br) == 0 {
		br = engine.Aggregate(s.catalog.Table(rules.TableBR), ledger, engine.Options{
			Inputs: map[rules.TableName][]model.LineItem{rules.TableRR: rr},
		}).Items
	}
	return map[rules.TableName][]model.LineItem{
		rules.TableRR: rr,
		rules.TableBR: br,
	}
}

// Variables converts computed INK2 items to tax variables.
func Variables(items []model.LineItem) []model.TaxVariable {
	out := make([]model.TaxVariable, len(items))
	for i, it := range items {
		out[i] = model.TaxVariable{
			VariableName:   it.ID,
			RowTitle:       it.Label,
			Amount:         it.CurrentAmount,
			Style:          it.Style,
			Group:          it.Group,
			ShowAmount:     it.ShowAmount,
			AlwaysShow:     it.AlwaysShow,
			IsCalculated:   it.IsCalculated,
			IsManual:       it.IsManual,
			AccountDetails: it.AccountDetails,
			Explainer:      it.Explainer,
		}
	}
	return out
}

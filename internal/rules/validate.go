package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/raketrapport/raket/internal/accounts"
	"github.com/raketrapport/raket/internal/model"
)

// ErrMalformedTable is wrapped by every error reporting an invalid rule table.
var ErrMalformedTable = errors.New("malformed rule table")

// ValidationError describes a single problem with one row of a table.
type ValidationError struct {
	Table       TableName
	Row         int // 1-based position in the table
	RowID       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s row %d [%s]: %s", e.Table, e.Row, e.RowID, e.Description)
}

// TableError collects every problem found while compiling or cross-checking
// rule tables. It unwraps to ErrMalformedTable.
type TableError struct {
	Problems []ValidationError
}

func (e *TableError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("%s: %s", ErrMalformedTable, strings.Join(msgs, "; "))
}

func (e *TableError) Unwrap() error {
	return ErrMalformedTable
}

var (
	sruPattern  = regexp.MustCompile(`^[0-9]+(/[0-9]+)?$`)
	ratePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Compile validates rows and builds an immutable table. Every problem found
// is reported; a table with any problem is rejected.
func Compile(name TableName, rows []Row) (*Table, error) {
	t := &Table{name: name, index: make(map[string]int, len(rows))}
	var problems []ValidationError

	report := func(pos int, id, format string, args ...any) {
		problems = append(problems, ValidationError{
			Table:       name,
			Row:         pos + 1,
			RowID:       id,
			Description: fmt.Sprintf(format, args...),
		})
	}

	if name.order() < 0 {
		report(-1, "", "unknown table %q", name)
	}

	// Every id declared anywhere in the table, to tell forward references
	// apart from undefined ones.
	declared := make(map[string]bool, len(rows))
	for _, row := range rows {
		declared[strings.TrimSpace(row.ID)] = true
	}

	for pos, row := range rows {
		id := strings.TrimSpace(row.ID)
		if id == "" {
			report(pos, id, "missing id")
			continue
		}
		if strings.ContainsAny(id, "+- \t") {
			report(pos, id, "id must not contain operators or whitespace")
		}
		if _, dup := t.index[id]; dup {
			report(pos, id, "duplicate id")
			continue
		}

		rule, errs := compileRow(id, row)
		for _, e := range errs {
			report(pos, id, "%s", e)
		}

		for _, term := range rule.Terms {
			if _, ok := t.index[term.ID]; ok {
				continue
			}
			if declared[term.ID] {
				report(pos, id, "forward reference %q", term.ID)
			} else {
				report(pos, id, "undefined reference %q", term.ID)
			}
		}

		if rule.Ref.Table != "" && rule.Ref.Table.order() >= name.order() {
			report(pos, id, "ref %s must point at an earlier table", rule.Ref)
		}

		t.index[id] = len(t.rules)
		t.rules = append(t.rules, rule)
	}

	if len(problems) > 0 {
		return nil, &TableError{Problems: problems}
	}
	return t, nil
}

func compileRow(id string, row Row) (Rule, []string) {
	var errs []string
	fail := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	rule := Rule{
		ID:          id,
		Label:       row.Label,
		NonNegative: row.NonNegative,
		AlwaysShow:  row.AlwaysShow,
		Group:       strings.TrimSpace(row.Group),
		Explainer:   row.Explainer,
	}

	style, err := model.ParseStyle(row.Style)
	if err != nil {
		fail("%v", err)
	}
	rule.Style = style

	switch bt := model.BalanceType(strings.ToLower(strings.TrimSpace(row.BalanceType))); bt {
	case "", model.BalanceDebit, model.BalanceCredit:
		rule.BalanceType = bt
	default:
		fail("unknown balance type %q", row.BalanceType)
	}

	if sru := strings.TrimSpace(row.SRU); sru != "" {
		if !sruPattern.MatchString(sru) {
			fail("invalid sru code %q", sru)
		} else {
			rule.SRU = strings.Split(sru, "/")
		}
	}

	if rule.Accounts.Range, err = accounts.ParseRange(row.Range); err != nil {
		fail("range: %v", err)
	}
	if rule.Accounts.Include, err = accounts.ParseList(row.Include); err != nil {
		fail("include: %v", err)
	}
	if rule.Accounts.ExcludeRange, err = accounts.ParseRange(row.ExcludeRange); err != nil {
		fail("exclude_range: %v", err)
	}
	if rule.Accounts.Exclude, err = accounts.ParseList(row.Exclude); err != nil {
		fail("exclude: %v", err)
	}

	if rule.Terms, err = ParseFormula(row.Formula); err != nil {
		fail("%v", err)
	}

	if row.Ref != nil {
		rule.Ref = Ref{Table: row.Ref.Table, ID: strings.TrimSpace(row.Ref.ID)}
		if rule.Ref.Table.order() < 0 {
			fail("ref: unknown table %q", row.Ref.Table)
		}
		if rule.Ref.ID == "" {
			fail("ref: missing id")
		}
	}

	if f := strings.TrimSpace(row.Factor); f != "" {
		if d, err := decimal.NewFromString(f); err == nil {
			rule.Factor = Factor{Literal: d, set: true}
		} else if ratePattern.MatchString(f) {
			rule.Factor = Factor{Rate: f, set: true}
		} else {
			fail("invalid factor %q", f)
		}
	}

	hasAccounts := !rule.Accounts.Empty() || rule.HasSRU()
	hasFormula := len(rule.Terms) > 0
	hasRef := row.Ref != nil

	switch {
	case hasFormula && (hasAccounts || hasRef):
		fail("formula row must not also declare accounts or a ref")
		rule.Kind = KindFormula
	case hasRef && hasAccounts:
		fail("ref row must not also declare accounts")
		rule.Kind = KindRef
	case hasFormula:
		rule.Kind = KindFormula
	case hasRef:
		rule.Kind = KindRef
	case hasAccounts:
		rule.Kind = KindLeaf
	case rule.Style.IsHeading():
		rule.Kind = KindHeading
	default:
		// An input row: a leaf that no account can reach, worth zero until
		// a manual value replaces it.
		rule.Kind = KindLeaf
	}

	if rule.Accounts.Empty() && (!rule.Accounts.ExcludeRange.IsZero() || len(rule.Accounts.Exclude) > 0) {
		fail("exclusions without a range or include list")
	}

	if rule.Kind == KindHeading && !rule.Factor.IsZero() {
		fail("heading row must not declare a factor")
	}

	rule.ShowAmount = rule.Kind != KindHeading
	if row.ShowAmount != nil {
		rule.ShowAmount = *row.ShowAmount
	}

	return rule, errs
}

package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raketrapport/raket/internal/model"
)

func problems(t *testing.T, err error) []ValidationError {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedTable)
	var te *TableError
	require.True(t, errors.As(err, &te), "expected *TableError, got %T", err)
	return te.Problems
}

func TestCompile_Valid(t *testing.T) {
	table, err := Compile(TableRR, []Row{
		{ID: "H", Label: "Rubrik", Style: "H2", Group: "G"},
		{ID: "A", Label: "A", Range: "3000-3799", Group: "G"},
		{ID: "B", Label: "B", SRU: "7411/7511", Group: "G"},
		{ID: "IN", Label: "Input"},
		{ID: "C", Label: "Summa", Style: "S2", Formula: "A-B"},
	})
	require.NoError(t, err)
	require.Equal(t, 5, table.Len())

	h, _ := table.Rule("H")
	assert.Equal(t, KindHeading, h.Kind)
	assert.False(t, h.ShowAmount)

	a, _ := table.Rule("A")
	assert.Equal(t, KindLeaf, a.Kind)
	assert.True(t, a.ShowAmount)
	assert.True(t, a.Accounts.Contains(3010))

	b, _ := table.Rule("B")
	assert.Equal(t, KindLeaf, b.Kind)
	assert.Equal(t, []string{"7411", "7511"}, b.SRU)
	assert.True(t, b.MatchesSRU("7511"))
	assert.False(t, b.MatchesSRU("7512"))

	in, _ := table.Rule("IN")
	assert.Equal(t, KindLeaf, in.Kind)
	assert.True(t, in.Accounts.Empty())

	c, _ := table.Rule("C")
	assert.Equal(t, KindFormula, c.Kind)
	assert.Equal(t, model.StyleS2, c.Style)
	assert.Equal(t, "A-B", c.Formula())
}

func TestCompile_DuplicateID(t *testing.T) {
	_, err := Compile(TableRR, []Row{
		{ID: "A", Range: "3000-3099"},
		{ID: "A", Range: "3100-3199"},
	})
	ps := problems(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "A", ps[0].RowID)
	assert.Equal(t, 2, ps[0].Row)
	assert.Contains(t, ps[0].Description, "duplicate")
}

func TestCompile_ForwardReference(t *testing.T) {
	_, err := Compile(TableRR, []Row{
		{ID: "SUM", Formula: "A+B"},
		{ID: "A", Range: "3000-3099"},
		{ID: "B", Range: "3100-3199"},
	})
	ps := problems(t, err)
	require.Len(t, ps, 2)
	assert.Contains(t, ps[0].Description, `forward reference "A"`)
	assert.Contains(t, ps[1].Description, `forward reference "B"`)
}

func TestCompile_SelfReference(t *testing.T) {
	_, err := Compile(TableRR, []Row{{ID: "A", Formula: "A"}})
	ps := problems(t, err)
	require.Len(t, ps, 1)
	assert.Contains(t, ps[0].Description, "forward reference")
}

func TestCompile_UndefinedReference(t *testing.T) {
	_, err := Compile(TableRR, []Row{
		{ID: "A", Range: "3000-3099"},
		{ID: "SUM", Formula: "A+X"},
	})
	ps := problems(t, err)
	require.Len(t, ps, 1)
	assert.Contains(t, ps[0].Description, `undefined reference "X"`)
}

func TestCompile_RowProblems(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want string
	}{
		{"formula with range", Row{ID: "X", Formula: "A", Range: "3000-3099"}, "must not also declare"},
		{"bad sru", Row{ID: "X", SRU: "74a0"}, "invalid sru"},
		{"bad range", Row{ID: "X", Range: "3999-3000"}, "range"},
		{"bad include", Row{ID: "X", Include: "4910-x"}, "include"},
		{"bad style", Row{ID: "X", Style: "Q1", Range: "3000"}, "unknown style"},
		{"bad balance type", Row{ID: "X", Range: "3000", BalanceType: "sideways"}, "balance type"},
		{"bad factor", Row{ID: "X", Range: "3000", Factor: "2*x"}, "invalid factor"},
		{"exclusion only", Row{ID: "X", Exclude: "3000"}, "exclusions without"},
		{"ref with accounts", Row{ID: "X", Range: "3000", Ref: &Ref{Table: TableRR, ID: "A"}}, "ref row"},
		{"operator in id", Row{ID: "A-B", Range: "3000"}, "operators"},
		{"bad formula", Row{ID: "X", Formula: "A++B"}, "missing operand"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []Row{{ID: "A", Range: "3000-3099"}, tt.row}
			_, err := Compile(TableBR, rows)
			ps := problems(t, err)
			found := false
			for _, p := range ps {
				if p.RowID == tt.row.ID && strings.Contains(p.Description, tt.want) {
					found = true
				}
			}
			assert.True(t, found, "expected a problem containing %q, got %v", tt.want, ps)
		})
	}
}

func TestCompile_RefMustPointBackwards(t *testing.T) {
	_, err := Compile(TableRR, []Row{{ID: "X", Ref: &Ref{Table: TableBR, ID: "B1"}}})
	ps := problems(t, err)
	require.Len(t, ps, 1)
	assert.Contains(t, ps[0].Description, "earlier table")

	table, err := Compile(TableINK2, []Row{{ID: "X", Ref: &Ref{Table: TableRR, ID: "ÅR"}, Factor: "-1"}})
	require.NoError(t, err)
	x, _ := table.Rule("X")
	assert.Equal(t, KindRef, x.Kind)
	assert.Equal(t, "-1", x.Factor.String())
}

func TestCompile_ShowAmountOverride(t *testing.T) {
	hide := false
	table, err := Compile(TableRR, []Row{{ID: "A", Range: "3000", ShowAmount: &hide}})
	require.NoError(t, err)
	a, _ := table.Rule("A")
	assert.False(t, a.ShowAmount)
}

func TestExportRoundTrip(t *testing.T) {
	doc := Builtin()
	for _, name := range Tables {
		table, err := Compile(name, doc.Tables[name])
		require.NoError(t, err, "compiling %s", name)

		again, err := Compile(name, table.Export())
		require.NoError(t, err, "recompiling %s", name)
		assert.Equal(t, table.Rules(), again.Rules(), "table %s", name)
	}
}

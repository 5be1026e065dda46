package presentation

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raketrapport/raket/internal/model"
)

func amt(s string) decimal.NullDecimal {
	return model.Amount(decimal.RequireFromString(s))
}

func ids(rows []Row) []string {
	var out []string
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

var sample = []model.LineItem{
	{ID: "RR1", Label: "Rörelseintäkter", Style: model.StyleH2, Group: "RR1"},
	{ID: "3.1", Label: "Nettoomsättning", Style: model.StyleNormal, Group: "RR1", CurrentAmount: amt("-150000"), PreviousAmount: amt("-120000"), ShowAmount: true, BalanceType: model.BalanceCredit},
	{ID: "3.2", Label: "Lagerförändring", Style: model.StyleNormal, Group: "RR1", CurrentAmount: amt("0"), ShowAmount: true, BalanceType: model.BalanceCredit},
	{ID: "RR3", Label: "Finansiella poster", Style: model.StyleH2, Group: "RR3"},
	{ID: "3.12", Label: "Koncernföretag", Style: model.StyleNormal, Group: "RR3", CurrentAmount: amt("0"), PreviousAmount: amt("-0"), ShowAmount: true},
	{ID: "FP", Label: "Summa finansiella poster", Style: model.StyleS2, Group: "RR3", CurrentAmount: amt("0"), ShowAmount: true, AlwaysShow: true},
	{ID: "ORPHAN", Label: "Rubrik", Style: model.StyleH1},
	{ID: "ÅR", Label: "Årets resultat", Style: model.StyleS1, CurrentAmount: amt("-150000"), ShowAmount: true, AlwaysShow: true, BalanceType: model.BalanceCredit},
}

func TestFilter_ZeroSuppression(t *testing.T) {
	rows := Filter(sample, false)
	// RR3 stays hidden: FP is always_show but its amount is zero.
	assert.Equal(t, []string{"RR1", "3.1", "FP", "ÅR"}, ids(rows))
}

func TestFilter_ShowAll(t *testing.T) {
	rows := Filter(sample, true)
	assert.Len(t, rows, len(sample))
}

func TestVisible_PreviousYearOnly(t *testing.T) {
	items := []model.LineItem{
		{ID: "H", Style: model.StyleH2, Group: "G"},
		{ID: "A", Style: model.StyleNormal, Group: "G", CurrentAmount: amt("0"), PreviousAmount: amt("10")},
	}
	assert.True(t, Visible(items[0], items, false))
	assert.True(t, Visible(items[1], items, false))
}

func TestVisible_NullAmounts(t *testing.T) {
	items := []model.LineItem{
		{ID: "H", Style: model.StyleH2, Group: "G"},
		{ID: "A", Style: model.StyleNormal, Group: "G"},
	}
	assert.False(t, Visible(items[0], items, false))
	assert.False(t, Visible(items[1], items, false))
}

func TestFilter_AmountsAndLayout(t *testing.T) {
	rows := Filter(sample, false)
	require.Len(t, rows, 4)

	heading := rows[0]
	assert.True(t, heading.Heading)
	assert.Equal(t, 2, heading.Level)
	assert.True(t, heading.Bold)
	assert.Empty(t, heading.Current, "headings carry no amount")

	revenue := rows[1]
	assert.Equal(t, "150 000", revenue.Current)
	assert.Equal(t, "120 000", revenue.Previous)
	assert.Equal(t, 4, revenue.Level)
	assert.False(t, revenue.Bold)

	assert.Equal(t, "0", rows[2].Current)
	assert.Equal(t, "", rows[2].Previous)
}

func TestFilter_ShowAmountFalse(t *testing.T) {
	items := []model.LineItem{{ID: "A", Style: model.StyleNormal, CurrentAmount: amt("5"), ShowAmount: false}}
	rows := Filter(items, false)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Current)
}

func TestFilterTax(t *testing.T) {
	vars := []model.TaxVariable{
		{VariableName: "INK_rubrik", RowTitle: "Skatteberäkning", Style: model.StyleH1, Group: "INK", AlwaysShow: true},
		{VariableName: "INK_ej_avdragsgilla", Style: model.StyleNormal, Group: "INK", Amount: amt("0"), ShowAmount: true},
		{VariableName: "INK_beraknad_skatt", Style: model.StyleS1, Group: "INK", Amount: amt("121540.4"), ShowAmount: true, AlwaysShow: true},
	}
	rows := FilterTax(vars, false)
	assert.Equal(t, []string{"INK_rubrik", "INK_beraknad_skatt"}, ids(rows))
	assert.Equal(t, "121 540", rows[1].Current)
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   decimal.NullDecimal
		bt   model.BalanceType
		want string
	}{
		{decimal.NullDecimal{}, "", ""},
		{amt("0"), "", "0"},
		{amt("-0.4"), model.BalanceCredit, "0"},
		{amt("999"), "", "999"},
		{amt("1234567.5"), "", "1 234 568"},
		{amt("-1234567"), "", "-1 234 567"},
		{amt("-150000"), model.BalanceCredit, "150 000"},
		{amt("20000"), model.BalanceCredit, "-20 000"},
		{amt("20000"), model.BalanceDebit, "20 000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.in, tt.bt), "FormatAmount(%v, %q)", tt.in, tt.bt)
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "Resultaträkning", Filter(sample, false)))
	out := buf.String()
	assert.Contains(t, out, "Resultaträkning\n\n")
	assert.Contains(t, out, "Nettoomsättning")
	assert.Contains(t, out, "150 000")
}

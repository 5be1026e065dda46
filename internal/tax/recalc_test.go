package tax

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raketrapport/raket/internal/model"
	"github.com/raketrapport/raket/internal/rules"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func assertAmount(t *testing.T, want string, got decimal.NullDecimal, msgAndArgs ...any) {
	t.Helper()
	require.True(t, got.Valid, msgAndArgs...)
	assert.True(t, d(want).Equal(got.Decimal), "want %s, got %s", want, got.Decimal)
}

func newService(t *testing.T) *Service {
	t.Helper()
	cat, err := rules.LoadCatalog(context.Background(), rules.Builtin())
	require.NoError(t, err)
	return NewService(cat)
}

// A small company: profit 538 000 before tax, 50 000 booked tax, 2 000 of
// non-deductible costs and pension premiums with too little payroll tax.
func sampleRequest() Request {
	return Request{
		FiscalYear: 2024,
		CurrentAccounts: model.Balances{
			3010: d("-1000000"),
			5010: d("300000"),
			6072: d("2000"),
			7410: d("100000"),
			7531: d("10000"),
			8910: d("50000"),
		},
	}
}

func TestRecalculate_Baseline(t *testing.T) {
	svc := newService(t)
	res, err := svc.Recalculate(context.Background(), sampleRequest())
	require.NoError(t, err)

	assertAmount(t, "538000", res.Amount("INK_arets_resultat"))
	assertAmount(t, "50000", res.Amount(BookedTaxVariable))
	assertAmount(t, "2000", res.Amount("INK_ej_avdragsgilla"))
	assertAmount(t, "0", res.Amount(PensionVariable))
	assertAmount(t, "590000", res.Amount("INK_skattemassigt_resultat"))
	assertAmount(t, "590000", res.Amount("INK_skattepliktigt_resultat"))
	assertAmount(t, "121540", res.Amount(CalculatedTaxVariable))
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Audit)

	heading, ok := res.Variable("INK_rubrik")
	require.True(t, ok)
	assert.False(t, heading.Amount.Valid)
}

func TestRecalculate_BookedTaxFromSuppliedIncomeStatement(t *testing.T) {
	svc := newService(t)
	res, err := svc.Recalculate(context.Background(), Request{
		FiscalYear: 2024,
		RRData: []model.LineItem{
			{ID: "ÅR", CurrentAmount: model.Amount(d("-100000"))},
			{ID: "3.24", CurrentAmount: model.Amount(d("50000"))},
		},
	})
	require.NoError(t, err)

	assertAmount(t, "100000", res.Amount("INK_arets_resultat"))
	assertAmount(t, "50000", res.Amount(BookedTaxVariable))
	assertAmount(t, "150000", res.Amount("INK_skattemassigt_resultat"))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnMissingAccounts, res.Warnings[0].Code)
}

func TestRecalculate_Totality(t *testing.T) {
	svc := newService(t)
	table := svc.Catalog().Table(rules.TableINK2)

	for _, req := range []Request{{}, sampleRequest()} {
		res, err := svc.Recalculate(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, res.Variables, table.Len())
		for i, v := range res.Variables {
			assert.Equal(t, table.At(i).ID, v.VariableName)
		}
	}
}

func TestRecalculate_Idempotent(t *testing.T) {
	svc := newService(t)
	req := sampleRequest()
	req.ManualAmounts = map[string]decimal.Decimal{"INK_outnyttjat_underskott": d("40000")}
	req.PensionAdjustment = dp("14260")

	first, err := svc.Recalculate(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Recalculate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRecalculate_OverridePropagates(t *testing.T) {
	svc := newService(t)
	base, err := svc.Recalculate(context.Background(), sampleRequest())
	require.NoError(t, err)

	req := sampleRequest()
	req.ManualAmounts = map[string]decimal.Decimal{"INK_ej_avdragsgilla": d("12000")}
	res, err := svc.Recalculate(context.Background(), req)
	require.NoError(t, err)

	v, _ := res.Variable("INK_ej_avdragsgilla")
	assert.True(t, v.IsManual)
	assertAmount(t, "12000", v.Amount)
	assertAmount(t, "600000", res.Amount("INK_skattemassigt_resultat"))
	assertAmount(t, "123600", res.Amount(CalculatedTaxVariable))

	// Rows that do not depend on the override are unchanged.
	assert.Equal(t, base.Amount(BookedTaxVariable), res.Amount(BookedTaxVariable))
	assert.Equal(t, base.Amount("INK_arets_resultat"), res.Amount("INK_arets_resultat"))

	require.Len(t, res.Audit, 1)
	assert.Equal(t, AuditEntry{Kind: AuditOverride, Variable: "INK_ej_avdragsgilla", Amount: d("12000")}, res.Audit[0])
}

func TestRecalculate_OverrideOfDerivedRow(t *testing.T) {
	svc := newService(t)
	req := sampleRequest()
	req.ManualAmounts = map[string]decimal.Decimal{"INK_skattemassigt_resultat": d("100000")}
	res, err := svc.Recalculate(context.Background(), req)
	require.NoError(t, err)

	assertAmount(t, "100000", res.Amount("INK_skattepliktigt_resultat"))
	assertAmount(t, "20600", res.Amount(CalculatedTaxVariable))
}

func TestRecalculate_PensionAdjustment(t *testing.T) {
	svc := newService(t)
	req := sampleRequest()
	req.PensionAdjustment = dp("14260")
	res, err := svc.Recalculate(context.Background(), req)
	require.NoError(t, err)

	assertAmount(t, "14260", res.Amount(PensionVariable))
	assertAmount(t, "575740", res.Amount("INK_skattemassigt_resultat"))
	require.Len(t, res.Audit, 1)
	assert.Equal(t, AuditPensionAdjustment, res.Audit[0].Kind)

	// The adjustment is added on top of an override of the same row.
	req.ManualAmounts = map[string]decimal.Decimal{PensionVariable: d("1000")}
	res, err = svc.Recalculate(context.Background(), req)
	require.NoError(t, err)
	assertAmount(t, "15260", res.Amount(PensionVariable))
	assert.Len(t, res.Audit, 2)
}

func TestRecalculate_ZeroPensionAdjustmentIsNoOp(t *testing.T) {
	svc := newService(t)
	without, err := svc.Recalculate(context.Background(), sampleRequest())
	require.NoError(t, err)

	req := sampleRequest()
	req.PensionAdjustment = dp("0")
	with, err := svc.Recalculate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, without, with)
}

func TestRecalculate_UnknownOverride(t *testing.T) {
	svc := newService(t)
	req := sampleRequest()
	req.ManualAmounts = map[string]decimal.Decimal{
		"INK_okand":  d("1"),
		"INK_annan":  d("2"),
		"INK_rubrik": d("3"),
	}
	res, err := svc.Recalculate(context.Background(), req)
	require.NoError(t, err)

	var names []string
	for _, w := range res.Warnings {
		assert.Equal(t, WarnUnknownOverride, w.Code)
		names = append(names, w.Variable)
	}
	assert.Equal(t, []string{"INK_annan", "INK_okand", "INK_rubrik"}, names)
	assertAmount(t, "121540", res.Amount(CalculatedTaxVariable))
}

func TestRecalculate_EmptyAccounts(t *testing.T) {
	svc := newService(t)
	res, err := svc.Recalculate(context.Background(), Request{FiscalYear: 2024})
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnMissingAccounts, res.Warnings[0].Code)
	assertAmount(t, "0", res.Amount("INK_skattemassigt_resultat"))
	assertAmount(t, "0", res.Amount(CalculatedTaxVariable))
}

func TestRecalculate_MissingPensionRow(t *testing.T) {
	doc := rules.Builtin()
	doc.Tables[rules.TableINK2] = []rules.Row{
		{ID: "INK_arets_resultat", Ref: &rules.Ref{Table: rules.TableRR, ID: "ÅR"}, Factor: "-1"},
	}
	cat, err := rules.LoadCatalog(context.Background(), doc)
	require.NoError(t, err)

	req := sampleRequest()
	req.PensionAdjustment = dp("100")
	res, err := NewService(cat).Recalculate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnMissingPensionRow, res.Warnings[0].Code)
	assert.Empty(t, res.Audit)
	assertAmount(t, "538000", res.Amount("INK_arets_resultat"))
}

func TestRecalculate_CancelledContext(t *testing.T) {
	svc := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Recalculate(ctx, sampleRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequest_WireFormat(t *testing.T) {
	body := `{
		"current_accounts": {"3010": -100000, "8910": 12500.50},
		"fiscal_year": 2024,
		"rr_data": [{"id": "ÅR", "current_amount": -87500}],
		"br_data": [],
		"manual_amounts": {"INK_outnyttjat_underskott": 5000},
		"justering_sarskild_loneskatt": 1200
	}`
	var req Request
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.True(t, d("-100000").Equal(req.CurrentAccounts[3010]))
	assert.True(t, d("12500.5").Equal(req.CurrentAccounts[8910]))
	assert.Equal(t, 2024, req.FiscalYear)
	require.Len(t, req.RRData, 1)
	assertAmount(t, "-87500", req.RRData[0].CurrentAmount)
	assert.True(t, d("5000").Equal(req.ManualAmounts["INK_outnyttjat_underskott"]))
	require.NotNil(t, req.PensionAdjustment)
	assert.True(t, d("1200").Equal(*req.PensionAdjustment))

	svc := newService(t)
	res, err := svc.Recalculate(context.Background(), req)
	require.NoError(t, err)
	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"variable_name":"INK_arets_resultat"`)
	assert.Contains(t, string(out), `"amount":87500`)
}

func TestChangedInputs(t *testing.T) {
	before := Request{
		ManualAmounts: map[string]decimal.Decimal{
			"INK_ej_avdragsgilla":       d("12000"),
			"INK_outnyttjat_underskott": d("40000"),
		},
		PensionAdjustment: dp("100"),
	}
	after := Request{
		ManualAmounts: map[string]decimal.Decimal{
			"INK_ej_avdragsgilla": d("12000"),
			CalculatedTaxVariable: d("90000"),
		},
		PensionAdjustment: dp("100.00"),
	}

	got := ChangedInputs(before, after)
	assert.Equal(t, []AuditEntry{
		{Kind: AuditOverride, Variable: CalculatedTaxVariable, Amount: d("90000")},
		{Kind: AuditOverride, Variable: "INK_outnyttjat_underskott", Amount: decimal.Zero, Detail: "removed"},
	}, got)

	assert.Empty(t, ChangedInputs(after, after))

	after.PensionAdjustment = nil
	got = ChangedInputs(before, after)
	require.Len(t, got, 3)
	assert.Equal(t, AuditEntry{Kind: AuditPensionAdjustment, Variable: PensionVariable, Amount: decimal.Zero}, got[2])
}

func TestRecalculate_OverrideLeavesIndependentRowsAlone(t *testing.T) {
	doc := rules.Builtin()
	doc.Tables[rules.TableINK2] = []rules.Row{
		{ID: "INK_arets_resultat", Label: "Årets resultat", Ref: &rules.Ref{Table: rules.TableRR, ID: "ÅR"}, Factor: "-1"},
		{ID: BookedTaxVariable, Label: "Bokförd skatt", Ref: &rules.Ref{Table: rules.TableRR, ID: "3.24"}},
		{ID: CalculatedTaxVariable, Label: "Beräknad skatt", Formula: "INK_arets_resultat", Factor: rules.RateCorporateTax, NonNegative: true},
	}
	cat, err := rules.LoadCatalog(context.Background(), doc)
	require.NoError(t, err)
	svc := NewService(cat)

	// 20 000 booked tax, so the override really changes the row.
	req := sampleRequest()
	req.CurrentAccounts[8910] = d("20000")
	base, err := svc.Recalculate(context.Background(), req)
	require.NoError(t, err)
	assertAmount(t, "20000", base.Amount(BookedTaxVariable))
	assertAmount(t, "117008", base.Amount(CalculatedTaxVariable))

	req.ManualAmounts = map[string]decimal.Decimal{BookedTaxVariable: d("50000")}
	res, err := svc.Recalculate(context.Background(), req)
	require.NoError(t, err)

	assertAmount(t, "50000", res.Amount(BookedTaxVariable))
	assert.Equal(t, base.Amount(CalculatedTaxVariable), res.Amount(CalculatedTaxVariable))
	booked, _ := res.Variable(BookedTaxVariable)
	assert.True(t, booked.IsManual)
	assert.Empty(t, res.Warnings)
}

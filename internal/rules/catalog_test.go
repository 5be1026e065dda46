package rules_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raketrapport/raket/internal/rules"
	mock_rules "github.com/raketrapport/raket/internal/rules/mocks"
)

func TestLoadCatalog_Builtin(t *testing.T) {
	cat, err := rules.LoadCatalog(context.Background(), rules.Builtin())
	require.NoError(t, err)

	for _, name := range rules.Tables {
		require.NotNil(t, cat.Table(name), "table %s", name)
	}
	assert.True(t, cat.Table(rules.TableRR).Has("3.1"))
	assert.True(t, cat.Table(rules.TableINK2).Has("INK_beraknad_skatt"))

	rate, ok := cat.Rates().Lookup(rules.RateCorporateTax, 2024)
	require.True(t, ok)
	assert.Equal(t, "0.206", rate.String())
}

func TestLoadCatalog_FromMockSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	builtin := rules.Builtin()
	src := mock_rules.NewMockSource(ctrl)
	for _, name := range rules.Tables {
		src.EXPECT().Rows(gomock.Any(), name).Return(builtin.Tables[name], nil)
	}
	src.EXPECT().Rates(gomock.Any()).Return(builtin.RateSets, nil)

	cat, err := rules.LoadCatalog(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, len(builtin.Tables[rules.TableBR]), cat.Table(rules.TableBR).Len())
}

func TestLoadCatalog_SourceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	boom := errors.New("connection refused")
	src := mock_rules.NewMockSource(ctrl)
	src.EXPECT().Rows(gomock.Any(), rules.TableRR).Return(nil, boom)

	_, err := rules.LoadCatalog(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, rules.ErrMalformedTable)
}

func TestLoadCatalog_MalformedTableIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	builtin := rules.Builtin()
	src := mock_rules.NewMockSource(ctrl)
	src.EXPECT().Rows(gomock.Any(), rules.TableRR).Return([]rules.Row{
		{ID: "RI", Formula: "3.1"},
		{ID: "3.1", Range: "3000-3799"},
	}, nil)
	src.EXPECT().Rows(gomock.Any(), rules.TableBR).Return(builtin.Tables[rules.TableBR], nil)
	src.EXPECT().Rows(gomock.Any(), rules.TableINK2).Return(builtin.Tables[rules.TableINK2], nil)

	_, err := rules.LoadCatalog(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, rules.ErrMalformedTable)
	assert.Contains(t, err.Error(), "forward reference")
}

func TestNewCatalog_UnresolvedRefAndRate(t *testing.T) {
	rr, err := rules.Compile(rules.TableRR, []rules.Row{{ID: "3.1", Range: "3000-3799"}})
	require.NoError(t, err)
	br, err := rules.Compile(rules.TableBR, []rules.Row{{ID: "B13", Ref: &rules.Ref{Table: rules.TableRR, ID: "ÅR"}}})
	require.NoError(t, err)
	ink, err := rules.Compile(rules.TableINK2, []rules.Row{{ID: "T", Ref: &rules.Ref{Table: rules.TableRR, ID: "3.1"}, Factor: "skattesats"}})
	require.NoError(t, err)

	_, err = rules.NewCatalog([]*rules.Table{rr, br, ink}, rules.Rates{})
	require.Error(t, err)
	assert.ErrorIs(t, err, rules.ErrMalformedTable)
	assert.Contains(t, err.Error(), "RR.ÅR does not resolve")
	assert.Contains(t, err.Error(), `unknown rate "skattesats"`)
}

func TestNewCatalog_MissingTable(t *testing.T) {
	rr, err := rules.Compile(rules.TableRR, nil)
	require.NoError(t, err)
	_, err = rules.NewCatalog([]*rules.Table{rr}, rules.Rates{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table missing")
}

func TestFileRoundTrip(t *testing.T) {
	cat, err := rules.LoadCatalog(context.Background(), rules.Builtin())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, rules.SaveFile(path, cat.Export()))

	doc, err := rules.LoadFile(path)
	require.NoError(t, err)

	again, err := rules.LoadCatalog(context.Background(), doc)
	require.NoError(t, err)
	for _, name := range rules.Tables {
		assert.Equal(t, cat.Table(name).Rules(), again.Table(name).Rules(), "table %s", name)
	}
	v, ok := again.Rates().Lookup(rules.RatePensionPayrollTax, 2024)
	require.True(t, ok)
	assert.Equal(t, "0.2426", v.String())
}

// Every formula reference resolves to a row strictly earlier in its table.
func TestBuiltin_FormulasReferenceEarlierRows(t *testing.T) {
	cat, err := rules.LoadCatalog(context.Background(), rules.Builtin())
	require.NoError(t, err)

	for _, name := range rules.Tables {
		table := cat.Table(name)
		seen := map[string]bool{}
		for i := 0; i < table.Len(); i++ {
			r := table.At(i)
			for _, term := range r.Terms {
				assert.True(t, seen[term.ID], "%s %s references %s before it is defined", name, r.ID, term.ID)
			}
			seen[r.ID] = true
		}
	}
}

// No account number is claimed by more than one leaf rule of the RR or BR
// table through its number ranges.
func TestBuiltin_LeafRangesPartitionAccounts(t *testing.T) {
	cat, err := rules.LoadCatalog(context.Background(), rules.Builtin())
	require.NoError(t, err)

	for _, name := range []rules.TableName{rules.TableRR, rules.TableBR} {
		table := cat.Table(name)
		claimedBy := map[int]string{}
		for i := 0; i < table.Len(); i++ {
			r := table.At(i)
			if r.Kind != rules.KindLeaf {
				continue
			}
			for acct := 1000; acct <= 8999; acct++ {
				if !r.Accounts.Contains(acct) {
					continue
				}
				if prev, ok := claimedBy[acct]; ok {
					t.Errorf("%s: account %d claimed by both %s and %s", name, acct, prev, r.ID)
					continue
				}
				claimedBy[acct] = r.ID
			}
		}
		assert.NotEmpty(t, claimedBy, "table %s", name)
	}
}

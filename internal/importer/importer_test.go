package importer

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raketrapport/raket/internal/model"
)

type stubParser struct {
	format string
	exts   []string
}

func (p stubParser) Parse(io.Reader) (model.Ledger, error) { return model.Ledger{}, nil }
func (p stubParser) Format() string                        { return p.format }
func (p stubParser) Extensions() []string                  { return p.exts }

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("nonexistent"))
	assert.Nil(t, r.ForFile("bokslut.xlsx"))
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(&SEParser{})
	assert.NotNil(t, r.Get("SE"))
	assert.NotNil(t, r.ForFile("BOKSLUT.SE"))
	assert.NotNil(t, r.ForFile("export.sie"))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(stubParser{format: "a", exts: []string{".x"}})
	assert.Panics(t, func() { r.Register(stubParser{format: "A"}) })
	assert.Panics(t, func() { r.Register(stubParser{format: "b", exts: []string{".X"}}) })
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, "se", r.Get("se").Format())
	assert.Equal(t, "csv", r.ForFile("saldon.csv").Format())
}

func TestRegistry_ParseFile(t *testing.T) {
	r := DefaultRegistry()

	ledger, err := r.ParseFile("testdata/example.se", "")
	require.NoError(t, err)
	assert.Equal(t, 2024, ledger.Company.FiscalYear)

	path := filepath.Join(t.TempDir(), "saldon.txt")
	require.NoError(t, os.WriteFile(path, []byte("account,current,previous,sru\n3010,-150000,,7410\n"), 0o644))

	_, err = r.ParseFile(path, "")
	assert.ErrorContains(t, err, "no parser for saldon.txt")

	ledger, err = r.ParseFile(path, "csv")
	require.NoError(t, err)
	assert.Equal(t, "7410", ledger.SRU[3010])

	_, err = r.ParseFile(path, "xlsx")
	assert.ErrorContains(t, err, "unknown input format")

	_, err = r.ParseFile(filepath.Join(t.TempDir(), "saknas.se"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

package importer

import (
	"io"

	"github.com/raketrapport/raket/internal/accounts"
	"github.com/raketrapport/raket/internal/model"
)

// CSVParser reads the account,current,previous,sru balance CSV.
type CSVParser struct{}

// Format returns the parser name.
func (p *CSVParser) Format() string { return "csv" }

// Extensions returns the file extensions for balance CSVs.
func (p *CSVParser) Extensions() []string { return []string{".csv"} }

// Parse reads a balance CSV.
func (p *CSVParser) Parse(r io.Reader) (model.Ledger, error) {
	return accounts.ReadBalances(r)
}

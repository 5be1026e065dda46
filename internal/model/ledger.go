package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts cross JSON boundaries as numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Balances maps account numbers to signed balances as pulled from the ledger.
// Debit balances are positive, credit balances negative.
type Balances map[int]decimal.Decimal

// Accounts returns the account numbers in ascending order.
func (b Balances) Accounts() []int {
	accts := make([]int, 0, len(b))
	for a := range b {
		accts = append(accts, a)
	}
	sort.Ints(accts)
	return accts
}

// Get returns the balance of an account, zero when absent.
func (b Balances) Get(account int) decimal.Decimal {
	return b[account]
}

// SRUMapping maps account numbers to SRU codes.
type SRUMapping map[int]string

// CompanyInfo is report metadata. The engine never reads it.
type CompanyInfo struct {
	OrgNumber  string `json:"organization_number,omitempty"`
	Name       string `json:"company_name,omitempty"`
	FiscalYear int    `json:"fiscal_year,omitempty"`
	StartDate  string `json:"start_date,omitempty"` // YYYYMMDD as written in the export
	EndDate    string `json:"end_date,omitempty"`
	Location   string `json:"location,omitempty"`
	Date       string `json:"date,omitempty"`
}

// Ledger is a parsed bookkeeping export.
type Ledger struct {
	Current  Balances
	Previous Balances // nil when the export carries no prior year
	SRU      SRUMapping
	Company  CompanyInfo
}

// HasPrevious reports whether prior-year balances were supplied.
func (l Ledger) HasPrevious() bool {
	return l.Previous != nil
}

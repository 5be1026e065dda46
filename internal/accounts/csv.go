package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/raketrapport/raket/internal/model"
)

const (
	numFields   = 4
	colAccount  = 0
	colCurrent  = 1
	colPrevious = 2
	colSRU      = 3
)

// Header is the CSV header of a balances file.
var Header = []string{"account", "current", "previous", "sru"}

// ReadBalances reads a balances CSV: one row per account with the current
// balance, an optional previous-year balance and an optional SRU code.
// Previous is nil unless at least one row carries a previous balance.
func ReadBalances(r io.Reader) (model.Ledger, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return model.Ledger{}, fmt.Errorf("reading balances CSV: %w", err)
	}

	ledger := model.Ledger{Current: model.Balances{}, SRU: model.SRUMapping{}}
	if len(records) == 0 {
		return ledger, nil
	}

	for i, rec := range records[1:] {
		if err := unmarshalRow(rec, &ledger); err != nil {
			return model.Ledger{}, fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	return ledger, nil
}

func unmarshalRow(rec []string, ledger *model.Ledger) error {
	acct, err := strconv.Atoi(strings.TrimSpace(rec[colAccount]))
	if err != nil {
		return fmt.Errorf("parsing account %q: %w", rec[colAccount], err)
	}

	if s := strings.TrimSpace(rec[colCurrent]); s != "" {
		cur, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("parsing current %q: %w", s, err)
		}
		ledger.Current[acct] = cur
	}

	if s := strings.TrimSpace(rec[colPrevious]); s != "" {
		prev, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("parsing previous %q: %w", s, err)
		}
		if ledger.Previous == nil {
			ledger.Previous = model.Balances{}
		}
		ledger.Previous[acct] = prev
	}

	if code := strings.TrimSpace(rec[colSRU]); code != "" {
		ledger.SRU[acct] = code
	}
	return nil
}

// WriteBalances writes a ledger in the format read by ReadBalances, one row
// per account that appears in either year or in the SRU mapping.
func WriteBalances(w io.Writer, ledger model.Ledger) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range allAccounts(ledger) {
		if err := cw.Write(marshalRow(acct, ledger)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

func marshalRow(acct int, ledger model.Ledger) []string {
	row := make([]string, numFields)
	row[colAccount] = strconv.Itoa(acct)
	if v, ok := ledger.Current[acct]; ok {
		row[colCurrent] = v.String()
	}
	if v, ok := ledger.Previous[acct]; ok {
		row[colPrevious] = v.String()
	}
	row[colSRU] = ledger.SRU[acct]
	return row
}

func allAccounts(ledger model.Ledger) []int {
	seen := make(map[int]bool)
	for a := range ledger.Current {
		seen[a] = true
	}
	for a := range ledger.Previous {
		seen[a] = true
	}
	for a := range ledger.SRU {
		seen[a] = true
	}
	accts := make([]int, 0, len(seen))
	for a := range seen {
		accts = append(accts, a)
	}
	sort.Ints(accts)
	return accts
}

package importer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"github.com/raketrapport/raket/internal/model"
)

// SEParser parses SIE type 4 exports ("SE files"), which are written in
// code page 437.
type SEParser struct{}

// Year indexes used by #RAR, #UB and #RES.
const (
	seCurrentYear  = "0"
	sePreviousYear = "-1"
)

var errNotSE = errors.New("no SE records found")

// Format returns the parser name.
func (p *SEParser) Format() string { return "se" }

// Extensions returns the usual SE file extensions.
func (p *SEParser) Extensions() []string { return []string{".se", ".si", ".sie"} }

// Parse reads balances, SRU codes and company info. Records other than
// #FNAMN, #ORGNR, #RAR, #UB, #RES, #SRU and #KONTO are skipped.
func (p *SEParser) Parse(r io.Reader) (model.Ledger, error) {
	ledger := model.Ledger{
		Current: model.Balances{},
		SRU:     model.SRUMapping{},
	}
	previous := model.Balances{}
	hasPrevious := false
	records := 0

	sc := bufio.NewScanner(charmap.CodePage437.NewDecoder().Reader(r))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(text, "#") {
			continue
		}
		fields, err := splitFields(text)
		if err != nil {
			return model.Ledger{}, fmt.Errorf("line %d: %w", line, err)
		}
		records++

		switch strings.ToUpper(fields[0]) {
		case "#FNAMN":
			if len(fields) > 1 {
				ledger.Company.Name = fields[1]
			}
		case "#ORGNR":
			if len(fields) > 1 {
				ledger.Company.OrgNumber = fields[1]
			}
		case "#RAR":
			if len(fields) < 4 || fields[1] != seCurrentYear {
				continue
			}
			ledger.Company.StartDate, ledger.Company.EndDate = fields[2], fields[3]
			if len(fields[2]) >= 4 {
				year, err := strconv.Atoi(fields[2][:4])
				if err != nil {
					return model.Ledger{}, fmt.Errorf("line %d: parsing fiscal year %q: %w", line, fields[2], err)
				}
				ledger.Company.FiscalYear = year
			}
		case "#UB", "#RES":
			if len(fields) < 4 {
				return model.Ledger{}, fmt.Errorf("line %d: %s needs year, account and amount", line, fields[0])
			}
			acct, err := parseAccount(fields[2])
			if err != nil {
				return model.Ledger{}, fmt.Errorf("line %d: %w", line, err)
			}
			amount, err := decimal.NewFromString(fields[3])
			if err != nil {
				return model.Ledger{}, fmt.Errorf("line %d: parsing amount %q: %w", line, fields[3], err)
			}
			switch fields[1] {
			case seCurrentYear:
				ledger.Current[acct] = amount
			case sePreviousYear:
				previous[acct] = amount
				hasPrevious = true
			}
		case "#SRU":
			if len(fields) < 3 {
				return model.Ledger{}, fmt.Errorf("line %d: #SRU needs account and code", line)
			}
			acct, err := parseAccount(fields[1])
			if err != nil {
				return model.Ledger{}, fmt.Errorf("line %d: %w", line, err)
			}
			ledger.SRU[acct] = fields[2]
		case "#KONTO":
			if len(fields) < 2 {
				return model.Ledger{}, fmt.Errorf("line %d: #KONTO needs an account", line)
			}
			if _, err := parseAccount(fields[1]); err != nil {
				return model.Ledger{}, fmt.Errorf("line %d: %w", line, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return model.Ledger{}, fmt.Errorf("reading SE file: %w", err)
	}
	if records == 0 {
		return model.Ledger{}, errNotSE
	}

	if hasPrevious {
		ledger.Previous = previous
	}
	return ledger, nil
}

func parseAccount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid account %q", s)
	}
	return n, nil
}

// splitFields splits a record into whitespace separated words. Words may be
// quoted, with \" and \\ as escapes inside quotes. An object list in braces
// is kept as one field.
func splitFields(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inWord, quoted, escaped := false, false, false
	depth := 0

	flush := func() {
		if inWord {
			fields = append(fields, cur.String())
			cur.Reset()
			inWord = false
		}
	}

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"' && depth == 0:
			if quoted {
				quoted = false
				continue
			}
			quoted, inWord = true, true
		case quoted:
			cur.WriteRune(r)
		case r == '{':
			depth++
			inWord = true
			cur.WriteRune(r)
		case r == '}':
			if depth == 0 {
				return nil, errors.New("unbalanced }")
			}
			depth--
			cur.WriteRune(r)
			if depth == 0 {
				flush()
			}
		case depth > 0:
			cur.WriteRune(r)
		case r == ' ' || r == '\t':
			flush()
		default:
			inWord = true
			cur.WriteRune(r)
		}
	}
	if quoted {
		return nil, errors.New("unterminated quote")
	}
	if depth > 0 {
		return nil, errors.New("unterminated {")
	}
	flush()
	return fields, nil
}

// Package auditlog records manual tax inputs and tax decisions in an
// append-only CSV file.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/raketrapport/raket/internal/tax"
)

// Entry is one row in the audit log.
type Entry struct {
	Timestamp time.Time
	Session   string
	Kind      string
	Variable  string
	Amount    decimal.Decimal
	Detail    string
}

// Header is the CSV header for tax-audit.csv.
const Header = "timestamp,session,kind,variable,amount,detail"

// FileName is the log file name inside the audit directory.
const FileName = "tax-audit.csv"

const (
	numFields   = 6
	colTime     = 0
	colSession  = 1
	colKind     = 2
	colVariable = 3
	colAmount   = 4
	colDetail   = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTime] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colSession] = e.Session
	row[colKind] = e.Kind
	row[colVariable] = e.Variable
	row[colAmount] = e.Amount.String()
	row[colDetail] = e.Detail
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTime])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTime], err)
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	return Entry{
		Timestamp: ts,
		Session:   record[colSession],
		Kind:      record[colKind],
		Variable:  record[colVariable],
		Amount:    amount,
		Detail:    record[colDetail],
	}, nil
}

// FromTax stamps tax audit entries with a session and time.
func FromTax(session string, at time.Time, entries []tax.AuditEntry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{
			Timestamp: at,
			Session:   session,
			Kind:      e.Kind,
			Variable:  e.Variable,
			Amount:    e.Amount,
			Detail:    e.Detail,
		}
	}
	return out
}

// Append writes entries to <dir>/tax-audit.csv, creating the file and header if needed.
func Append(dir string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating audit dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <dir>/tax-audit.csv.
// Returns an empty slice if the file does not exist.
func Read(dir string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Log serializes appends from concurrent requests to one directory.
// A Log with an empty directory discards entries.
type Log struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// New returns a Log writing to dir.
func New(dir string) *Log {
	return &Log{dir: dir, now: time.Now}
}

// Record appends tax audit entries for a session.
func (l *Log) Record(session string, entries []tax.AuditEntry) error {
	if l == nil || l.dir == "" || len(entries) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return Append(l.dir, FromTax(session, l.now(), entries))
}

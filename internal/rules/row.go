// Package rules holds the declarative rule tables that map ledger accounts to
// report line items, and compiles them into validated, immutable tables.
package rules

import "fmt"

// TableName identifies one of the report's rule tables.
type TableName string

const (
	TableRR   TableName = "RR"   // Resultaträkning
	TableBR   TableName = "BR"   // Balansräkning
	TableINK2 TableName = "INK2" // Skatteberäkning
)

// Tables lists the tables in evaluation order. A table may reference the
// results of tables before it.
var Tables = []TableName{TableRR, TableBR, TableINK2}

func (t TableName) order() int {
	for i, n := range Tables {
		if n == t {
			return i
		}
	}
	return -1
}

// ParseTableName validates a table name.
func ParseTableName(s string) (TableName, error) {
	t := TableName(s)
	if t.order() < 0 {
		return "", fmt.Errorf("unknown table %q", s)
	}
	return t, nil
}

// Ref points at a line item computed by an earlier table.
type Ref struct {
	Table TableName `yaml:"table" json:"table"`
	ID    string    `yaml:"id" json:"id"`
}

func (r Ref) String() string {
	return string(r.Table) + "." + r.ID
}

// Row is a line item rule as written in YAML or stored in the database.
// Account fields use the forms accepted by accounts.ParseRange and
// accounts.ParseList.
type Row struct {
	ID           string `yaml:"id"`
	Label        string `yaml:"label"`
	SRU          string `yaml:"sru,omitempty"`
	Style        string `yaml:"style,omitempty"`
	Formula      string `yaml:"formula,omitempty"`
	Range        string `yaml:"range,omitempty"`
	Include      string `yaml:"include,omitempty"`
	ExcludeRange string `yaml:"exclude_range,omitempty"`
	Exclude      string `yaml:"exclude,omitempty"`
	Ref          *Ref   `yaml:"ref,omitempty"`
	Factor       string `yaml:"factor,omitempty"`
	NonNegative  bool   `yaml:"non_negative,omitempty"`
	ShowAmount   *bool  `yaml:"show_amount,omitempty"`
	AlwaysShow   bool   `yaml:"always_show,omitempty"`
	Group        string `yaml:"group,omitempty"`
	BalanceType  string `yaml:"balance_type,omitempty"`
	Explainer    string `yaml:"explainer,omitempty"`
}

// RateSet is a set of named rates in force from a fiscal year onwards.
type RateSet struct {
	FromYear int               `yaml:"from_year"`
	Values   map[string]string `yaml:"values"`
}

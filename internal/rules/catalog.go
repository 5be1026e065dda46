package rules

import (
	"context"
	"errors"
	"fmt"
)

// Catalog is the complete, cross-validated set of rule tables and rates.
// It is read-only once built and safe to share between goroutines.
type Catalog struct {
	tables map[TableName]*Table
	rates  Rates
}

// NewCatalog checks that refs resolve to existing rows of earlier tables and
// that every named factor has a rate.
func NewCatalog(tables []*Table, rates Rates) (*Catalog, error) {
	c := &Catalog{tables: make(map[TableName]*Table, len(tables)), rates: rates}
	for _, t := range tables {
		c.tables[t.Name()] = t
	}

	var problems []ValidationError
	for _, name := range Tables {
		t, ok := c.tables[name]
		if !ok {
			problems = append(problems, ValidationError{Table: name, Description: "table missing"})
			continue
		}
		for i, r := range t.rules {
			report := func(format string, args ...any) {
				problems = append(problems, ValidationError{
					Table: name, Row: i + 1, RowID: r.ID, Description: fmt.Sprintf(format, args...),
				})
			}
			if r.Kind == KindRef {
				src, ok := c.tables[r.Ref.Table]
				if !ok || !src.Has(r.Ref.ID) {
					report("ref %s does not resolve", r.Ref)
				}
			}
			if r.Factor.Rate != "" && !rates.Has(r.Factor.Rate) {
				report("unknown rate %q", r.Factor.Rate)
			}
		}
	}

	if len(problems) > 0 {
		return nil, &TableError{Problems: problems}
	}
	return c, nil
}

// LoadCatalog reads every table and the rates from src and builds a Catalog.
// Any invalid table fails the whole load.
func LoadCatalog(ctx context.Context, src Source) (*Catalog, error) {
	var tables []*Table
	var errs []error
	for _, name := range Tables {
		rows, err := src.Rows(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("loading %s rows: %w", name, err)
		}
		t, err := Compile(name, rows)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tables = append(tables, t)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sets, err := src.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading rates: %w", err)
	}
	rates, err := CompileRates(sets)
	if err != nil {
		return nil, err
	}

	return NewCatalog(tables, rates)
}

// Table returns a compiled table, nil when the catalog has none by that name.
func (c *Catalog) Table(name TableName) *Table {
	return c.tables[name]
}

// Rates returns the catalog's rates.
func (c *Catalog) Rates() Rates {
	return c.rates
}

// Export returns the catalog in declarative form, suitable for SaveFile.
func (c *Catalog) Export() *Document {
	doc := &Document{RateSets: c.rates.Export(), Tables: make(map[TableName][]Row)}
	for _, name := range Tables {
		if t := c.tables[name]; t != nil {
			doc.Tables[name] = t.Export()
		}
	}
	return doc
}

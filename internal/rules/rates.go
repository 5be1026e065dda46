package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Well-known rate names.
const (
	RateCorporateTax      = "bolagsskatt"
	RatePensionPayrollTax = "sarskild_loneskatt"
)

type rateSet struct {
	fromYear int
	values   map[string]decimal.Decimal
}

// Rates holds named rates by fiscal year. The zero Rates has no rates.
type Rates struct {
	sets []rateSet // ascending fromYear
}

// CompileRates parses and orders rate sets.
func CompileRates(sets []RateSet) (Rates, error) {
	var r Rates
	seen := make(map[int]bool)
	for _, s := range sets {
		if seen[s.FromYear] {
			return Rates{}, fmt.Errorf("%w: duplicate rate set for %d", ErrMalformedTable, s.FromYear)
		}
		seen[s.FromYear] = true

		rs := rateSet{fromYear: s.FromYear, values: make(map[string]decimal.Decimal, len(s.Values))}
		for name, v := range s.Values {
			d, err := decimal.NewFromString(strings.TrimSpace(v))
			if err != nil {
				return Rates{}, fmt.Errorf("%w: rate %s for %d: %v", ErrMalformedTable, name, s.FromYear, err)
			}
			rs.values[name] = d
		}
		r.sets = append(r.sets, rs)
	}
	sort.Slice(r.sets, func(i, j int) bool { return r.sets[i].fromYear < r.sets[j].fromYear })
	return r, nil
}

// Has reports whether any rate set defines name.
func (r Rates) Has(name string) bool {
	for _, s := range r.sets {
		if _, ok := s.values[name]; ok {
			return true
		}
	}
	return false
}

// Lookup returns the rate in force for a fiscal year: the value from the
// latest set starting at or before the year that defines name. Years before
// every set use the earliest definition; a zero year means the latest.
func (r Rates) Lookup(name string, fiscalYear int) (decimal.Decimal, bool) {
	if fiscalYear <= 0 {
		for i := len(r.sets) - 1; i >= 0; i-- {
			if v, ok := r.sets[i].values[name]; ok {
				return v, true
			}
		}
		return decimal.Zero, false
	}
	for i := len(r.sets) - 1; i >= 0; i-- {
		if r.sets[i].fromYear > fiscalYear {
			continue
		}
		if v, ok := r.sets[i].values[name]; ok {
			return v, true
		}
	}
	for _, s := range r.sets {
		if v, ok := s.values[name]; ok {
			return v, true
		}
	}
	return decimal.Zero, false
}

// Export returns the rate sets in declarative form.
func (r Rates) Export() []RateSet {
	out := make([]RateSet, len(r.sets))
	for i, s := range r.sets {
		values := make(map[string]string, len(s.values))
		for k, v := range s.values {
			values[k] = v.String()
		}
		out[i] = RateSet{FromYear: s.fromYear, Values: values}
	}
	return out
}

package accounts

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is an inclusive span of account numbers. The zero Range is empty.
type Range struct {
	Start int
	End   int
}

// IsZero reports whether r is the empty range.
func (r Range) IsZero() bool {
	return r.Start == 0 && r.End == 0
}

// Contains reports whether account n lies inside r.
func (r Range) Contains(n int) bool {
	return !r.IsZero() && n >= r.Start && n <= r.End
}

// String renders r as "4910-4929", or "4960" for a single account.
func (r Range) String() string {
	if r.IsZero() {
		return ""
	}
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ParseRange parses "4910-4929" or a single account "4960".
// The empty string yields the zero Range.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, nil
	}
	lo, hi, found := strings.Cut(s, "-")
	start, err := parseAccount(lo)
	if err != nil {
		return Range{}, err
	}
	end := start
	if found {
		end, err = parseAccount(hi)
		if err != nil {
			return Range{}, err
		}
	}
	if end < start {
		return Range{}, fmt.Errorf("range %q: end before start", s)
	}
	return Range{Start: start, End: end}, nil
}

// ParseList parses a list of accounts and sub-ranges separated by ',' or ';',
// e.g. "4910-4929;4960".
func ParseList(s string) ([]Range, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	var out []Range
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			continue
		}
		r, err := ParseRange(f)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// FormatList renders ranges in the form accepted by ParseList.
func FormatList(ranges []Range) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ";")
}

func parseAccount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parsing account %q: %w", strings.TrimSpace(s), err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("account %d must be positive", n)
	}
	return n, nil
}

// Spec describes the accounts a leaf rule claims by number.
type Spec struct {
	Range        Range
	Include      []Range
	ExcludeRange Range
	Exclude      []Range
}

// Empty reports whether the spec claims no accounts by number at all.
// Leaf rules with an empty spec are reachable only through SRU codes.
func (s Spec) Empty() bool {
	return s.Range.IsZero() && len(s.Include) == 0
}

// Contains reports whether account n belongs to the spec: inside Range or
// any Include entry, and outside ExcludeRange and every Exclude entry.
func (s Spec) Contains(n int) bool {
	if !s.Range.Contains(n) && !anyContains(s.Include, n) {
		return false
	}
	if s.ExcludeRange.Contains(n) || anyContains(s.Exclude, n) {
		return false
	}
	return true
}

func anyContains(ranges []Range, n int) bool {
	for _, r := range ranges {
		if r.Contains(n) {
			return true
		}
	}
	return false
}

// Classify returns the accounts of the given list that belong to spec,
// preserving input order.
func Classify(spec Spec, accounts []int) []int {
	var out []int
	for _, a := range accounts {
		if spec.Contains(a) {
			out = append(out, a)
		}
	}
	return out
}

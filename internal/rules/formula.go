package rules

import (
	"fmt"
	"strings"
	"unicode"
)

// Term is one signed reference of a formula.
type Term struct {
	ID       string
	Negative bool
}

// ParseFormula splits a formula such as "RFP+BD" or "-INK_a+INK_b" into
// signed terms. The first term carries an implicit '+'. Whitespace is ignored.
func ParseFormula(s string) ([]Term, error) {
	var terms []Term
	var cur strings.Builder
	negative := false
	sawOperator := false

	flush := func(pos int) error {
		id := cur.String()
		if id == "" {
			return fmt.Errorf("formula %q: missing operand at position %d", s, pos)
		}
		terms = append(terms, Term{ID: id, Negative: negative})
		cur.Reset()
		return nil
	}

	for i, r := range s {
		switch {
		case unicode.IsSpace(r):
			continue
		case r == '+' || r == '-':
			if cur.Len() == 0 && len(terms) == 0 && !sawOperator {
				// Leading sign.
				negative = r == '-'
				sawOperator = true
				continue
			}
			if err := flush(i); err != nil {
				return nil, err
			}
			negative = r == '-'
			sawOperator = true
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() == 0 && len(terms) == 0 && !sawOperator {
		return nil, nil
	}
	if err := flush(len(s)); err != nil {
		return nil, err
	}
	return terms, nil
}

// FormatFormula renders terms back into formula text.
func FormatFormula(terms []Term) string {
	var b strings.Builder
	for i, t := range terms {
		switch {
		case t.Negative:
			b.WriteByte('-')
		case i > 0:
			b.WriteByte('+')
		}
		b.WriteString(t.ID)
	}
	return b.String()
}

package presentation

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/raketrapport/raket/internal/model"
)

// spaces replaces the locale's no-break and narrow no-break group separators.
var spaces = strings.NewReplacer("\u00a0", " ", "\u202f", " ")

// FormatAmount writes n in whole kronor with Swedish digit grouping. Credit
// rows are shown with the sign inverted. A null amount is empty.
func FormatAmount(n decimal.NullDecimal, bt model.BalanceType) string {
	if !n.Valid {
		return ""
	}
	v := n.Decimal.Round(0)
	if bt == model.BalanceCredit {
		v = v.Neg()
	}
	if v.IsZero() {
		return "0"
	}
	s := spaces.Replace(message.NewPrinter(language.Swedish).Sprintf("%d", v.Abs().IntPart()))
	if v.IsNegative() {
		return "-" + s
	}
	return s
}

// Render writes rows as an indented two-year table.
func Render(w io.Writer, title string, rows []Row) error {
	if _, err := fmt.Fprintf(w, "%s\n\n", title); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		label := strings.Repeat("  ", min(r.Level, 3)) + r.Label
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t\n", label, r.Current, r.Previous); err != nil {
			return err
		}
	}
	return tw.Flush()
}

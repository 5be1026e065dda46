// Package presentation decides which computed rows a report shows and how
// their amounts are written.
package presentation

import (
	"github.com/raketrapport/raket/internal/model"
)

// Row is one displayed report line.
type Row struct {
	ID        string      `json:"id"`
	Label     string      `json:"label"`
	Style     model.Style `json:"style"`
	Level     int         `json:"level"`
	Bold      bool        `json:"bold"`
	Heading   bool        `json:"heading"`
	Current   string      `json:"current"`
	Previous  string      `json:"previous"`
	Explainer string      `json:"explainer,omitempty"`
}

// Visible reports whether item is shown among items. With showAll every row
// is shown. A heading is shown when it is always_show or some non-heading
// row of its group has a non-zero amount in either year; a heading without a
// group only when always_show. Other rows are shown when always_show or
// non-zero in either year.
func Visible(item model.LineItem, items []model.LineItem, showAll bool) bool {
	if showAll || item.AlwaysShow {
		return true
	}
	if !item.Style.IsHeading() {
		return hasAmount(item)
	}
	if item.Group == "" {
		return false
	}
	for _, other := range items {
		if other.Group == item.Group && !other.Style.IsHeading() && hasAmount(other) {
			return true
		}
	}
	return false
}

func hasAmount(it model.LineItem) bool {
	return model.NonZero(it.CurrentAmount) || model.NonZero(it.PreviousAmount)
}

// Filter returns the visible items as display rows.
func Filter(items []model.LineItem, showAll bool) []Row {
	var rows []Row
	for _, it := range items {
		if !Visible(it, items, showAll) {
			continue
		}
		r := Row{
			ID:        it.ID,
			Label:     it.Label,
			Style:     it.Style,
			Level:     it.Style.Level(),
			Bold:      it.Style.Bold(),
			Heading:   it.Style.IsHeading(),
			Explainer: it.Explainer,
		}
		if it.ShowAmount {
			r.Current = FormatAmount(it.CurrentAmount, it.BalanceType)
			r.Previous = FormatAmount(it.PreviousAmount, it.BalanceType)
		}
		rows = append(rows, r)
	}
	return rows
}

// FilterTax returns the visible tax variables as display rows.
func FilterTax(vars []model.TaxVariable, showAll bool) []Row {
	items := make([]model.LineItem, len(vars))
	for i, v := range vars {
		items[i] = model.LineItem{
			ID:            v.VariableName,
			Label:         v.RowTitle,
			Style:         v.Style,
			Group:         v.Group,
			CurrentAmount: v.Amount,
			ShowAmount:    v.ShowAmount,
			AlwaysShow:    v.AlwaysShow,
			Explainer:     v.Explainer,
		}
	}
	return Filter(items, showAll)
}

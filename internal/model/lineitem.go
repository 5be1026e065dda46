package model

import "github.com/shopspring/decimal"

// BalanceType tells the display layer which side of the ledger a row lives on.
type BalanceType string

const (
	BalanceDebit  BalanceType = "debit"
	BalanceCredit BalanceType = "credit"
)

// AccountDetail is one account's contribution to a leaf row.
type AccountDetail struct {
	Account int             `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

// LineItem is the computed output of one rule for the current and previous year.
type LineItem struct {
	ID             string              `json:"id"`
	Label          string              `json:"label"`
	Style          Style               `json:"style"`
	Group          string              `json:"block_group,omitempty"`
	CurrentAmount  decimal.NullDecimal `json:"current_amount"`
	PreviousAmount decimal.NullDecimal `json:"previous_amount"`
	IsCalculated   bool                `json:"is_calculated"`
	IsManual       bool                `json:"is_manual,omitempty"`
	ShowAmount     bool                `json:"show_amount"`
	AlwaysShow     bool                `json:"always_show"`
	BalanceType    BalanceType         `json:"balance_type,omitempty"`
	AccountDetails []AccountDetail     `json:"account_details,omitempty"`
	Explainer      string              `json:"explainer,omitempty"`
}

// TaxVariable is one INK2 quantity as returned to callers of the tax recalculation.
type TaxVariable struct {
	VariableName   string              `json:"variable_name"`
	RowTitle       string              `json:"row_title"`
	Amount         decimal.NullDecimal `json:"amount"`
	Style          Style               `json:"style"`
	Group          string              `json:"block_group,omitempty"`
	ShowAmount     bool                `json:"show_amount"`
	AlwaysShow     bool                `json:"always_show"`
	IsCalculated   bool                `json:"is_calculated"`
	IsManual       bool                `json:"is_manual"`
	AccountDetails []AccountDetail     `json:"account_details,omitempty"`
	Explainer      string              `json:"explainer,omitempty"`
}

// Amount wraps d as a present (non-null) amount.
func Amount(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// NonZero reports whether n is present and different from zero.
func NonZero(n decimal.NullDecimal) bool {
	return n.Valid && !n.Decimal.IsZero()
}

// FindItem returns the item with the given id.
func FindItem(items []LineItem, id string) (LineItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return LineItem{}, false
}

package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in      string
		want    Style
		wantErr bool
	}{
		{"", StyleNormal, false},
		{"normal", StyleNormal, false},
		{"h2", StyleH2, false},
		{" S1 ", StyleS1, false},
		{"H4", StyleH4, false},
		{"X9", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStyle(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseStyle(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "ParseStyle(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseStyle(%q)", tt.in)
	}
}

func TestStyleLevelAndBold(t *testing.T) {
	tests := []struct {
		style   Style
		level   int
		bold    bool
		heading bool
	}{
		{StyleH0, 0, true, true},
		{StyleH1, 1, true, true},
		{StyleH2, 2, true, true},
		{StyleH3, 3, false, true},
		{StyleH4, 4, true, true},
		{StyleS1, 4, true, false},
		{StyleS3, 4, false, false},
		{StyleNormal, 4, false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, tt.style.Level(), "%s level", tt.style)
		assert.Equal(t, tt.bold, tt.style.Bold(), "%s bold", tt.style)
		assert.Equal(t, tt.heading, tt.style.IsHeading(), "%s heading", tt.style)
	}
}

func TestNullAmountJSON(t *testing.T) {
	item := LineItem{ID: "3.1", CurrentAmount: Amount(decimal.NewFromInt(-150000))}
	data, err := json.Marshal(item)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"current_amount":-150000`)
	assert.Contains(t, s, `"previous_amount":null`)

	var back LineItem
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.CurrentAmount.Valid)
	assert.False(t, back.PreviousAmount.Valid)
	assert.True(t, back.CurrentAmount.Decimal.Equal(decimal.NewFromInt(-150000)))
}

func TestBalancesAccountsSorted(t *testing.T) {
	b := Balances{3020: decimal.NewFromInt(1), 1930: decimal.NewFromInt(2), 3010: decimal.NewFromInt(3)}
	assert.Equal(t, []int{1930, 3010, 3020}, b.Accounts())
	assert.True(t, b.Get(9999).IsZero())
}

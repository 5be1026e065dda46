package model

import (
	"fmt"
	"strings"
)

// Style governs how a line item is rendered and which visibility policy applies.
type Style string

const (
	StyleH0     Style = "H0"
	StyleH1     Style = "H1"
	StyleH2     Style = "H2"
	StyleH3     Style = "H3"
	StyleH4     Style = "H4"
	StyleS1     Style = "S1"
	StyleS2     Style = "S2"
	StyleS3     Style = "S3"
	StyleNormal Style = "NORMAL"
)

// ParseStyle parses a style name. The empty string means NORMAL.
func ParseStyle(s string) (Style, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return StyleNormal, nil
	}
	switch st := Style(s); st {
	case StyleH0, StyleH1, StyleH2, StyleH3, StyleH4, StyleS1, StyleS2, StyleS3, StyleNormal:
		return st, nil
	}
	return "", fmt.Errorf("unknown style %q", s)
}

// IsHeading reports whether the style is one of the heading levels.
func (s Style) IsHeading() bool {
	return strings.HasPrefix(string(s), "H")
}

// IsSummary reports whether the style is one of the summary levels.
func (s Style) IsSummary() bool {
	return strings.HasPrefix(string(s), "S")
}

// Level returns the indentation level: H0..H4 map to 0..4, everything else to 4.
func (s Style) Level() int {
	switch s {
	case StyleH0:
		return 0
	case StyleH1:
		return 1
	case StyleH2:
		return 2
	case StyleH3:
		return 3
	}
	return 4
}

// Bold reports whether the row label renders bold.
func (s Style) Bold() bool {
	switch s {
	case StyleH0, StyleH1, StyleH2, StyleH4, StyleS1, StyleS2:
		return true
	}
	return false
}

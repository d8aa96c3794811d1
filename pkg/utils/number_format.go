// Package utils provides number formatting for lmmarrears reports.
package utils

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Grouping selects how integer digits are separated.
type Grouping string

const (
	GroupingNone          Grouping = "none"          // 1234567.89
	GroupingInternational Grouping = "international" // 1,234,567.89
	GroupingIndian        Grouping = "indian"        // 12,34,567.89
)

// NumberFormat is a request-scoped formatting choice. The zero value renders
// six decimals without grouping.
type NumberFormat struct {
	Decimals int
	Grouping Grouping
}

// DefaultNumberFormat is used when a report does not specify one.
func DefaultNumberFormat() NumberFormat {
	return NumberFormat{Decimals: 6, Grouping: GroupingNone}
}

// Format renders v rounded half away from zero to f.Decimals places.
// NaN and infinities render as "n/a".
func (f NumberFormat) Format(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	s := decimal.NewFromFloat(v).Round(int32(f.Decimals)).StringFixed(int32(f.Decimals))

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, fracPart, _ := strings.Cut(s, ".")

	switch f.Grouping {
	case GroupingInternational:
		intPart = groupDigits(intPart, 3, 3)
	case GroupingIndian:
		intPart = groupDigits(intPart, 3, 2)
	}

	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if negative && strings.Trim(out, "0.,") != "" {
		return "-" + out
	}
	return out
}

// FormatPct formats a fraction as a percentage with f.Decimals places.
// e.g., 0.0123 → "1.23%" with two decimals.
func (f NumberFormat) FormatPct(fraction float64) string {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return "n/a"
	}
	return NumberFormat{Decimals: f.Decimals, Grouping: GroupingNone}.Format(fraction*100) + "%"
}

// groupDigits inserts commas: the last `first` digits, then groups of `rest`.
func groupDigits(s string, first, rest int) string {
	if len(s) <= first {
		return s
	}
	result := s[len(s)-first:]
	remaining := s[:len(s)-first]

	for len(remaining) > 0 {
		if len(remaining) > rest {
			result = remaining[len(remaining)-rest:] + "," + result
			remaining = remaining[:len(remaining)-rest]
		} else {
			result = remaining + "," + result
			remaining = ""
		}
	}
	return result
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

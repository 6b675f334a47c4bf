// Package common holds small utilities shared across the project:
// English ordinal formatting and timestamp helpers for log lines.
package common

import (
	"fmt"
	"time"
)

// Ordinal formats n with its English ordinal suffix.
//
// Any number whose tens digit is 1 takes "th" (11th, 12th, 13th, 111th);
// otherwise the ones digit selects the suffix.
//
// Examples:
//
//	Ordinal(1)   = "1st"
//	Ordinal(22)  = "22nd"
//	Ordinal(113) = "113th"
func Ordinal(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}

	// Teens always take "th", regardless of the ones digit.
	if abs%100/10 == 1 {
		return fmt.Sprintf("%dth", n)
	}

	switch abs % 10 {
	case 1:
		return fmt.Sprintf("%dst", n)
	case 2:
		return fmt.Sprintf("%dnd", n)
	case 3:
		return fmt.Sprintf("%drd", n)
	default:
		return fmt.Sprintf("%dth", n)
	}
}

// FormatDateTime renders a timestamp the way log lines and admin replies
// show it: "2006-01-02 15:04:05" in UTC.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

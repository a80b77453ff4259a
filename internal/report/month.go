package report

import (
	"strings"
	"time"

	"spendlens/internal/statement"
)

// dateLayouts are tried in order. Month-first slash dates win over day-first
// ones; day-first is only reached when the month-first reading is invalid.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"02/01/2006",
	"01-02-2006",
	"02-01-2006",
	"01/02/06",
	"02/01/06",
	"02-Jan-2006",
	"02-Jan-06",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"2006-01",
}

// ParseDate parses the date formats commonly found in bank exports. Input is
// upper-cased first because statement text has been lowercased by then.
func ParseDate(s string) (time.Time, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MonthOf returns the "YYYY-MM" bucket of a date cell.
func MonthOf(v statement.Value) (string, bool) {
	s, ok := v.Text()
	if !ok {
		return "", false
	}
	t, ok := ParseDate(s)
	if !ok {
		return "", false
	}
	return t.Format("2006-01"), true
}

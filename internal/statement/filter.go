package statement

import "strings"

// DropZeroDebit removes rows whose debit amount is exactly zero. Nulls are kept.
func DropZeroDebit(t *Table, caps Capabilities) (*Table, int) {
	if !caps.HasDebitAmount {
		return t.Clone(), 0
	}
	return t.filter(func(i int) bool {
		f, ok := t.Value(i, ColDebitAmount).Number()
		return !ok || f != 0
	})
}

// DropTax removes rows whose narration contains "tax" anywhere, so "syntax"
// and "uptax" are dropped as well. Null narrations are kept.
func DropTax(t *Table, caps Capabilities) (*Table, int) {
	if !caps.HasNarration {
		return t.Clone(), 0
	}
	return t.filter(func(i int) bool {
		s, ok := t.Value(i, ColNarration).Text()
		return !ok || !strings.Contains(strings.ToLower(s), "tax")
	})
}

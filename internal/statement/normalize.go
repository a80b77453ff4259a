package statement

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// noiseTokens are payment-rail markers removed from narrations wherever they
// occur, including inside words.
var noiseTokens = strings.NewReplacer(
	"upi", "",
	"okicici", "",
	"gpay", "",
)

// NormalizeText lowercases s and trims surrounding whitespace.
func NormalizeText(caser cases.Caser, s string) string {
	return caser.String(strings.TrimSpace(s))
}

// CleanNarration prepares an already lowercased narration for rule matching:
// digits are removed, anything that is not a-z or whitespace becomes a space,
// noise tokens are dropped and the result is trimmed.
func CleanNarration(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
		case r >= 'a' && r <= 'z', unicode.IsSpace(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(noiseTokens.Replace(b.String()))
}

// Normalize returns a copy of t with every text cell lowercased and trimmed,
// and with the narration column cleaned. Nulls are left alone.
func Normalize(t *Table, caps Capabilities) *Table {
	out := t.Clone()
	caser := cases.Lower(language.Und)

	for j := range out.columns {
		for i := range out.rows {
			if s, ok := out.rows[i][j].Text(); ok {
				out.rows[i][j] = Text(NormalizeText(caser, s))
			}
		}
	}

	if caps.HasNarration {
		for i := range out.rows {
			if s, ok := out.Value(i, ColNarration).Text(); ok {
				out.set(i, ColNarration, Text(CleanNarration(s)))
			}
		}
	}
	return out
}

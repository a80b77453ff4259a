package report

import (
	"math"

	"github.com/shopspring/decimal"

	"spendlens/internal/statement"
)

// Sum accumulates amounts exactly. Nulls and NaN are skipped; infinities
// poison the total, which then renders as null.
type Sum struct {
	total  decimal.Decimal
	posInf bool
	negInf bool
}

func (s *Sum) Add(v statement.Value) {
	f, ok := v.Number()
	if !ok {
		return
	}
	s.AddFloat(f)
}

func (s *Sum) AddFloat(f float64) {
	switch {
	case math.IsNaN(f):
	case math.IsInf(f, 1):
		s.posInf = true
	case math.IsInf(f, -1):
		s.negInf = true
	default:
		s.total = s.total.Add(decimal.NewFromFloat(f))
	}
}

// Float returns the total, NaN when both infinities were seen.
func (s Sum) Float() float64 {
	switch {
	case s.posInf && s.negInf:
		return math.NaN()
	case s.posInf:
		return math.Inf(1)
	case s.negInf:
		return math.Inf(-1)
	}
	return s.total.InexactFloat64()
}

func (s Sum) Value() statement.Value {
	return statement.Number(s.Float())
}

// Abs returns a copy holding the absolute value of the total.
func (s Sum) Abs() Sum {
	out := Sum{total: s.total.Abs()}
	if s.posInf || s.negInf {
		out.posInf = true
		out.negInf = s.posInf && s.negInf
	}
	return out
}

// Package report holds the read-only aggregations served over a categorized
// statement table. Every view is a pure function of its input and returns a
// non-nil slice, empty when the columns it needs are missing.
package report

import (
	"math"
	"sort"

	"spendlens/internal/statement"
)

const (
	FieldMonth   = "month"
	FieldIncome  = "income"
	FieldExpense = "expense"

	// DefaultTopMerchants is how many merchants TopMerchants returns by default.
	DefaultTopMerchants = 10
)

// groups accumulates sums per key and lists keys in ascending order.
type groups struct {
	sums map[string]*Sum
}

func newGroups() *groups {
	return &groups{sums: make(map[string]*Sum)}
}

func (g *groups) get(key string) *Sum {
	s, ok := g.sums[key]
	if !ok {
		s = &Sum{}
		g.sums[key] = s
	}
	return s
}

func (g *groups) keys() []string {
	keys := make([]string, 0, len(g.sums))
	for k := range g.sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CategorySummary sums the amount column per category, ordered by category
// name ascending.
func CategorySummary(t *statement.Table, caps statement.Capabilities) []statement.Record {
	out := []statement.Record{}
	if !caps.HasAmount() || !t.Has(statement.ColCategory) {
		return out
	}

	g := newGroups()
	for i := 0; i < t.Len(); i++ {
		category, ok := t.Value(i, statement.ColCategory).Text()
		if !ok {
			continue
		}
		g.get(category).Add(t.Value(i, caps.AmountColumn))
	}

	for _, category := range g.keys() {
		out = append(out, statement.Record{
			{Name: statement.ColCategory, Value: statement.Text(category)},
			{Name: caps.AmountColumn, Value: g.sums[category].Value()},
		})
	}
	return out
}

// MonthlyTrend sums the amount column per "YYYY-MM", oldest month first.
// Rows whose date cannot be parsed are left out.
func MonthlyTrend(t *statement.Table, caps statement.Capabilities) []statement.Record {
	out := []statement.Record{}
	if !caps.HasDate || !caps.HasAmount() {
		return out
	}

	g := newGroups()
	for i := 0; i < t.Len(); i++ {
		month, ok := MonthOf(t.Value(i, statement.ColDate))
		if !ok {
			continue
		}
		g.get(month).Add(t.Value(i, caps.AmountColumn))
	}

	for _, month := range g.keys() {
		out = append(out, statement.Record{
			{Name: FieldMonth, Value: statement.Text(month)},
			{Name: caps.AmountColumn, Value: g.sums[month].Value()},
		})
	}
	return out
}

// MonthlyCategoryBreakdown pivots amounts into one record per month with one
// field per category seen anywhere in the table. Missing combinations are 0.
func MonthlyCategoryBreakdown(t *statement.Table, caps statement.Capabilities) []statement.Record {
	out := []statement.Record{}
	if !caps.HasDate || !caps.HasAmount() || !t.Has(statement.ColCategory) {
		return out
	}

	months := make(map[string]*groups)
	categories := newGroups()
	for i := 0; i < t.Len(); i++ {
		month, ok := MonthOf(t.Value(i, statement.ColDate))
		if !ok {
			continue
		}
		category, ok := t.Value(i, statement.ColCategory).Text()
		// a category named like the month key would duplicate it
		if !ok || category == FieldMonth {
			continue
		}
		if months[month] == nil {
			months[month] = newGroups()
		}
		amount := t.Value(i, caps.AmountColumn)
		months[month].get(category).Add(amount)
		categories.get(category).Add(amount)
	}

	monthKeys := make([]string, 0, len(months))
	for m := range months {
		monthKeys = append(monthKeys, m)
	}
	sort.Strings(monthKeys)
	categoryKeys := categories.keys()

	for _, month := range monthKeys {
		rec := make(statement.Record, 0, len(categoryKeys)+1)
		rec = append(rec, statement.Field{Name: FieldMonth, Value: statement.Text(month)})
		for _, category := range categoryKeys {
			value := statement.Number(0)
			if s, ok := months[month].sums[category]; ok {
				value = s.Value()
			}
			rec = append(rec, statement.Field{Name: category, Value: value})
		}
		out = append(out, rec)
	}
	return out
}

// TopMerchants returns the n merchants with the largest absolute summed
// amount, largest first. Ties are broken by merchant name.
func TopMerchants(t *statement.Table, caps statement.Capabilities, n int) []statement.Record {
	out := []statement.Record{}
	column := caps.MerchantColumn()
	if column == "" || !caps.HasAmount() || n <= 0 {
		return out
	}

	g := newGroups()
	for i := 0; i < t.Len(); i++ {
		merchant, ok := t.Value(i, column).Text()
		if !ok {
			continue
		}
		g.get(merchant).Add(t.Value(i, caps.AmountColumn))
	}

	type ranked struct {
		name  string
		total Sum
	}
	all := make([]ranked, 0, len(g.sums))
	for _, name := range g.keys() {
		all = append(all, ranked{name: name, total: g.sums[name].Abs()})
	}
	sort.SliceStable(all, func(i, j int) bool {
		return greater(all[i].total, all[j].total)
	})

	if len(all) > n {
		all = all[:n]
	}
	for _, r := range all {
		out = append(out, statement.Record{
			{Name: column, Value: statement.Text(r.name)},
			{Name: caps.AmountColumn, Value: r.total.Value()},
		})
	}
	return out
}

// greater orders sums descending with NaN totals last.
func greater(a, b Sum) bool {
	fa, fb := a.Float(), b.Float()
	switch {
	case math.IsNaN(fa):
		return false
	case math.IsNaN(fb):
		return true
	case math.IsInf(fa, 0) || math.IsInf(fb, 0):
		return fa > fb
	}
	return a.total.GreaterThan(b.total)
}

// IncomeVsExpense splits each month into income (sum of positive amounts)
// and expense (sum of negated negative amounts).
func IncomeVsExpense(t *statement.Table, caps statement.Capabilities) []statement.Record {
	out := []statement.Record{}
	if !caps.HasDate || !caps.HasAmount() {
		return out
	}

	income := newGroups()
	expense := newGroups()
	for i := 0; i < t.Len(); i++ {
		month, ok := MonthOf(t.Value(i, statement.ColDate))
		if !ok {
			continue
		}
		in, ex := income.get(month), expense.get(month)
		amount, ok := t.Value(i, caps.AmountColumn).Number()
		if !ok {
			continue
		}
		switch {
		case amount > 0:
			in.AddFloat(amount)
		case amount < 0:
			ex.AddFloat(-amount)
		}
	}

	for _, month := range income.keys() {
		out = append(out, statement.Record{
			{Name: FieldMonth, Value: statement.Text(month)},
			{Name: FieldIncome, Value: income.sums[month].Value()},
			{Name: FieldExpense, Value: expense.sums[month].Value()},
		})
	}
	return out
}

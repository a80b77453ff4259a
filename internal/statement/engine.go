package statement

const (
	// Unclassified marks a row no rule could place. It also counts as
	// unassigned, so later passes may still categorize the row.
	Unclassified = "Unclassified"

	// FallbackCategory is given to small unmatched debits.
	FallbackCategory = "Grocery"

	fallbackCeiling = 200
)

// IsUnassigned reports whether a category cell is null, empty or Unclassified.
func IsUnassigned(v Value) bool {
	if v.IsNull() {
		return true
	}
	s, ok := v.Text()
	return ok && (s == "" || s == Unclassified)
}

// Stats counts how an engine pass placed rows.
type Stats struct {
	Preassigned int
	ByRule      int
	ByFallback  int
	Defaulted   int
}

func (s Stats) add(o Stats) Stats {
	return Stats{
		Preassigned: s.Preassigned + o.Preassigned,
		ByRule:      s.ByRule + o.ByRule,
		ByFallback:  s.ByFallback + o.ByFallback,
		Defaulted:   s.Defaulted + o.Defaulted,
	}
}

// Engine applies an ordered RuleSet to normalized narrations.
type Engine struct {
	rules RuleSet
}

func NewEngine(rules RuleSet) *Engine {
	return &Engine{rules: rules}
}

// Apply returns a categorized copy of t.
//
// Rows with a category already set are never touched. Each remaining row
// gets the category of the first rule matching its narration; when none
// matches and 0 < debit amount < 200 it becomes FallbackCategory; anything
// still unassigned becomes Unclassified. Applying the engine to its own
// output changes nothing.
func (e *Engine) Apply(t *Table, caps Capabilities) (*Table, Stats) {
	out := t.withColumn(ColCategory)
	var stats Stats

	for i := range out.rows {
		if !IsUnassigned(out.Value(i, ColCategory)) {
			stats.Preassigned++
			continue
		}

		if caps.HasNarration {
			if narration, ok := out.Value(i, ColNarration).Text(); ok {
				if category, ok := e.rules.Match(narration); ok {
					out.set(i, ColCategory, Text(category))
					stats.ByRule++
					continue
				}
			}
		}

		if caps.HasDebitAmount {
			if debit, ok := out.Value(i, ColDebitAmount).Number(); ok && debit > 0 && debit < fallbackCeiling {
				out.set(i, ColCategory, Text(FallbackCategory))
				stats.ByFallback++
				continue
			}
		}

		out.set(i, ColCategory, Text(Unclassified))
		stats.Defaulted++
	}
	return out, stats
}

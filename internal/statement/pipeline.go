package statement

// Result is the outcome of one pipeline run.
type Result struct {
	Table        *Table
	Capabilities Capabilities

	RowsIn           int
	DroppedZeroDebit int
	DroppedTax       int

	// Stats describes the first engine pass. It is zero when the keyword
	// categorizer ran instead.
	Stats Stats
}

// RowsOut is the number of rows that survived filtering.
func (r Result) RowsOut() int { return r.Table.Len() }

// CategoryCounts returns how many rows ended up in each category.
func (r Result) CategoryCounts() map[string]int {
	counts := make(map[string]int)
	for i := 0; i < r.Table.Len(); i++ {
		if s, ok := r.Table.Value(i, ColCategory).Text(); ok {
			counts[s]++
		}
	}
	return counts
}

// Pipeline turns a raw statement table into a filtered, categorized one.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	engine   *Engine
	keywords []KeywordCategory
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithKeywords replaces the keyword table used when a statement has no
// narration column.
func WithKeywords(keywords []KeywordCategory) Option {
	return func(p *Pipeline) {
		p.keywords = keywords
	}
}

// NewPipeline builds a pipeline around rules.
func NewPipeline(rules RuleSet, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:   NewEngine(rules),
		keywords: DefaultKeywords(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run normalizes, filters and categorizes t. The input table is not modified.
func (p *Pipeline) Run(t *Table) Result {
	caps := Detect(t)
	res := Result{RowsIn: t.Len()}

	out := Normalize(t, caps)
	out, res.DroppedZeroDebit = DropZeroDebit(out, caps)
	out, res.DroppedTax = DropTax(out, caps)

	out = out.withColumn(ColCategory)
	caps.HasCategory = true

	if caps.HasNarration {
		out, res.Stats = p.engine.Apply(out, caps)
	} else {
		out = p.categorizeByKeyword(out, caps)
	}
	// The engine always runs a second time. On categorized input it
	// changes nothing.
	out, _ = p.engine.Apply(out, caps)

	out = fillUnclassified(out)
	out = scrubNonFinite(out)

	res.Table = out
	res.Capabilities = caps
	return res
}

// categorizeByKeyword is used when there is no narration to run rules on.
// Only unassigned rows are touched.
func (p *Pipeline) categorizeByKeyword(t *Table, caps Capabilities) *Table {
	out := t.Clone()
	for i := range out.rows {
		if !IsUnassigned(out.Value(i, ColCategory)) {
			continue
		}
		category := Uncategorized
		if caps.HasDescription {
			if desc, ok := out.Value(i, ColDescription).Text(); ok {
				category = CategorizeByKeyword(p.keywords, desc)
			}
		}
		out.set(i, ColCategory, Text(category))
	}
	return out
}

func fillUnclassified(t *Table) *Table {
	out := t.Clone()
	for i := range out.rows {
		v := out.Value(i, ColCategory)
		if s, ok := v.Text(); v.IsNull() || (ok && s == "") {
			out.set(i, ColCategory, Text(Unclassified))
		}
	}
	return out
}

// scrubNonFinite replaces NaN and infinities with nulls.
func scrubNonFinite(t *Table) *Table {
	out := t.Clone()
	for i := range out.rows {
		for j, v := range out.rows[i] {
			if v.Kind() == KindNumber && !v.IsFinite() {
				out.rows[i][j] = Null()
			}
		}
	}
	return out
}

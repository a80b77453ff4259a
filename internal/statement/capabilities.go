package statement

// Capabilities describes which recognised columns a table carries. It is
// computed once when a table enters the pipeline and handed to every stage.
type Capabilities struct {
	HasNarration   bool
	HasDescription bool
	HasCategory    bool
	HasDate        bool
	HasDebitAmount bool

	// AmountColumn is "amount" when present, else "debit amount", else "".
	AmountColumn string
}

// Detect inspects the columns of t.
func Detect(t *Table) Capabilities {
	caps := Capabilities{
		HasNarration:   t.Has(ColNarration),
		HasDescription: t.Has(ColDescription),
		HasCategory:    t.Has(ColCategory),
		HasDate:        t.Has(ColDate),
		HasDebitAmount: t.Has(ColDebitAmount),
	}
	switch {
	case t.Has(ColAmount):
		caps.AmountColumn = ColAmount
	case caps.HasDebitAmount:
		caps.AmountColumn = ColDebitAmount
	}
	return caps
}

func (c Capabilities) HasAmount() bool { return c.AmountColumn != "" }

// MerchantColumn is the free-text column merchants are grouped by:
// description when present, else narration, else "".
func (c Capabilities) MerchantColumn() string {
	switch {
	case c.HasDescription:
		return ColDescription
	case c.HasNarration:
		return ColNarration
	default:
		return ""
	}
}

package statement

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func categories(t *testing.T, tbl *Table) []string {
	t.Helper()
	out := make([]string, tbl.Len())
	for i := range out {
		out[i] = tbl.Value(i, ColCategory).String()
	}
	return out
}

func TestIsUnassigned(t *testing.T) {
	assert.True(t, IsUnassigned(Null()))
	assert.True(t, IsUnassigned(Text("")))
	assert.True(t, IsUnassigned(Text(Unclassified)))
	assert.False(t, IsUnassigned(Text("unclassified")))
	assert.False(t, IsUnassigned(Text("Rent")))
}

func TestDefaultRules_Compile(t *testing.T) {
	rules := DefaultRules()
	require.Len(t, rules, 22)
	assert.Equal(t, "Salary", rules[0].Category)
	assert.Equal(t, "Reimbursement", rules[len(rules)-1].Category)

	// callers cannot reorder the shared list
	rules[0], rules[1] = rules[1], rules[0]
	assert.Equal(t, "Salary", DefaultRules()[0].Category)
}

func TestEngine_FirstMatchWins(t *testing.T) {
	rules := RuleSet{
		MustRule(`foo`, "First"),
		MustRule(`foo|bar`, "Second"),
	}
	tbl := NewTable([]string{ColNarration}, []Row{
		{Text("foobar")},
		{Text("bar")},
		{Text("baz")},
	})

	out, stats := NewEngine(rules).Apply(tbl, Detect(tbl))

	assert.Equal(t, []string{"First", "Second", Unclassified}, categories(t, out))
	assert.Equal(t, Stats{ByRule: 2, Defaulted: 1}, stats)
}

func TestEngine_DefaultRuleOrdering(t *testing.T) {
	tests := []struct {
		narration string
		want      string
	}{
		// car (Transport) is listed before pizza (Eat out)
		{narration: "pizza car", want: "Transport"},
		{narration: "gym membership", want: "Self Care"},
		{narration: "stonewain parking", want: "Parking"},
		{narration: "stonewain salary pay", want: "Salary"},
		{narration: "bookmyshow tickets", want: "Learning & Development"},
		{narration: "atm cash", want: "Cash Withdrawal"},
		{narration: "birthday gift", want: "Gifts"},
	}

	engine := NewEngine(DefaultRules())
	for _, tt := range tests {
		t.Run(tt.narration, func(t *testing.T) {
			tbl := NewTable([]string{ColNarration}, []Row{{Text(tt.narration)}})
			out, _ := engine.Apply(tbl, Detect(tbl))
			assert.Equal(t, []string{tt.want}, categories(t, out))
		})
	}
}

func TestEngine_NeverOverwritesAssigned(t *testing.T) {
	tbl := NewTable([]string{ColNarration, ColCategory}, []Row{
		{Text("pizza"), Text("Rent")},
		{Text("pizza"), Text("unclassified")},
		{Text("pizza"), Text(Unclassified)},
		{Text("pizza"), Text("")},
		{Text("pizza"), Null()},
	})

	out, stats := NewEngine(DefaultRules()).Apply(tbl, Detect(tbl))

	assert.Equal(t, []string{"Rent", "unclassified", "Eat out", "Eat out", "Eat out"}, categories(t, out))
	assert.Equal(t, 2, stats.Preassigned)
}

func TestEngine_DebitFallback(t *testing.T) {
	tbl := NewTable([]string{ColNarration, ColDebitAmount}, []Row{
		{Text("xyz"), Number(150)},
		{Text("xyz"), Number(199.99)},
		{Text("xyz"), Number(200)},
		{Text("xyz"), Number(-5)},
		{Null(), Number(50)},
		{Text("xyz"), Null()},
		{Text("zomato"), Number(500)},
	})

	out, stats := NewEngine(DefaultRules()).Apply(tbl, Detect(tbl))

	assert.Equal(t, []string{
		FallbackCategory, FallbackCategory, Unclassified, Unclassified,
		FallbackCategory, Unclassified, "Eat out",
	}, categories(t, out))
	assert.Equal(t, 3, stats.ByFallback)
}

func TestEngine_Idempotent(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("Narration,Debit Amount,Category\n" +
		"zomato order,250,\n" +
		"random shop,50,\n" +
		"random shop,5000,\n" +
		"landlord,9000,Rent\n"))
	require.NoError(t, err)
	caps := Detect(tbl)
	engine := NewEngine(DefaultRules())

	first, _ := engine.Apply(Normalize(tbl, caps), caps)
	second, _ := engine.Apply(first, caps)

	assert.Equal(t, categories(t, first), categories(t, second))
	assert.Equal(t, first.Records(), second.Records())
}

func TestEngine_AddsCategoryColumn(t *testing.T) {
	tbl := NewTable([]string{ColNarration}, []Row{{Text("insurance premium")}})
	out, _ := NewEngine(DefaultRules()).Apply(tbl, Detect(tbl))

	assert.False(t, tbl.Has(ColCategory))
	assert.Equal(t, []string{ColNarration, ColCategory}, out.Columns())
	assert.Equal(t, []string{"Insurance"}, categories(t, out))
}

func TestCategorizeByKeyword(t *testing.T) {
	kw := DefaultKeywords()
	assert.Equal(t, "Food & Dining", CategorizeByKeyword(kw, "starbucks reserve"))
	assert.Equal(t, "Shopping", CategorizeByKeyword(kw, "AMAZON Marketplace"))
	assert.Equal(t, "Transportation", CategorizeByKeyword(kw, "uber *trip"))
	assert.Equal(t, "Health & Wellness", CategorizeByKeyword(kw, "pure gym"))
	assert.Equal(t, "Subscriptions", CategorizeByKeyword(kw, "spotify"))
	assert.Equal(t, Uncategorized, CategorizeByKeyword(kw, "landlord"))
}

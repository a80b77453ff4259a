package statement

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Rule assigns Category to narrations matching Pattern.
type Rule struct {
	Pattern  *regexp.Regexp
	Category string
}

// RuleSet is an ordered rule list. Earlier rules take priority.
type RuleSet []Rule

// NewRule compiles pattern into a rule for category.
func NewRule(pattern, category string) (Rule, error) {
	if strings.TrimSpace(category) == "" {
		return Rule{}, fmt.Errorf("rule %q: empty category", pattern)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", pattern, err)
	}
	return Rule{Pattern: re, Category: category}, nil
}

// MustRule is like NewRule but panics on an invalid pattern.
func MustRule(pattern, category string) Rule {
	r, err := NewRule(pattern, category)
	if err != nil {
		panic(err)
	}
	return r
}

// Match returns the category of the first rule matching narration.
func (rs RuleSet) Match(narration string) (string, bool) {
	for _, r := range rs {
		if r.Pattern.MatchString(narration) {
			return r.Category, true
		}
	}
	return "", false
}

var defaultRules = sync.OnceValue(func() RuleSet {
	return RuleSet{
		MustRule(`stonewain.*pay|pay.*stonewain`, "Salary"),
		MustRule(`stonewain.*park|park.*stonewain|parking`, "Parking"),
		MustRule(`fuel|car|harpreet bhar|irctc|cm auto|cab|cycle|train|alto|fronx|toll|transport|uber`, "Transport"),
		MustRule(`dinner|lunch|icecream|pizza|cake|haldiram|zomato|swiggy|tea|fries|kheer|dosa|royal sweet|snack|jamun|kulcha|chaat|gappe|gappa|momo|food|juice|shake|donut|soup|restaurant`, "Eat out"),
		MustRule(`manavmangalsmartscho`, "Child Education"),
		MustRule(`fiffin`, "Essentials"),
		MustRule(`paytmiccl|indianesign|indian clearing corp|ppf|fd through mobile|investment`, "Investments"),
		MustRule(`sewerage|jtpl|resident welfare`, "Society Maintenance"),
		MustRule(`insurance`, "Insurance"),
		MustRule(`grocery|smart bazaar|blinkit|vegetable|sweet|fruit|mandeep kumar|sunscreen|rakhi|indane|veg|onion|egg|fish|chicken|curd|boondi|paneer|mirch|pepper|bread|apple|banana|orange|anaar|grape|oil|flour|aata|atta|milk|jaggery|all out|chawal|dal`, "Grocery"),
		MustRule(`shoe|cloth|towel|jean|shirt|flipflop|myntra|crocs`, "Clothing"),
		MustRule(`atm|atw`, "Cash Withdrawal"),
		MustRule(`transfer`, "Fund Transfer"),
		MustRule(`medicine|lab tests|tabs`, "Medicals"),
		MustRule(`hair cut|salon|beard|gym`, "Self Care"),
		MustRule(`airtel|jio|internet|air fiber`, "Internet/Subscriptions"),
		MustRule(`door|pot|mirror|table|repair|urbancompany|ac service|inverter|bath|lamp|pspcl|water tank|wire|pure it|paint|racks|wash basin|gutter|capacitor|grass|appliance`, "House Maintenance"),
		MustRule(`ib billpay dr-hdfc92|si-tad`, "Credit Card"),
		MustRule(`book`, "Learning & Development"),
		MustRule(`bookmyshow|gadget|toy|ride|cracker|travel`, "Entertainment"),
		MustRule(`birthday|gift`, "Gifts"),
		MustRule(`reimbursement`, "Reimbursement"),
	}
})

// DefaultRules returns the built-in rule list. The list is compiled once;
// callers get their own slice header.
func DefaultRules() RuleSet {
	rules := defaultRules()
	out := make(RuleSet, len(rules))
	copy(out, rules)
	return out
}

// KeywordCategory maps plain keywords to a category for statements that
// carry a description but no narration column.
type KeywordCategory struct {
	Category string
	Keywords []string
}

// Uncategorized is what the keyword categorizer assigns when nothing matches.
const Uncategorized = "Uncategorized"

// DefaultKeywords returns the built-in keyword table, in priority order.
func DefaultKeywords() []KeywordCategory {
	return []KeywordCategory{
		{Category: "Food & Dining", Keywords: []string{"starbucks", "coffee"}},
		{Category: "Shopping", Keywords: []string{"amazon", "target"}},
		{Category: "Transportation", Keywords: []string{"uber", "lyft"}},
		{Category: "Health & Wellness", Keywords: []string{"gym", "fitness"}},
		{Category: "Subscriptions", Keywords: []string{"netflix", "spotify"}},
	}
}

// CategorizeByKeyword returns the first category with a keyword contained in
// description, or Uncategorized.
func CategorizeByKeyword(table []KeywordCategory, description string) string {
	desc := strings.ToLower(description)
	for _, kc := range table {
		for _, kw := range kc.Keywords {
			if strings.Contains(desc, kw) {
				return kc.Category
			}
		}
	}
	return Uncategorized
}

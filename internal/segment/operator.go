package segment

import "strings"

// Operator is the closed set of condition operators. Which ones apply, and
// what they mean, depends on the field category: less_than is a numeric
// comparison on custom fields and "less than N days ago" on date fields.
type Operator int

// Wire operators. OpUnknown stands for any name outside the vocabulary.
const (
	OpUnknown Operator = iota
	OpEquals
	OpNotEquals
	OpContains
	OpNotContains
	OpIsUnknown
	OpHasAnyValue
	OpIn
	OpNotIn
	OpGreaterThan
	OpLessThan
	OpBetween
	OpOn
	OpExactly
	OpAfter
	OpBefore
	OpMoreThan
)

var operatorNames = map[Operator]string{
	OpEquals:      "equals",
	OpNotEquals:   "not_equals",
	OpContains:    "contains",
	OpNotContains: "not_contains",
	OpIsUnknown:   "is_unknown",
	OpHasAnyValue: "has_any_value",
	OpIn:          "in",
	OpNotIn:       "not_in",
	OpGreaterThan: "greater_than",
	OpLessThan:    "less_than",
	OpBetween:     "between",
	OpOn:          "on",
	OpExactly:     "exactly",
	OpAfter:       "after",
	OpBefore:      "before",
	OpMoreThan:    "more_than",
}

var operatorsByName = func() map[string]Operator {
	m := make(map[string]Operator, len(operatorNames))
	for op, name := range operatorNames {
		m[name] = op
	}
	return m
}()

// ParseOperator returns OpUnknown for names outside the vocabulary.
func ParseOperator(name string) Operator {
	if op, ok := operatorsByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return op
	}
	return OpUnknown
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return "unknown"
}

// OperatorSet is the closed vocabulary of one field category.
type OperatorSet map[Operator]struct{}

func newOperatorSet(sets ...[]Operator) OperatorSet {
	out := make(OperatorSet)
	for _, ops := range sets {
		for _, op := range ops {
			out[op] = struct{}{}
		}
	}
	return out
}

func (s OperatorSet) Has(op Operator) bool {
	_, ok := s[op]
	return ok
}

var (
	textVocabulary = []Operator{OpEquals, OpNotEquals, OpContains, OpNotContains, OpIsUnknown, OpHasAnyValue, OpIn, OpNotIn}
	dateVocabulary = []Operator{OpOn, OpExactly, OpAfter, OpBefore, OpMoreThan, OpLessThan, OpGreaterThan}

	TextOperators   = newOperatorSet(textVocabulary)
	TagOperators    = newOperatorSet(textVocabulary)
	DateOperators   = newOperatorSet(dateVocabulary, []Operator{OpIsUnknown, OpHasAnyValue})
	CustomOperators = newOperatorSet(textVocabulary, dateVocabulary, []Operator{OpBetween})
)

// Operators returns the vocabulary of c, or nil for categories that are not
// addressed by conditions.
func (c Category) Operators() OperatorSet {
	switch c {
	case CategoryText:
		return TextOperators
	case CategoryDate:
		return DateOperators
	case CategoryCustom:
		return CustomOperators
	case CategoryTags:
		return TagOperators
	default:
		return nil
	}
}

// OperatorFor parses name within category c. A name outside every
// vocabulary takes the category default, contains, except on dates which
// have none. A known operator that c does not accept is reported false.
func OperatorFor(c Category, name string) (Operator, bool) {
	set := c.Operators()
	op := ParseOperator(name)
	if op == OpUnknown && c != CategoryDate {
		op = OpContains
	}
	return op, set.Has(op)
}

// isRelative reports whether a numeric value means "N days ago".
func (o Operator) isRelative() bool {
	switch o {
	case OpMoreThan, OpExactly, OpLessThan:
		return true
	default:
		return false
	}
}

package segment

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind tags a predicate node: a junction, the empty match or a leaf test.
type Kind int

const (
	KindAnd Kind = iota + 1
	KindOr
	KindNone
	KindEquals
	KindNotEquals
	KindContains
	KindNotContains
	KindEmpty
	KindPresent
	KindRange
	KindIn
	KindNotIn
)

func (k Kind) String() string {
	switch k {
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindNone:
		return "none"
	case KindEquals:
		return "equals"
	case KindNotEquals:
		return "not_equals"
	case KindContains:
		return "contains"
	case KindNotContains:
		return "not_contains"
	case KindEmpty:
		return "empty"
	case KindPresent:
		return "present"
	case KindRange:
		return "range"
	case KindIn:
		return "in"
	case KindNotIn:
		return "not_in"
	default:
		return "unknown"
	}
}

// Bound is one end of a range. Value is a time.Time for dates and a float64
// for numbers.
type Bound struct {
	Value     interface{}
	Inclusive bool
}

// Predicate is a node of the compiled filter tree. Values are built by the
// constructors in this file and are never modified afterwards; translators
// only read them.
//
// Leaf semantics on the Tags field follow set membership: In matches when
// any tag is in the set, Contains when any tag contains the substring, and
// the negated forms when no tag does.
type Predicate struct {
	Kind     Kind
	Field    Field
	Value    interface{}
	Values   []interface{}
	Lower    *Bound
	Upper    *Bound
	Children []Predicate
}

// MatchAll is the predicate without constraints.
func MatchAll() Predicate {
	return Predicate{Kind: KindAnd}
}

// Nothing matches no contact.
func Nothing() Predicate {
	return Predicate{Kind: KindNone}
}

// AllOf joins predicates with AND. A single child is returned as is.
func AllOf(children ...Predicate) Predicate {
	if len(children) == 1 {
		return children[0]
	}
	return Predicate{Kind: KindAnd, Children: clonePredicates(children)}
}

// AnyOf joins predicates with OR. An empty disjunction matches nothing.
func AnyOf(children ...Predicate) Predicate {
	switch len(children) {
	case 0:
		return Nothing()
	case 1:
		return children[0]
	}
	return Predicate{Kind: KindOr, Children: clonePredicates(children)}
}

func Eq(f Field, value interface{}) Predicate {
	return Predicate{Kind: KindEquals, Field: f, Value: value}
}

func NotEq(f Field, value interface{}) Predicate {
	return Predicate{Kind: KindNotEquals, Field: f, Value: value}
}

// Contains is a case-insensitive literal substring test.
func Contains(f Field, substr string) Predicate {
	return Predicate{Kind: KindContains, Field: f, Value: substr}
}

func NotContains(f Field, substr string) Predicate {
	return Predicate{Kind: KindNotContains, Field: f, Value: substr}
}

// IsEmpty matches absent or null values; custom fields also treat the empty
// string as empty and tags treat an empty set as empty.
func IsEmpty(f Field) Predicate {
	return Predicate{Kind: KindEmpty, Field: f}
}

func IsPresent(f Field) Predicate {
	return Predicate{Kind: KindPresent, Field: f}
}

func In(f Field, values ...interface{}) Predicate {
	return Predicate{Kind: KindIn, Field: f, Values: cloneValues(values)}
}

func NotIn(f Field, values ...interface{}) Predicate {
	return Predicate{Kind: KindNotIn, Field: f, Values: cloneValues(values)}
}

// Range constrains a field between optional bounds.
func Range(f Field, lower, upper *Bound) Predicate {
	return Predicate{Kind: KindRange, Field: f, Lower: cloneBound(lower), Upper: cloneBound(upper)}
}

func GreaterThan(f Field, value interface{}) Predicate {
	return Range(f, &Bound{Value: value}, nil)
}

func LessThan(f Field, value interface{}) Predicate {
	return Range(f, nil, &Bound{Value: value})
}

func Between(f Field, lo, hi interface{}) Predicate {
	return Range(f, &Bound{Value: lo, Inclusive: true}, &Bound{Value: hi, Inclusive: true})
}

func (p Predicate) IsMatchAll() bool {
	return p.Kind == KindAnd && len(p.Children) == 0
}

func (p Predicate) IsLeaf() bool {
	switch p.Kind {
	case KindAnd, KindOr, KindNone:
		return false
	default:
		return true
	}
}

// Leaves returns the leaf predicates in depth-first order.
func (p Predicate) Leaves() []Predicate {
	if p.IsLeaf() {
		return []Predicate{p}
	}
	var leaves []Predicate
	for _, child := range p.Children {
		leaves = append(leaves, child.Leaves()...)
	}
	return leaves
}

// String renders the tree in a compact form used in logs and test output.
func (p Predicate) String() string {
	switch p.Kind {
	case KindAnd, KindOr:
		if p.IsMatchAll() {
			return "TRUE"
		}
		parts := make([]string, len(p.Children))
		for i, child := range p.Children {
			parts[i] = child.String()
		}
		return strings.ToUpper(p.Kind.String()) + "(" + strings.Join(parts, ", ") + ")"
	case KindNone:
		return "FALSE"
	case KindEquals:
		return fmt.Sprintf("%s == %s", p.Field, formatValue(p.Value))
	case KindNotEquals:
		return fmt.Sprintf("%s != %s", p.Field, formatValue(p.Value))
	case KindContains:
		return fmt.Sprintf("%s ~ %s", p.Field, formatValue(p.Value))
	case KindNotContains:
		return fmt.Sprintf("%s !~ %s", p.Field, formatValue(p.Value))
	case KindEmpty:
		return fmt.Sprintf("%s is empty", p.Field)
	case KindPresent:
		return fmt.Sprintf("%s is present", p.Field)
	case KindIn, KindNotIn:
		parts := make([]string, len(p.Values))
		for i, v := range p.Values {
			parts[i] = formatValue(v)
		}
		op := "in"
		if p.Kind == KindNotIn {
			op = "not in"
		}
		return fmt.Sprintf("%s %s [%s]", p.Field, op, strings.Join(parts, ", "))
	case KindRange:
		var parts []string
		if p.Lower != nil {
			op := ">"
			if p.Lower.Inclusive {
				op = ">="
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", p.Field, op, formatValue(p.Lower.Value)))
		}
		if p.Upper != nil {
			op := "<"
			if p.Upper.Inclusive {
				op = "<="
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", p.Field, op, formatValue(p.Upper.Value)))
		}
		return strings.Join(parts, " && ")
	default:
		return "?"
	}
}

func formatValue(v interface{}) string {
	switch value := v.(type) {
	case string:
		return strconv.Quote(value)
	case time.Time:
		return value.UTC().Format(timestampLayout)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}

func clonePredicates(in []Predicate) []Predicate {
	if len(in) == 0 {
		return nil
	}
	out := make([]Predicate, len(in))
	copy(out, in)
	return out
}

func cloneValues(in []interface{}) []interface{} {
	if len(in) == 0 {
		return nil
	}
	out := make([]interface{}, len(in))
	copy(out, in)
	return out
}

func cloneBound(b *Bound) *Bound {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

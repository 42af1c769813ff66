package segment

import (
	"fmt"
	"time"
)

// Drop reason codes, also used as metric labels.
const (
	DropUnknownField        = "unknown_field"
	DropUnsupportedOperator = "unsupported_operator"
	DropMissingValue        = "missing_value"
	DropInvalidValue        = "invalid_value"
	DropInvalidDate         = "invalid_date"
	DropInvalidRange        = "invalid_range"
)

// DropError describes a condition that produced no predicate.
type DropError struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Code     string `json:"code"`
	Reason   string `json:"reason"`
}

func (e *DropError) Error() string {
	return fmt.Sprintf("condition on %q (%s) dropped: %s", e.Field, e.Operator, e.Reason)
}

// Resolution is the outcome of resolving one condition: either a leaf
// predicate or the reason it was dropped.
type Resolution struct {
	Predicate Predicate
	Dropped   *DropError
}

func (r Resolution) OK() bool {
	return r.Dropped == nil
}

func resolved(p Predicate) Resolution {
	return Resolution{Predicate: p}
}

func dropped(c Condition, code, reason string) Resolution {
	return Resolution{Dropped: &DropError{
		Field:    c.Field,
		Operator: c.Operator,
		Code:     code,
		Reason:   reason,
	}}
}

// ResolveCondition turns one condition into one leaf predicate. It never
// panics on user input; anything it cannot interpret comes back dropped.
func ResolveCondition(c Condition, now time.Time) Resolution {
	field, ok := ClassifyField(c.Field)
	if !ok {
		return dropped(c, DropUnknownField, "field is not filterable")
	}

	op, ok := OperatorFor(field.Category, c.Operator)
	if !ok {
		return dropped(c, DropUnsupportedOperator, fmt.Sprintf("operator does not apply to %s fields", field.Category))
	}

	switch field.Category {
	case CategoryText:
		return resolveText(field, op, c)
	case CategoryDate:
		return resolveDate(field, op, c, now)
	case CategoryCustom:
		return resolveCustom(field, op, c, now)
	case CategoryTags:
		return resolveTags(field, op, c)
	default:
		return dropped(c, DropUnknownField, "field is not filterable")
	}
}

func resolveText(f Field, op Operator, c Condition) Resolution {
	switch op {
	case OpIsUnknown:
		return resolved(IsEmpty(f))
	case OpHasAnyValue:
		return resolved(IsPresent(f))
	case OpIn, OpNotIn:
		return resolveList(f, op, c, textElement)
	}

	s, ok := toText(c.Value)
	if !ok {
		return missingOrInvalid(c)
	}

	switch op {
	case OpEquals:
		return resolved(Eq(f, s))
	case OpNotEquals:
		return resolved(NotEq(f, s))
	case OpNotContains:
		return resolved(NotContains(f, s))
	case OpContains:
		return resolved(Contains(f, s))
	default:
		return unsupported(c)
	}
}

func resolveDate(f Field, op Operator, c Condition, now time.Time) Resolution {
	switch op {
	case OpIsUnknown:
		return resolved(IsEmpty(f))
	case OpHasAnyValue:
		return resolved(IsPresent(f))
	}

	return resolveDateBounds(f, op, c, now)
}

func resolveDateBounds(f Field, op Operator, c Condition, now time.Time) Resolution {
	lower, upper, err := DateBounds(op, c.Value, now)
	if err != nil {
		if c.Value == nil {
			return dropped(c, DropMissingValue, err.Error())
		}
		return dropped(c, DropInvalidDate, err.Error())
	}
	return resolved(Range(f, lower, upper))
}

func resolveCustom(f Field, op Operator, c Condition, now time.Time) Resolution {
	switch op {
	case OpIsUnknown:
		return resolved(IsEmpty(f))
	case OpHasAnyValue:
		return resolved(IsPresent(f))
	case OpIn, OpNotIn:
		return resolveList(f, op, c, toScalar)
	case OpGreaterThan, OpLessThan:
		n, ok := toNumber(c.Value)
		if !ok {
			return missingOrInvalid(c)
		}
		if op == OpGreaterThan {
			return resolved(GreaterThan(f, n))
		}
		return resolved(LessThan(f, n))
	case OpBetween:
		return resolveBetween(f, c)
	case OpOn, OpExactly, OpAfter, OpBefore, OpMoreThan:
		return resolveDateBounds(f, op, c, now)
	case OpEquals, OpNotEquals:
		v, ok := toScalar(c.Value)
		if !ok {
			return missingOrInvalid(c)
		}
		if op == OpEquals {
			return resolved(Eq(f, v))
		}
		return resolved(NotEq(f, v))
	case OpContains, OpNotContains:
	default:
		return unsupported(c)
	}

	s, ok := toText(c.Value)
	if !ok {
		return missingOrInvalid(c)
	}
	if op == OpNotContains {
		return resolved(NotContains(f, s))
	}
	return resolved(Contains(f, s))
}

// resolveBetween needs a two element [min, max] array whose elements are
// both numbers or both dates. Date bounds cover the whole first and last day.
func resolveBetween(f Field, c Condition) Resolution {
	items, ok := c.Value.([]interface{})
	if !ok || len(items) != 2 {
		return dropped(c, DropInvalidRange, "between requires a [min, max] array")
	}

	if lo, ok := toNumber(items[0]); ok {
		hi, ok := toNumber(items[1])
		if !ok {
			return dropped(c, DropInvalidRange, "between bounds must share a type")
		}
		return resolved(Between(f, lo, hi))
	}

	from, err := ParseInstant(items[0])
	if err != nil {
		return dropped(c, DropInvalidRange, err.Error())
	}
	to, err := ParseInstant(items[1])
	if err != nil {
		return dropped(c, DropInvalidRange, err.Error())
	}
	return resolved(Between(f, DayOf(from).Start, DayOf(to).End))
}

func resolveTags(f Field, op Operator, c Condition) Resolution {
	switch op {
	case OpIsUnknown:
		return resolved(IsEmpty(f))
	case OpHasAnyValue:
		return resolved(IsPresent(f))
	case OpIn, OpNotIn:
		return resolveList(f, op, c, textElement)
	}

	s, ok := toText(c.Value)
	if !ok {
		return missingOrInvalid(c)
	}

	switch op {
	case OpEquals:
		return resolved(In(f, s))
	case OpNotEquals:
		return resolved(NotIn(f, s))
	case OpNotContains:
		return resolved(NotContains(f, s))
	case OpContains:
		return resolved(Contains(f, s))
	default:
		return unsupported(c)
	}
}

func resolveList(f Field, op Operator, c Condition, convert func(interface{}) (interface{}, bool)) Resolution {
	values, ok := toList(c.Value, convert)
	if !ok {
		return dropped(c, DropInvalidValue, "expected a list of scalar values")
	}
	if len(values) == 0 {
		return dropped(c, DropInvalidValue, "list is empty")
	}
	if op == OpIn {
		return resolved(In(f, values...))
	}
	return resolved(NotIn(f, values...))
}

func unsupported(c Condition) Resolution {
	return dropped(c, DropUnsupportedOperator, "operator is not supported")
}

func missingOrInvalid(c Condition) Resolution {
	if c.Value == nil {
		return dropped(c, DropMissingValue, "value is required")
	}
	return dropped(c, DropInvalidValue, fmt.Sprintf("unsupported value %v", c.Value))
}

package segment

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// toNumber coerces JSON numbers and numeric strings. NaN and infinities are
// rejected.
func toNumber(value interface{}) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toText renders a scalar as the string a text field would be compared to.
func toText(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case time.Time:
		return v.UTC().Format(timestampLayout), true
	}
	if f, ok := toNumber(value); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// toScalar normalizes a custom field comparison value: numbers become
// float64, strings and booleans pass through, anything else is rejected.
func toScalar(value interface{}) (interface{}, bool) {
	switch v := value.(type) {
	case string, bool:
		return v, true
	case time.Time:
		return v.UTC(), true
	case nil:
		return nil, false
	}
	if f, ok := toNumber(value); ok {
		return f, true
	}
	return nil, false
}

// toList accepts a JSON array and converts each element with convert.
func toList(value interface{}, convert func(interface{}) (interface{}, bool)) ([]interface{}, bool) {
	var items []interface{}
	switch v := value.(type) {
	case []interface{}:
		items = v
	case []string:
		items = make([]interface{}, len(v))
		for i, s := range v {
			items[i] = s
		}
	default:
		return nil, false
	}

	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		converted, ok := convert(item)
		if !ok {
			return nil, false
		}
		out = append(out, converted)
	}
	return out, true
}

func textElement(value interface{}) (interface{}, bool) {
	s, ok := toText(value)
	return s, ok
}

// sameValue compares normalized scalars; times compare by instant.
func sameValue(a, b interface{}) bool {
	ta, aIsTime := a.(time.Time)
	tb, bIsTime := b.(time.Time)
	if aIsTime || bIsTime {
		return aIsTime && bIsTime && ta.Equal(tb)
	}
	return a == b
}

// compareValues orders two bound values of the same kind.
func compareValues(a, b interface{}) (int, bool) {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

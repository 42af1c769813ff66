package cel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"wacrm/internal/segment"
)

const (
	contactVar      = "contact"
	customFieldsKey = "customFields"
	tagsKey         = "tags"

	timestampLiteralLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Render turns a compiled predicate into a CEL expression over the contact
// variable. Custom field values are dynamically typed, so every comparison
// on them is guarded by a type check and a value of the wrong type simply
// does not match.
func Render(p segment.Predicate) (string, error) {
	switch p.Kind {
	case segment.KindAnd:
		if p.IsMatchAll() {
			return "true", nil
		}
		return renderJunction(p.Children, " && ")
	case segment.KindOr:
		if len(p.Children) == 0 {
			return "false", nil
		}
		return renderJunction(p.Children, " || ")
	case segment.KindNone:
		return "false", nil
	}

	if p.Field.Category == segment.CategoryTags {
		return renderTags(p)
	}
	return renderScalar(p)
}

func renderJunction(children []segment.Predicate, sep string) (string, error) {
	parts := make([]string, len(children))
	for i, child := range children {
		expr, err := Render(child)
		if err != nil {
			return "", err
		}
		parts[i] = "(" + expr + ")"
	}
	return strings.Join(parts, sep), nil
}

type accessor struct {
	present string
	value   string
	dynamic bool
}

func accessorFor(f segment.Field) accessor {
	if f.Category == segment.CategoryCustom {
		key := strconv.Quote(f.Name)
		return accessor{
			present: fmt.Sprintf("%s in %s.%s", key, contactVar, customFieldsKey),
			value:   fmt.Sprintf("%s.%s[%s]", contactVar, customFieldsKey, key),
			dynamic: true,
		}
	}
	value := contactVar + "." + f.Name
	return accessor{present: "has(" + value + ")", value: value}
}

func renderScalar(p segment.Predicate) (string, error) {
	a := accessorFor(p.Field)

	switch p.Kind {
	case segment.KindEquals, segment.KindNotEquals:
		lit, err := literal(p.Value)
		if err != nil {
			return "", err
		}
		match := a.conjoin(a.guard(p.Value), a.value+" == "+lit)
		if p.Kind == segment.KindNotEquals {
			return negate(match), nil
		}
		return match, nil

	case segment.KindContains, segment.KindNotContains:
		substr, ok := p.Value.(string)
		if !ok {
			return "", fmt.Errorf("substring test on %s needs a string, got %T", p.Field, p.Value)
		}
		match := a.conjoin("type("+a.value+") == string", a.value+".matches("+substringPattern(substr)+")")
		if p.Kind == segment.KindNotContains {
			return negate(match), nil
		}
		return match, nil

	case segment.KindEmpty:
		if a.dynamic {
			return fmt.Sprintf("!(%s) || %s == \"\"", a.present, a.value), nil
		}
		return "!" + a.present, nil

	case segment.KindPresent:
		if a.dynamic {
			return fmt.Sprintf("%s && %s != \"\"", a.present, a.value), nil
		}
		return a.present, nil

	case segment.KindRange:
		return renderRange(a, p)

	case segment.KindIn, segment.KindNotIn:
		list, err := listLiteral(p.Values)
		if err != nil {
			return "", err
		}
		match := a.conjoin(a.value + " in " + list)
		if p.Kind == segment.KindNotIn {
			return negate(match), nil
		}
		return match, nil
	}

	return "", fmt.Errorf("cannot render %s predicate on %s", p.Kind, p.Field)
}

func renderRange(a accessor, p segment.Predicate) (string, error) {
	var terms []string
	var sample interface{}

	if p.Lower != nil {
		lit, err := literal(p.Lower.Value)
		if err != nil {
			return "", err
		}
		op := " > "
		if p.Lower.Inclusive {
			op = " >= "
		}
		terms = append(terms, a.value+op+lit)
		sample = p.Lower.Value
	}
	if p.Upper != nil {
		lit, err := literal(p.Upper.Value)
		if err != nil {
			return "", err
		}
		op := " < "
		if p.Upper.Inclusive {
			op = " <= "
		}
		terms = append(terms, a.value+op+lit)
		sample = p.Upper.Value
	}
	if len(terms) == 0 {
		return a.present, nil
	}

	return a.conjoin(append([]string{a.guard(sample)}, terms...)...), nil
}

func renderTags(p segment.Predicate) (string, error) {
	tags := contactVar + "." + tagsKey

	switch p.Kind {
	case segment.KindEmpty:
		return "size(" + tags + ") == 0", nil
	case segment.KindPresent:
		return "size(" + tags + ") > 0", nil
	case segment.KindContains, segment.KindNotContains:
		substr, ok := p.Value.(string)
		if !ok {
			return "", fmt.Errorf("substring test on tags needs a string, got %T", p.Value)
		}
		match := fmt.Sprintf("%s.exists(t, type(t) == string && t.matches(%s))", tags, substringPattern(substr))
		if p.Kind == segment.KindNotContains {
			return "!" + match, nil
		}
		return match, nil
	case segment.KindIn, segment.KindNotIn, segment.KindEquals, segment.KindNotEquals:
		values := p.Values
		if p.Kind == segment.KindEquals || p.Kind == segment.KindNotEquals {
			values = []interface{}{p.Value}
		}
		list, err := listLiteral(values)
		if err != nil {
			return "", err
		}
		match := fmt.Sprintf("%s.exists(t, t in %s)", tags, list)
		if p.Kind == segment.KindNotIn || p.Kind == segment.KindNotEquals {
			return "!" + match, nil
		}
		return match, nil
	}

	return "", fmt.Errorf("cannot render %s predicate on tags", p.Kind)
}

// conjoin prefixes terms with the presence test; empty terms are skipped.
func (a accessor) conjoin(terms ...string) string {
	parts := []string{a.present}
	for _, term := range terms {
		if term != "" {
			parts = append(parts, term)
		}
	}
	return strings.Join(parts, " && ")
}

// guard returns the type test a dynamic value must pass before it is
// compared with v.
func (a accessor) guard(v interface{}) string {
	if !a.dynamic {
		return ""
	}
	switch v.(type) {
	case string:
		return "type(" + a.value + ") == string"
	case float64:
		return "type(" + a.value + ") == double"
	case bool:
		return "type(" + a.value + ") == bool"
	case time.Time:
		return "type(" + a.value + ") == google.protobuf.Timestamp"
	default:
		return ""
	}
}

func negate(expr string) string {
	return "!(" + expr + ")"
}

func substringPattern(substr string) string {
	return strconv.Quote("(?i)" + regexp.QuoteMeta(substr))
}

func listLiteral(values []interface{}) (string, error) {
	parts := make([]string, len(values))
	for i, v := range values {
		lit, err := literal(v)
		if err != nil {
			return "", err
		}
		parts[i] = lit
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}

func literal(v interface{}) (string, error) {
	switch value := v.(type) {
	case nil:
		return "null", nil
	case string:
		return strconv.Quote(value), nil
	case bool:
		return strconv.FormatBool(value), nil
	case float64:
		s := strconv.FormatFloat(value, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s, nil
	case time.Time:
		return fmt.Sprintf("timestamp(%q)", value.UTC().Format(timestampLiteralLayout)), nil
	default:
		return "", fmt.Errorf("unsupported literal %T", v)
	}
}

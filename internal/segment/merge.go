package segment

import "time"

// mergeConjunction folds the leaves of one AND group so that every scalar
// field contributes at most one range, one membership set and one exclusion
// set. Substring, emptiness and tag leaves pass through untouched. Fields
// keep the position of their first leaf so the output is deterministic.
func mergeConjunction(leaves []Predicate) []Predicate {
	type slot struct {
		facets *fieldFacets
		leaf   Predicate
	}

	var slots []slot
	byField := make(map[Field]*fieldFacets)

	for _, leaf := range leaves {
		if !leaf.IsLeaf() || !leaf.Field.Scalar() {
			slots = append(slots, slot{leaf: leaf})
			continue
		}
		facets, ok := byField[leaf.Field]
		if !ok {
			facets = &fieldFacets{field: leaf.Field}
			byField[leaf.Field] = facets
			slots = append(slots, slot{facets: facets})
		}
		facets.add(leaf)
	}

	out := make([]Predicate, 0, len(leaves))
	for _, s := range slots {
		if s.facets == nil {
			out = append(out, s.leaf)
			continue
		}
		out = append(out, s.facets.build()...)
	}
	return out
}

type fieldFacets struct {
	field Field

	lower, upper *Bound
	rangeKind    string
	hasRange     bool

	allowed    []interface{}
	hasAllowed bool

	excluded []interface{}

	rest []Predicate
}

func (f *fieldFacets) add(p Predicate) {
	switch p.Kind {
	case KindRange:
		if !f.addRange(p.Lower, p.Upper) {
			f.rest = append(f.rest, p)
		}
	case KindEquals:
		f.intersect([]interface{}{p.Value})
	case KindIn:
		f.intersect(p.Values)
	case KindNotEquals:
		f.exclude([]interface{}{p.Value})
	case KindNotIn:
		f.exclude(p.Values)
	default:
		f.rest = append(f.rest, p)
	}
}

// addRange narrows the current range. It reports false when the new bounds
// cannot be compared with the existing ones (a date against a number).
func (f *fieldFacets) addRange(lower, upper *Bound) bool {
	kind := boundKind(lower, upper)
	if !f.hasRange {
		f.lower, f.upper, f.rangeKind, f.hasRange = cloneBound(lower), cloneBound(upper), kind, true
		return true
	}
	if kind != f.rangeKind {
		return false
	}

	newLower, ok := tighter(f.lower, lower, 1)
	if !ok {
		return false
	}
	newUpper, ok := tighter(f.upper, upper, -1)
	if !ok {
		return false
	}
	f.lower, f.upper = newLower, newUpper
	return true
}

// tighter picks the stricter of two bounds. direction is 1 for lower bounds
// (larger wins) and -1 for upper bounds (smaller wins). On equal values the
// exclusive bound wins.
func tighter(current, next *Bound, direction int) (*Bound, bool) {
	if current == nil {
		return cloneBound(next), true
	}
	if next == nil {
		return current, true
	}

	cmp, ok := compareValues(next.Value, current.Value)
	if !ok {
		return nil, false
	}
	switch {
	case cmp*direction > 0:
		return cloneBound(next), true
	case cmp == 0:
		return &Bound{Value: current.Value, Inclusive: current.Inclusive && next.Inclusive}, true
	default:
		return current, true
	}
}

func boundKind(bounds ...*Bound) string {
	for _, b := range bounds {
		if b == nil {
			continue
		}
		switch b.Value.(type) {
		case time.Time:
			return "time"
		case float64:
			return "number"
		}
	}
	return ""
}

func (f *fieldFacets) intersect(values []interface{}) {
	incoming := uniqueValues(values)
	if !f.hasAllowed {
		f.allowed, f.hasAllowed = incoming, true
		return
	}

	kept := f.allowed[:0:0]
	for _, v := range f.allowed {
		if containsValue(incoming, v) {
			kept = append(kept, v)
		}
	}
	f.allowed = kept
}

func (f *fieldFacets) exclude(values []interface{}) {
	for _, v := range values {
		if !containsValue(f.excluded, v) {
			f.excluded = append(f.excluded, v)
		}
	}
}

func (f *fieldFacets) build() []Predicate {
	var out []Predicate

	if f.hasAllowed {
		switch len(f.allowed) {
		case 0:
			out = append(out, Nothing())
		case 1:
			out = append(out, Eq(f.field, f.allowed[0]))
		default:
			out = append(out, In(f.field, f.allowed...))
		}
	}

	if f.hasRange {
		out = append(out, Range(f.field, f.lower, f.upper))
	}

	switch len(f.excluded) {
	case 0:
	case 1:
		out = append(out, NotEq(f.field, f.excluded[0]))
	default:
		out = append(out, NotIn(f.field, f.excluded...))
	}

	return append(out, f.rest...)
}

func uniqueValues(values []interface{}) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		if !containsValue(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func containsValue(values []interface{}, v interface{}) bool {
	for _, candidate := range values {
		if sameValue(candidate, v) {
			return true
		}
	}
	return false
}

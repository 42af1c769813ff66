package segment

// CombineGroup joins the resolved leaves of one condition group. AND groups
// go through the field merger first; OR groups keep every leaf as its own
// alternative. The boolean is false when no leaf survived, in which case
// the group must not constrain its parent at all.
func CombineGroup(op Combinator, leaves []Predicate) (Predicate, bool) {
	if len(leaves) == 0 {
		return Predicate{}, false
	}
	if op.Normalize() == CombinatorOr {
		return AnyOf(leaves...), true
	}
	return AllOf(mergeConjunction(leaves)...), true
}

// CombineGroups joins the predicates of the non-empty condition groups with
// the top-level group operator.
func CombineGroups(op Combinator, groups []Predicate) (Predicate, bool) {
	if len(groups) == 0 {
		return Predicate{}, false
	}
	if op.Normalize() == CombinatorOr {
		return AnyOf(groups...), true
	}
	return AllOf(groups...), true
}

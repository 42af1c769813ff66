package segments

import (
	"fmt"
	"strings"
	"time"

	"wacrm/internal/segment"
	pkgerrors "wacrm/pkg/errors"
)

// ValidateFilter checks that a filter parses and that every condition in it
// resolves. Saved segments are stricter than ad-hoc searches: a condition
// that would be dropped at search time is rejected here instead.
func ValidateFilter(filter Document, now time.Time) error {
	spec, err := filter.Specification()
	if err != nil {
		return pkgerrors.ErrValidation.WithCause(err).WithDetail("message", err.Error())
	}

	var dropped []segment.DropError
	for _, group := range spec.ConditionGroups {
		for _, condition := range group.Conditions {
			if res := segment.ResolveCondition(condition, now); !res.OK() {
				dropped = append(dropped, *res.Dropped)
			}
		}
	}
	if len(dropped) > 0 {
		return pkgerrors.ErrValidation.
			WithCause(&segment.UnresolvedConditionsError{Dropped: dropped}).
			WithDetail("message", "filter contains conditions that cannot be applied").
			WithDetail("conditions", dropped)
	}
	return nil
}

const maxNameLength = 255

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return pkgerrors.ErrValidation.WithDetail("message", "name is required")
	}
	if len(name) > maxNameLength {
		return pkgerrors.ErrValidation.WithDetail("message", fmt.Sprintf("name is longer than %d characters", maxNameLength))
	}
	return nil
}

func ValidateCreateSegment(req CreateSegmentRequest, now time.Time) error {
	if err := validateName(req.Name); err != nil {
		return err
	}
	return ValidateFilter(req.Filter, now)
}

func ValidateUpdateSegment(req UpdateSegmentRequest, now time.Time) error {
	if req.Name != nil {
		if err := validateName(*req.Name); err != nil {
			return err
		}
	}
	if req.Filter != nil {
		return ValidateFilter(req.Filter, now)
	}
	return nil
}

package segment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSpecification marks a filter body that is not structurally valid.
var ErrInvalidSpecification = errors.New("invalid filter specification")

// Combinator joins predicates inside a condition group or across groups.
type Combinator string

const (
	CombinatorAnd Combinator = "AND"
	CombinatorOr  Combinator = "OR"
)

// Normalize maps any spelling of OR to CombinatorOr and everything else to
// CombinatorAnd.
func (c Combinator) Normalize() Combinator {
	if strings.EqualFold(strings.TrimSpace(string(c)), string(CombinatorOr)) {
		return CombinatorOr
	}
	return CombinatorAnd
}

type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value,omitempty"`
}

type ConditionGroup struct {
	Operator   Combinator  `json:"operator,omitempty"`
	Conditions []Condition `json:"conditions"`
}

// Specification is the user-authored audience filter.
type Specification struct {
	Tags             []string         `json:"tags,omitempty"`
	WhatsappOptedIn  *bool            `json:"whatsappOptedIn,omitempty"`
	ContactGroupRefs []string         `json:"contactGroupRefs,omitempty"`
	GroupOperator    Combinator       `json:"groupOperator,omitempty"`
	ConditionGroups  []ConditionGroup `json:"conditionGroups,omitempty"`
}

// IsZero reports whether no structured filter was supplied.
func (s *Specification) IsZero() bool {
	return s == nil ||
		(len(s.Tags) == 0 &&
			s.WhatsappOptedIn == nil &&
			len(s.ContactGroupRefs) == 0 &&
			len(s.ConditionGroups) == 0)
}

// Scope identifies the caller a compilation runs for.
type Scope struct {
	OwnerID   string
	CompanyID string
}

// ParseSpecification decodes a JSON filter body. Numbers are kept as
// json.Number so relative day offsets and numeric comparisons do not lose
// precision. An empty body decodes to a zero Specification.
func ParseSpecification(data []byte) (*Specification, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Specification{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var spec Specification
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpecification, err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("%w: unexpected data after filter object", ErrInvalidSpecification)
	}

	return &spec, nil
}

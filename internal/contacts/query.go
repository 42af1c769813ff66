package contacts

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"wacrm/internal/segment"
)

// BuildQuery translates a compiled predicate into a MongoDB filter over the
// contacts collection. The match-all predicate becomes an empty filter.
func BuildQuery(p segment.Predicate) (bson.M, error) {
	switch p.Kind {
	case segment.KindAnd, segment.KindOr:
		if p.IsMatchAll() {
			return bson.M{}, nil
		}
		clauses := make(bson.A, 0, len(p.Children))
		for _, child := range p.Children {
			q, err := BuildQuery(child)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, q)
		}
		if p.Kind == segment.KindOr {
			return bson.M{"$or": clauses}, nil
		}
		return bson.M{"$and": clauses}, nil
	case segment.KindNone:
		return matchNothing(), nil
	}

	return buildLeaf(p)
}

func matchNothing() bson.M {
	return bson.M{"_id": bson.M{"$in": bson.A{}}}
}

func buildLeaf(p segment.Predicate) (bson.M, error) {
	path, err := fieldPath(p.Field)
	if err != nil {
		return nil, err
	}

	switch p.Kind {
	case segment.KindEquals:
		v, err := fieldValue(p.Field, p.Value)
		if err != nil {
			return nil, err
		}
		return bson.M{path: v}, nil
	case segment.KindNotEquals:
		v, err := fieldValue(p.Field, p.Value)
		if err != nil {
			return nil, err
		}
		return bson.M{path: bson.M{"$ne": v}}, nil
	case segment.KindContains:
		return bson.M{path: bson.M{"$regex": substringPattern(p.Value), "$options": "i"}}, nil
	case segment.KindNotContains:
		return bson.M{path: bson.M{"$not": primitive.Regex{Pattern: substringPattern(p.Value), Options: "i"}}}, nil
	case segment.KindEmpty:
		return emptyClause(p.Field, path), nil
	case segment.KindPresent:
		return presentClause(p.Field, path), nil
	case segment.KindRange:
		return rangeClause(path, p.Lower, p.Upper), nil
	case segment.KindIn, segment.KindNotIn:
		values, err := fieldValues(p.Field, p.Values)
		if err != nil {
			return nil, err
		}
		op := "$in"
		if p.Kind == segment.KindNotIn {
			op = "$nin"
		}
		return bson.M{path: bson.M{op: values}}, nil
	default:
		return nil, fmt.Errorf("unsupported predicate kind %s", p.Kind)
	}
}

func fieldPath(f segment.Field) (string, error) {
	switch f.Category {
	case segment.CategoryText, segment.CategoryDate, segment.CategoryTags, segment.CategoryFlag:
		return f.Name, nil
	case segment.CategoryCustom:
		return "customFields." + f.Name, nil
	case segment.CategoryIdentity:
		return "_id", nil
	default:
		return "", fmt.Errorf("field %s has no document path", f)
	}
}

// fieldValue converts contact ids to ObjectIDs; other values are stored as
// the predicate holds them.
func fieldValue(f segment.Field, v interface{}) (interface{}, error) {
	if f.Category != segment.CategoryIdentity {
		return v, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("contact id must be a string, got %T", v)
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid contact id %q: %w", s, err)
	}
	return id, nil
}

// fieldValues converts a value list. Malformed contact ids cannot match any
// document and are skipped.
func fieldValues(f segment.Field, values []interface{}) (bson.A, error) {
	out := make(bson.A, 0, len(values))
	for _, v := range values {
		converted, err := fieldValue(f, v)
		if err != nil {
			if f.Category == segment.CategoryIdentity {
				continue
			}
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func substringPattern(v interface{}) string {
	s, _ := v.(string)
	return regexp.QuoteMeta(s)
}

func emptyClause(f segment.Field, path string) bson.M {
	switch f.Category {
	case segment.CategoryCustom:
		return bson.M{path: bson.M{"$in": bson.A{nil, ""}}}
	case segment.CategoryTags:
		return bson.M{"$or": bson.A{
			bson.M{path: nil},
			bson.M{path: bson.M{"$size": 0}},
		}}
	default:
		return bson.M{path: nil}
	}
}

func presentClause(f segment.Field, path string) bson.M {
	switch f.Category {
	case segment.CategoryCustom:
		return bson.M{path: bson.M{"$nin": bson.A{nil, ""}}}
	case segment.CategoryTags:
		return bson.M{path + ".0": bson.M{"$exists": true}}
	default:
		return bson.M{path: bson.M{"$ne": nil}}
	}
}

func rangeClause(path string, lower, upper *segment.Bound) bson.M {
	cond := bson.M{}
	if lower != nil {
		op := "$gt"
		if lower.Inclusive {
			op = "$gte"
		}
		cond[op] = lower.Value
	}
	if upper != nil {
		op := "$lt"
		if upper.Inclusive {
			op = "$lte"
		}
		cond[op] = upper.Value
	}
	return bson.M{path: cond}
}

// ScopeFilter restricts a query to the caller's contacts.
func ScopeFilter(scope segment.Scope) bson.M {
	filter := bson.M{"ownerId": scope.OwnerID}
	if scope.CompanyID != "" {
		filter["companyId"] = scope.CompanyID
	}
	return filter
}

// Scoped ANDs the scope filter with q.
func Scoped(scope segment.Scope, q bson.M) bson.M {
	if len(q) == 0 {
		return ScopeFilter(scope)
	}
	return bson.M{"$and": bson.A{ScopeFilter(scope), q}}
}

package segment

import (
	"net/url"
	"sort"
	"strings"
)

// LegacyPredicate builds the flat query-parameter filter: every
// customField.<key>=<value> parameter becomes a substring test on that
// custom field, and all of them are ANDed. Keys are visited in sorted order.
func LegacyPredicate(params url.Values) Predicate {
	keys := make([]string, 0, len(params))
	for key := range params {
		if strings.HasPrefix(key, CustomFieldPrefix) && len(key) > len(CustomFieldPrefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var leaves []Predicate
	for _, key := range keys {
		field := Field{Category: CategoryCustom, Name: strings.TrimPrefix(key, CustomFieldPrefix)}
		for _, value := range params[key] {
			if strings.TrimSpace(value) == "" {
				continue
			}
			leaves = append(leaves, Contains(field, value))
		}
	}

	return AllOf(leaves...)
}

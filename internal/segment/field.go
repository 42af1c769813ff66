package segment

import "strings"

// CustomFieldPrefix introduces a key of the contact's custom field map.
const CustomFieldPrefix = "customField."

// Category decides which operators a field accepts and how its value is read.
type Category int

// Field categories. Flag and identity fields are only produced by the
// compiler itself, never by a condition.
const (
	CategoryText Category = iota + 1
	CategoryDate
	CategoryCustom
	CategoryTags
	CategoryFlag
	CategoryIdentity
)

func (c Category) String() string {
	switch c {
	case CategoryText:
		return "text"
	case CategoryDate:
		return "date"
	case CategoryCustom:
		return "custom"
	case CategoryTags:
		return "tags"
	case CategoryFlag:
		return "flag"
	case CategoryIdentity:
		return "identity"
	default:
		return "unknown"
	}
}

// Field is a classified contact attribute. For custom fields Name holds the
// key inside the custom field map.
type Field struct {
	Category Category
	Name     string
}

var (
	TagsField     = Field{Category: CategoryTags, Name: "tags"}
	OptInField    = Field{Category: CategoryFlag, Name: "whatsappOptedIn"}
	IdentityField = Field{Category: CategoryIdentity, Name: "id"}
)

func (f Field) String() string {
	if f.Category == CategoryCustom {
		return CustomFieldPrefix + f.Name
	}
	return f.Name
}

// Scalar reports whether the field holds at most one value per contact.
// Tags are a set, so conditions on them are never merged.
func (f Field) Scalar() bool {
	return f.Category != CategoryTags
}

// ClassifyField maps a condition field name onto a category. The boolean is
// false for names the compiler cannot filter on.
func ClassifyField(name string) (Field, bool) {
	switch name {
	case "name", "email", "phone":
		return Field{Category: CategoryText, Name: name}, true
	case "createdAt", "lastMessageAt":
		return Field{Category: CategoryDate, Name: name}, true
	case "tags":
		return TagsField, true
	}

	if key, ok := strings.CutPrefix(name, CustomFieldPrefix); ok && key != "" {
		return Field{Category: CategoryCustom, Name: key}, true
	}

	return Field{}, false
}

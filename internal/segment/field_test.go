package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyField(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		want     Field
		wantOK   bool
		wantText string
	}{
		{name: "name is text", field: "name", want: Field{Category: CategoryText, Name: "name"}, wantOK: true, wantText: "name"},
		{name: "email is text", field: "email", want: Field{Category: CategoryText, Name: "email"}, wantOK: true, wantText: "email"},
		{name: "phone is text", field: "phone", want: Field{Category: CategoryText, Name: "phone"}, wantOK: true, wantText: "phone"},
		{name: "createdAt is date", field: "createdAt", want: Field{Category: CategoryDate, Name: "createdAt"}, wantOK: true, wantText: "createdAt"},
		{name: "lastMessageAt is date", field: "lastMessageAt", want: Field{Category: CategoryDate, Name: "lastMessageAt"}, wantOK: true, wantText: "lastMessageAt"},
		{name: "custom field keeps key", field: "customField.city", want: Field{Category: CategoryCustom, Name: "city"}, wantOK: true, wantText: "customField.city"},
		{name: "custom key with dots", field: "customField.address.zip", want: Field{Category: CategoryCustom, Name: "address.zip"}, wantOK: true, wantText: "customField.address.zip"},
		{name: "tags", field: "tags", want: TagsField, wantOK: true, wantText: "tags"},
		{name: "empty custom key", field: "customField.", wantOK: false},
		{name: "unknown field", field: "nonexistent", wantOK: false},
		{name: "case matters", field: "Name", wantOK: false},
		{name: "opt-in flag is not a condition field", field: "whatsappOptedIn", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyField(tt.field)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantText, got.String())
		})
	}
}

func TestParseOperator(t *testing.T) {
	assert.Equal(t, OpEquals, ParseOperator("equals"))
	assert.Equal(t, OpHasAnyValue, ParseOperator(" HAS_ANY_VALUE "))
	assert.Equal(t, OpMoreThan, ParseOperator("more_than"))
	assert.Equal(t, OpUnknown, ParseOperator("starts_with"))
	assert.Equal(t, OpUnknown, ParseOperator(""))
	assert.Equal(t, "unknown", OpUnknown.String())
}

func TestOperatorFor(t *testing.T) {
	tests := []struct {
		category Category
		name     string
		want     Operator
		ok       bool
	}{
		{CategoryText, "equals", OpEquals, true},
		{CategoryText, "starts_with", OpContains, true},
		{CategoryText, "greater_than", OpGreaterThan, false},
		{CategoryText, "between", OpBetween, false},
		{CategoryTags, "in", OpIn, true},
		{CategoryTags, "", OpContains, true},
		{CategoryTags, "on", OpOn, false},
		{CategoryDate, "greater_than", OpGreaterThan, true},
		{CategoryDate, "less_than", OpLessThan, true},
		{CategoryDate, "contains", OpContains, false},
		{CategoryDate, "starts_with", OpUnknown, false},
		{CategoryCustom, "between", OpBetween, true},
		{CategoryCustom, "before", OpBefore, true},
		{CategoryCustom, "sounds_like", OpContains, true},
		{CategoryFlag, "equals", OpEquals, false},
	}

	for _, tt := range tests {
		t.Run(tt.category.String()+"/"+tt.name, func(t *testing.T) {
			op, ok := OperatorFor(tt.category, tt.name)
			assert.Equal(t, tt.want, op)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

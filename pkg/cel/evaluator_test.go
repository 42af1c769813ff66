package cel

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wacrm/internal/config"
	"wacrm/internal/contacts"
	"wacrm/internal/logger"
	"wacrm/internal/segment"
)

var now = time.Date(2025, 7, 20, 15, 30, 0, 0, time.UTC)

type staticGroups map[string][]string

func (s staticGroups) FindActiveGroups(_ context.Context, _ segment.Scope, refs []string) ([]segment.Group, error) {
	var out []segment.Group
	for _, ref := range refs {
		if members, ok := s[ref]; ok {
			out = append(out, segment.Group{ID: ref, MemberIDs: members})
		}
	}
	return out, nil
}

func compileBody(t *testing.T, body string) *Program {
	t.Helper()

	spec, err := segment.ParseSpecification([]byte(body))
	require.NoError(t, err)

	log := logger.NopLogger()
	cfg := config.SegmentationConfig{}
	groups := staticGroups{"g-empty": nil, "g-team": {"c1", "c2"}}
	compiler := segment.NewCompiler(
		segment.NewMembershipResolver(groups, cfg.Membership, log), cfg, log,
		segment.WithClock(func() time.Time { return now }),
	)

	compilation, err := compiler.Compile(context.Background(), segment.Request{Spec: spec})
	require.NoError(t, err)

	eval, err := NewEvaluator()
	require.NoError(t, err)

	program, err := eval.CompilePredicate(compilation.Predicate)
	require.NoError(t, err, "predicate %s", compilation.Predicate)
	return program
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestRender(t *testing.T) {
	text := segment.Field{Category: segment.CategoryText, Name: "name"}
	age := segment.Field{Category: segment.CategoryCustom, Name: "age"}

	tests := []struct {
		name string
		pred segment.Predicate
		want string
	}{
		{name: "match all", pred: segment.MatchAll(), want: "true"},
		{name: "nothing", pred: segment.Nothing(), want: "false"},
		{name: "text equals", pred: segment.Eq(text, "Ann"), want: `has(contact.name) && contact.name == "Ann"`},
		{name: "text empty", pred: segment.IsEmpty(text), want: `!has(contact.name)`},
		{
			name: "escaped substring",
			pred: segment.Contains(text, "a.b+"),
			want: `has(contact.name) && type(contact.name) == string && contact.name.matches("(?i)a\\.b\\+")`,
		},
		{
			name: "custom number",
			pred: segment.GreaterThan(age, float64(30)),
			want: `"age" in contact.customFields && type(contact.customFields["age"]) == double && contact.customFields["age"] > 30.0`,
		},
		{
			name: "tags substring",
			pred: segment.Contains(segment.TagsField, "vip"),
			want: `contact.tags.exists(t, type(t) == string && t.matches("(?i)vip"))`,
		},
		{
			name: "junction",
			pred: segment.AnyOf(segment.IsPresent(text), segment.Eq(segment.OptInField, true)),
			want: `(has(contact.name)) || (has(contact.whatsappOptedIn) && contact.whatsappOptedIn == true)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_UnsupportedLiteral(t *testing.T) {
	field := segment.Field{Category: segment.CategoryCustom, Name: "x"}
	_, err := Render(segment.Eq(field, []string{"nested"}))
	assert.Error(t, err)
}

func TestCompileExpression_RequiresBool(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.CompileExpression(`contact.name`)
	assert.Error(t, err)

	_, err = eval.CompileExpression(`invalid syntax here!!!`)
	assert.Error(t, err)

	program, err := eval.CompileExpression(`has(contact.name)`)
	require.NoError(t, err)
	assert.Equal(t, `has(contact.name)`, program.Expression())
}

func TestProgram_Matches(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		records map[string]map[string]interface{}
		want    map[string]bool
	}{
		{
			name: "on covers the whole UTC day",
			body: `{"conditionGroups":[{"conditions":[{"field":"createdAt","operator":"on","value":"2025-07-14"}]}]}`,
			records: map[string]map[string]interface{}{
				"day start":      {"createdAt": at("2025-07-14T00:00:00Z")},
				"day end":        {"createdAt": at("2025-07-14T23:59:59.999Z")},
				"next midnight":  {"createdAt": at("2025-07-15T00:00:00Z")},
				"previous night": {"createdAt": at("2025-07-13T23:59:59.999Z")},
			},
			want: map[string]bool{"day start": true, "day end": true, "next midnight": false, "previous night": false},
		},
		{
			name: "after excludes the named day",
			body: `{"conditionGroups":[{"conditions":[{"field":"createdAt","operator":"after","value":"2025-07-14"}]}]}`,
			records: map[string]map[string]interface{}{
				"day end":       {"createdAt": at("2025-07-14T23:59:59.999Z")},
				"next midnight": {"createdAt": at("2025-07-15T00:00:00Z")},
			},
			want: map[string]bool{"day end": false, "next midnight": true},
		},
		{
			name: "before excludes the named day",
			body: `{"conditionGroups":[{"conditions":[{"field":"lastMessageAt","operator":"before","value":"2025-07-14"}]}]}`,
			records: map[string]map[string]interface{}{
				"day start":      {"lastMessageAt": at("2025-07-14T00:00:00Z")},
				"previous night": {"lastMessageAt": at("2025-07-13T23:59:59.999Z")},
				"never messaged": {},
			},
			want: map[string]bool{"day start": false, "previous night": true, "never messaged": false},
		},
		{
			name: "more_than counts days back from now",
			body: `{"conditionGroups":[{"conditions":[{"field":"createdAt","operator":"more_than","value":30}]}]}`,
			records: map[string]map[string]interface{}{
				"29 days ago": {"createdAt": now.AddDate(0, 0, -29)},
				"31 days ago": {"createdAt": now.AddDate(0, 0, -31)},
			},
			want: map[string]bool{"29 days ago": false, "31 days ago": true},
		},
		{
			name: "tag substring is case-insensitive",
			body: `{"conditionGroups":[{"conditions":[{"field":"tags","operator":"contains","value":"vip"}]}]}`,
			records: map[string]map[string]interface{}{
				"tagged":   {"tags": []interface{}{"lead", "VIP-gold"}},
				"regular":  {"tags": []interface{}{"regular"}},
				"untagged": {},
			},
			want: map[string]bool{"tagged": true, "regular": false, "untagged": false},
		},
		{
			name: "and groups need every group",
			body: `{"groupOperator":"AND","conditionGroups":[
				{"conditions":[{"field":"email","operator":"contains","value":"acme"}]},
				{"conditions":[{"field":"name","operator":"equals","value":"Ann"}]}]}`,
			records: map[string]map[string]interface{}{
				"both":       {"email": "ann@acme.com", "name": "Ann"},
				"email only": {"email": "bob@acme.com", "name": "Bob"},
			},
			want: map[string]bool{"both": true, "email only": false},
		},
		{
			name: "or groups need any group",
			body: `{"groupOperator":"OR","conditionGroups":[
				{"conditions":[{"field":"email","operator":"contains","value":"acme"}]},
				{"conditions":[{"field":"name","operator":"equals","value":"Ann"}]}]}`,
			records: map[string]map[string]interface{}{
				"email only": {"email": "bob@acme.com", "name": "Bob"},
				"neither":    {"email": "bob@example.com", "name": "Bob"},
			},
			want: map[string]bool{"email only": true, "neither": false},
		},
		{
			name: "empty group selection matches nothing",
			body: `{"contactGroupRefs":["g-empty"]}`,
			records: map[string]map[string]interface{}{
				"anyone": {"id": "c1", "name": "Ann"},
			},
			want: map[string]bool{"anyone": false},
		},
		{
			name: "group members match by id",
			body: `{"contactGroupRefs":["g-team"],"whatsappOptedIn":true}`,
			records: map[string]map[string]interface{}{
				"member":         {"id": "c2", "whatsappOptedIn": true},
				"member opt-out": {"id": "c2", "whatsappOptedIn": false},
				"outsider":       {"id": "c3", "whatsappOptedIn": true},
			},
			want: map[string]bool{"member": true, "member opt-out": false, "outsider": false},
		},
		{
			name: "custom numeric comparison ignores other types",
			body: `{"conditionGroups":[{"conditions":[{"field":"customField.age","operator":"greater_than","value":30}]}]}`,
			records: map[string]map[string]interface{}{
				"older":   {"customFields": map[string]interface{}{"age": float64(31)}},
				"younger": {"customFields": map[string]interface{}{"age": float64(29)}},
				"text":    {"customFields": map[string]interface{}{"age": "31"}},
				"missing": {},
			},
			want: map[string]bool{"older": true, "younger": false, "text": false, "missing": false},
		},
		{
			name: "not_equals matches missing values",
			body: `{"conditionGroups":[{"conditions":[{"field":"name","operator":"not_equals","value":"Ann"}]}]}`,
			records: map[string]map[string]interface{}{
				"ann":     {"name": "Ann"},
				"bob":     {"name": "Bob"},
				"no name": {},
			},
			want: map[string]bool{"ann": false, "bob": true, "no name": true},
		},
		{
			name: "custom is_unknown treats empty string as unknown",
			body: `{"conditionGroups":[{"conditions":[{"field":"customField.city","operator":"is_unknown"}]}]}`,
			records: map[string]map[string]interface{}{
				"blank":   {"customFields": map[string]interface{}{"city": ""}},
				"missing": {"customFields": map[string]interface{}{}},
				"paris":   {"customFields": map[string]interface{}{"city": "Paris"}},
			},
			want: map[string]bool{"blank": true, "missing": true, "paris": false},
		},
		{
			name: "merged conditions keep the tightest bound",
			body: `{"conditionGroups":[{"conditions":[
				{"field":"createdAt","operator":"after","value":"2025-01-10"},
				{"field":"createdAt","operator":"after","value":"2025-01-20"}]}]}`,
			records: map[string]map[string]interface{}{
				"between": {"createdAt": at("2025-01-15T12:00:00Z")},
				"later":   {"createdAt": at("2025-01-21T00:00:00Z")},
			},
			want: map[string]bool{"between": false, "later": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program := compileBody(t, tt.body)
			for name, record := range tt.records {
				got, err := program.Matches(context.Background(), record)
				require.NoError(t, err, "record %q, expression %s", name, program.Expression())
				assert.Equal(t, tt.want[name], got, "record %q, expression %s", name, program.Expression())
			}
		})
	}
}

func TestProgram_MatchesDecodedContact(t *testing.T) {
	program := compileBody(t, `{"conditionGroups":[{"conditions":[
		{"field":"customField.renewal","operator":"on","value":"2025-07-14"}]}]}`)

	tests := []struct {
		renewal interface{}
		want    bool
	}{
		{"2025-07-14", true},
		{"2025-07-14T10:00:00Z", true},
		{"2025-07-15", false},
		{"next week", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.renewal), func(t *testing.T) {
			contact, err := contacts.ContactFromPayload(map[string]interface{}{
				"id":           "64b000000000000000000001",
				"ownerId":      "owner-1",
				"customFields": map[string]interface{}{"renewal": tt.renewal},
			})
			require.NoError(t, err)

			got, err := program.Matches(context.Background(), contact.ToRecord())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, program.Expression())
		})
	}
}

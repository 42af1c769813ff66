package segment

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 7, 20, 15, 30, 0, 0, time.UTC)

func TestDateBounds(t *testing.T) {
	tests := []struct {
		name  string
		op    Operator
		value interface{}
		want  string
	}{
		{
			name:  "on covers the whole day inclusively",
			op:    OpOn,
			value: "2025-07-14",
			want:  "createdAt >= 2025-07-14T00:00:00.000Z && createdAt <= 2025-07-14T23:59:59.999Z",
		},
		{
			name:  "on with a date-time uses its UTC day",
			op:    OpOn,
			value: "2025-07-14T22:30:00-05:00",
			want:  "createdAt >= 2025-07-15T00:00:00.000Z && createdAt <= 2025-07-15T23:59:59.999Z",
		},
		{
			name:  "on with epoch milliseconds",
			op:    OpOn,
			value: json.Number("1752494400000"),
			want:  "createdAt >= 2025-07-14T00:00:00.000Z && createdAt <= 2025-07-14T23:59:59.999Z",
		},
		{
			name:  "after starts past the end of the day",
			op:    OpAfter,
			value: "2025-01-01",
			want:  "createdAt > 2025-01-01T23:59:59.999Z",
		},
		{
			name:  "before ends at the start of the day",
			op:    OpBefore,
			value: "2025-01-01",
			want:  "createdAt < 2025-01-01T00:00:00.000Z",
		},
		{
			name:  "more_than relative days",
			op:    OpMoreThan,
			value: json.Number("30"),
			want:  "createdAt < 2025-06-20T23:59:59.999Z",
		},
		{
			name:  "less_than relative days",
			op:    OpLessThan,
			value: 7,
			want:  "createdAt > 2025-07-13T00:00:00.000Z",
		},
		{
			name:  "exactly relative days",
			op:    OpExactly,
			value: "1",
			want:  "createdAt >= 2025-07-19T00:00:00.000Z && createdAt <= 2025-07-19T23:59:59.999Z",
		},
		{
			name:  "more_than with an absolute date",
			op:    OpMoreThan,
			value: "2025-07-01",
			want:  "createdAt < 2025-07-01T23:59:59.999Z",
		},
		{
			name:  "offset without a colon",
			op:    OpOn,
			value: "2025-07-14T22:30:00-0500",
			want:  "createdAt >= 2025-07-15T00:00:00.000Z && createdAt <= 2025-07-15T23:59:59.999Z",
		},
		{
			name:  "zoneless date-time is read as UTC",
			op:    OpBefore,
			value: "2025-07-14 23:30:00",
			want:  "createdAt < 2025-07-14T00:00:00.000Z",
		},
		{
			name:  "human readable layout",
			op:    OpOn,
			value: "Jul 4, 2025",
			want:  "createdAt >= 2025-07-04T00:00:00.000Z && createdAt <= 2025-07-04T23:59:59.999Z",
		},
	}

	field := Field{Category: CategoryDate, Name: "createdAt"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lower, upper, err := DateBounds(tt.op, tt.value, fixedNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Range(field, lower, upper).String())
		})
	}
}

func TestDateBounds_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		op    Operator
		value interface{}
	}{
		{name: "nil value", op: OpOn, value: nil},
		{name: "blank string", op: OpAfter, value: "   "},
		{name: "garbage", op: OpBefore, value: "not a date"},
		{name: "non numeric relative", op: OpMoreThan, value: "abc"},
		{name: "huge relative offset", op: OpLessThan, value: 1e9},
		{name: "object value", op: OpOn, value: map[string]interface{}{"day": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DateBounds(tt.op, tt.value, fixedNow)
			assert.Error(t, err)
		})
	}
}

func TestDateBounds_RelativeSign(t *testing.T) {
	lower, upper, err := DateBounds(OpMoreThan, 30, fixedNow)
	require.NoError(t, err)
	require.Nil(t, lower)
	require.NotNil(t, upper)

	cutoff := upper.Value.(time.Time)
	createdDaysAgo := func(n int) time.Time { return fixedNow.AddDate(0, 0, -n) }

	assert.False(t, createdDaysAgo(29).Before(cutoff), "29 days ago must not match more_than 30")
	assert.True(t, createdDaysAgo(31).Before(cutoff), "31 days ago must match more_than 30")
}

func TestDateBounds_DayEdges(t *testing.T) {
	lower, upper, err := DateBounds(OpOn, "2025-07-14", fixedNow)
	require.NoError(t, err)

	start := lower.Value.(time.Time)
	end := upper.Value.(time.Time)

	assert.True(t, lower.Inclusive)
	assert.True(t, upper.Inclusive)
	assert.True(t, start.Equal(time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)))
	assert.True(t, end.Equal(time.Date(2025, 7, 14, 23, 59, 59, 999_000_000, time.UTC)))

	after, _, err := DateBounds(OpAfter, "2025-07-14", fixedNow)
	require.NoError(t, err)
	assert.False(t, after.Inclusive)
	assert.True(t, after.Value.(time.Time).Equal(end))

	_, before, err := DateBounds(OpBefore, "2025-07-14", fixedNow)
	require.NoError(t, err)
	assert.False(t, before.Inclusive)
	assert.True(t, before.Value.(time.Time).Equal(start))
}

func TestParseInstant(t *testing.T) {
	got, err := ParseInstant("2025-03-09")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)))

	got, err = ParseInstant("2025-03-09T10:15:00+02:00")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 9, 8, 15, 0, 0, time.UTC)))

	got, err = ParseInstant(float64(0))
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Unix(0, 0)))

	_, err = ParseInstant(true)
	assert.ErrorIs(t, err, errInvalidDate)

	_, err = ParseInstant(nil)
	assert.ErrorIs(t, err, errMissingValue)
}

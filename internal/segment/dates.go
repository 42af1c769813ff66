package segment

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	day = 24 * time.Hour
	// endOfDayOffset is 23:59:59.999, the last instant a millisecond-precision
	// store can hold for a day.
	endOfDayOffset = day - time.Millisecond
	// maxRelativeDays keeps now - N days inside time.Duration's range.
	maxRelativeDays = 100000

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	errMissingValue = errors.New("value is required")
	errInvalidDate  = errors.New("value is not a valid date")
)

// Day is one UTC calendar day.
type Day struct {
	Start time.Time
	End   time.Time
}

// DayOf returns the UTC day containing t: 00:00:00.000 to 23:59:59.999.
func DayOf(t time.Time) Day {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return Day{Start: start, End: start.Add(endOfDayOffset)}
}

// DateBounds converts a date operator and its raw value into range bounds.
// Relative mode applies when the operator is more_than, exactly or less_than
// and the value is numeric: the target day is the day of now minus N days.
// Otherwise the value is parsed as an absolute date.
func DateBounds(op Operator, value interface{}, now time.Time) (lower, upper *Bound, err error) {
	target, err := targetInstant(op, value, now)
	if err != nil {
		return nil, nil, err
	}

	d := DayOf(target)
	switch op {
	case OpOn, OpExactly:
		return &Bound{Value: d.Start, Inclusive: true}, &Bound{Value: d.End, Inclusive: true}, nil
	case OpAfter, OpGreaterThan:
		return &Bound{Value: d.End}, nil, nil
	case OpBefore:
		return nil, &Bound{Value: d.Start}, nil
	case OpMoreThan:
		return nil, &Bound{Value: d.End}, nil
	case OpLessThan:
		return &Bound{Value: d.Start}, nil, nil
	default:
		return nil, nil, fmt.Errorf("operator %s has no date semantics", op)
	}
}

func targetInstant(op Operator, value interface{}, now time.Time) (time.Time, error) {
	if op.isRelative() {
		if days, ok := toNumber(value); ok {
			if math.Abs(days) > maxRelativeDays {
				return time.Time{}, fmt.Errorf("relative offset of %v days is out of range", days)
			}
			return now.UTC().Add(-time.Duration(days * float64(day))), nil
		}
	}
	return ParseInstant(value)
}

// ParseInstant accepts a YYYY-MM-DD date (that day in UTC), an RFC 3339
// date-time, any other layout dateparse recognizes or a number of epoch
// milliseconds.
func ParseInstant(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, errMissingValue
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseDateString(v)
	}

	if millis, ok := toNumber(value); ok {
		if math.Abs(millis) > float64(math.MaxInt64)/2 {
			return time.Time{}, errInvalidDate
		}
		return time.UnixMilli(int64(millis)).UTC(), nil
	}

	return time.Time{}, errInvalidDate
}

func parseDateString(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, errMissingValue
	}

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}

	// Anything else: zoneless date-times are read as UTC.
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", errInvalidDate, raw)
	}
	return t.UTC(), nil
}

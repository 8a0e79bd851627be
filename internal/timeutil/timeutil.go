package timeutil

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a clock time without a date, stored as minutes since midnight.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "15:04" or "15:04:05" (seconds are dropped).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		t, err = time.Parse("15:04:05", s)
		if err != nil {
			return 0, fmt.Errorf("parse time of day %q: %w", s, err)
		}
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < 24*60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Combine attaches a time of day to the calendar date of d, in d's location.
func Combine(d time.Time, t TimeOfDay) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, d.Location())
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ISOWeekday returns the ISO-8601 weekday of t: Monday=1 .. Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Interval is a concrete [Start, End) span on the timeline.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Slice cuts [start, end] into consecutive sub-intervals of exactly duration,
// beginning at start. A trailing remainder shorter than duration is dropped,
// never emitted as a short interval.
func Slice(start, end time.Time, duration time.Duration) []Interval {
	if duration <= 0 || !end.After(start) {
		return nil
	}

	var out []Interval
	for cur := start; ; {
		next := cur.Add(duration)
		if next.After(end) {
			break
		}
		out = append(out, Interval{Start: cur, End: next})
		cur = next
	}
	return out
}

// Overlaps reports whether [aStart, aEnd] and [bStart, bEnd] intersect,
// treating both as closed intervals: spans that merely touch at a boundary
// count as overlapping. This is the conservative rule used when validating
// a provider's working intervals against each other; slot boundaries produced
// by Slice are half-open and back-to-back slots never conflict.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart <= bEnd && aEnd >= bStart
}

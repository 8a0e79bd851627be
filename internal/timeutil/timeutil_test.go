package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(9, 30), tod)
	assert.Equal(t, "09:30", tod.String())

	tod, err = ParseTimeOfDay("17:45:12")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(17, 45), tod)

	_, err = ParseTimeOfDay("9am")
	assert.Error(t, err)
}

func TestTimeOfDayJSONRoundTrip(t *testing.T) {
	tod := NewTimeOfDay(8, 5)
	data, err := tod.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"08:05"`, string(data))

	var parsed TimeOfDay
	require.NoError(t, parsed.UnmarshalJSON(data))
	assert.Equal(t, tod, parsed)
}

func TestCombine(t *testing.T) {
	day := time.Date(2024, 6, 10, 15, 22, 57, 0, time.UTC)
	got := Combine(day, NewTimeOfDay(9, 0))
	assert.Equal(t, time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), got)
}

func TestISOWeekday(t *testing.T) {
	// 2024-06-10 is a Monday, 2024-06-16 a Sunday.
	assert.Equal(t, 1, ISOWeekday(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 7, ISOWeekday(time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)))
}

func TestSliceMorningShift(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	parts := Slice(Combine(day, NewTimeOfDay(9, 0)), Combine(day, NewTimeOfDay(12, 0)), 30*time.Minute)

	require.Len(t, parts, 6)
	assert.Equal(t, Combine(day, NewTimeOfDay(9, 0)), parts[0].Start)
	assert.Equal(t, Combine(day, NewTimeOfDay(9, 30)), parts[0].End)
	assert.Equal(t, Combine(day, NewTimeOfDay(11, 30)), parts[5].Start)
	assert.Equal(t, Combine(day, NewTimeOfDay(12, 0)), parts[5].End)

	// Contiguous, all exactly 30 minutes
	for i, p := range parts {
		assert.Equal(t, 30*time.Minute, p.End.Sub(p.Start))
		if i > 0 {
			assert.Equal(t, parts[i-1].End, p.Start)
		}
	}
}

func TestSliceDropsShortRemainder(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	parts := Slice(Combine(day, NewTimeOfDay(9, 0)), Combine(day, NewTimeOfDay(9, 40)), 30*time.Minute)

	require.Len(t, parts, 1)
	assert.Equal(t, Combine(day, NewTimeOfDay(9, 0)), parts[0].Start)
	assert.Equal(t, Combine(day, NewTimeOfDay(9, 30)), parts[0].End)
}

func TestSliceCount(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		start, end TimeOfDay
		duration   time.Duration
		want       int
	}{
		{NewTimeOfDay(9, 0), NewTimeOfDay(17, 0), 60 * time.Minute, 8},
		{NewTimeOfDay(9, 0), NewTimeOfDay(9, 29), 30 * time.Minute, 0},
		{NewTimeOfDay(9, 0), NewTimeOfDay(9, 30), 30 * time.Minute, 1},
		{NewTimeOfDay(10, 0), NewTimeOfDay(12, 15), 45 * time.Minute, 3},
	}

	for _, tc := range cases {
		parts := Slice(Combine(day, tc.start), Combine(day, tc.end), tc.duration)
		assert.Len(t, parts, tc.want, "slice %s-%s by %s", tc.start, tc.end, tc.duration)
		for _, p := range parts {
			assert.False(t, p.End.After(Combine(day, tc.end)))
		}
	}
}

func TestSliceDegenerateInputs(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, Slice(Combine(day, NewTimeOfDay(12, 0)), Combine(day, NewTimeOfDay(9, 0)), 30*time.Minute))
	assert.Nil(t, Slice(Combine(day, NewTimeOfDay(9, 0)), Combine(day, NewTimeOfDay(9, 0)), 30*time.Minute))
	assert.Nil(t, Slice(Combine(day, NewTimeOfDay(9, 0)), Combine(day, NewTimeOfDay(12, 0)), 0))
}

func TestOverlapsClosedRule(t *testing.T) {
	cases := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     TimeOfDay
		want                           bool
	}{
		{"disjoint", NewTimeOfDay(9, 0), NewTimeOfDay(10, 0), NewTimeOfDay(11, 0), NewTimeOfDay(12, 0), false},
		{"contained", NewTimeOfDay(9, 0), NewTimeOfDay(12, 0), NewTimeOfDay(10, 0), NewTimeOfDay(11, 0), true},
		{"partial", NewTimeOfDay(9, 0), NewTimeOfDay(12, 0), NewTimeOfDay(11, 30), NewTimeOfDay(14, 0), true},
		{"touching boundaries conflict", NewTimeOfDay(9, 0), NewTimeOfDay(12, 0), NewTimeOfDay(12, 0), NewTimeOfDay(14, 0), true},
		{"symmetric", NewTimeOfDay(11, 30), NewTimeOfDay(14, 0), NewTimeOfDay(9, 0), NewTimeOfDay(12, 0), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
		})
	}
}

package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBusinessDaysBetween(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		want       int
	}{
		{"single weekday", "2024-03-04", "2024-03-04", 1},
		{"single saturday", "2024-03-09", "2024-03-09", 0},
		{"full week", "2024-03-04", "2024-03-10", 5},
		{"two weeks spanning weekend", "2024-03-07", "2024-03-18", 8},
		{"month of march 2024", "2024-03-01", "2024-03-31", 21},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := BusinessDaysBetween(day(c.start), day(c.end), DefaultWeekendPolicy())
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestBusinessDaysBetween_NeverExceedsCalendarDays(t *testing.T) {
	start := day("2024-01-01")
	for i := 0; i < 60; i++ {
		end := start.AddDate(0, 0, i)
		business, err := BusinessDaysBetween(start, end, DefaultWeekendPolicy())
		require.NoError(t, err)
		total, err := CalendarDaysBetween(start, end)
		require.NoError(t, err)
		assert.LessOrEqual(t, business, total)
		assert.Equal(t, i+1, total)
	}
}

func TestBusinessDaysBetween_InvalidRange(t *testing.T) {
	_, err := BusinessDaysBetween(day("2024-03-05"), day("2024-03-04"), DefaultWeekendPolicy())
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = CalendarDaysBetween(day("2024-03-05"), day("2024-03-04"))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestBusinessDaysBetween_Holidays(t *testing.T) {
	policy := DefaultWeekendPolicy().WithHolidays(day("2024-03-06"))
	got, err := BusinessDaysBetween(day("2024-03-04"), day("2024-03-08"), policy)
	require.NoError(t, err)
	assert.Equal(t, 4, got)

	// the original policy is untouched
	got, err = BusinessDaysBetween(day("2024-03-04"), day("2024-03-08"), DefaultWeekendPolicy())
	require.NoError(t, err)
	assert.Equal(t, 5, got)
}

func TestBusinessDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2024, 3, 4, 23, 30, 0, 0, time.UTC)
	end := time.Date(2024, 3, 5, 0, 15, 0, 0, time.UTC)
	got, err := BusinessDaysBetween(start, end, DefaultWeekendPolicy())
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestRangesOverlap(t *testing.T) {
	cases := []struct {
		a1, a2, b1, b2 string
		want           bool
	}{
		{"2024-03-01", "2024-03-05", "2024-03-05", "2024-03-10", true},
		{"2024-03-01", "2024-03-05", "2024-03-06", "2024-03-10", false},
		{"2024-03-01", "2024-03-31", "2024-03-10", "2024-03-12", true},
		{"2024-03-10", "2024-03-12", "2024-03-01", "2024-03-31", true},
		{"2024-03-10", "2024-03-12", "2024-03-01", "2024-03-09", false},
	}
	for _, c := range cases {
		got := RangesOverlap(day(c.a1), day(c.a2), day(c.b1), day(c.b2))
		if got != c.want {
			t.Errorf("RangesOverlap(%s..%s, %s..%s) = %v, want %v", c.a1, c.a2, c.b1, c.b2, got, c.want)
		}
	}
}

func TestPeriodBounds(t *testing.T) {
	first, last, err := PeriodBounds(2024, 2)
	require.NoError(t, err)
	assert.Equal(t, day("2024-02-01"), first)
	assert.Equal(t, day("2024-02-29"), last)

	first, last, err = PeriodBounds(2023, 12)
	require.NoError(t, err)
	assert.Equal(t, day("2023-12-01"), first)
	assert.Equal(t, day("2023-12-31"), last)

	_, _, err = PeriodBounds(2024, 13)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, _, err = PeriodBounds(2024, 0)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestDateOf(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	ts := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, day("2024-03-05"), DateOf(ts, jakarta))
	assert.Equal(t, day("2024-03-04"), DateOf(ts, nil))
}

func TestCountingRule(t *testing.T) {
	got, err := CountBusinessDays.Count(day("2024-03-08"), day("2024-03-11"), DefaultWeekendPolicy())
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	got, err = CountCalendarDays.Count(day("2024-03-08"), day("2024-03-11"), DefaultWeekendPolicy())
	require.NoError(t, err)
	assert.Equal(t, 4, got)

	_, err = CountingRule("fortnights").Count(day("2024-03-08"), day("2024-03-11"), DefaultWeekendPolicy())
	assert.Error(t, err)
}

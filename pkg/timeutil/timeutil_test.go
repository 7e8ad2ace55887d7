package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampusTZOffset(t *testing.T) {
	_, offset := Date(2026, 8, 30).Zone()
	assert.Equal(t, 5*3600+30*60, offset)
}

func TestStartAndEndOfDay(t *testing.T) {
	// 20:00 UTC on Aug 30 is already Aug 31 in campus time
	utc := time.Date(2026, 8, 30, 20, 0, 0, 0, time.UTC)

	start := StartOfDay(utc)
	assert.Equal(t, 31, start.Day())
	assert.Equal(t, 0, start.Hour())

	end := EndOfDay(utc)
	assert.Equal(t, 31, end.Day())
	assert.Equal(t, 23, end.Hour())
}

func TestIsSameDay(t *testing.T) {
	// 19:00 UTC and 23:00 UTC straddle campus midnight
	before := time.Date(2026, 8, 30, 17, 0, 0, 0, time.UTC)
	after := time.Date(2026, 8, 30, 19, 0, 0, 0, time.UTC)

	assert.False(t, IsSameDay(before, after))
	assert.True(t, IsSameDay(before, before.Add(time.Hour)))
}

func TestDaysBetween(t *testing.T) {
	from := Date(2026, 8, 28)
	to := Date(2026, 8, 30)

	assert.Equal(t, 2, DaysBetween(from, to))
	assert.Equal(t, -2, DaysBetween(to, from))
	assert.Equal(t, 0, DaysBetween(from, from.Add(23*time.Hour)))
}

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2026-08-30")
	require.NoError(t, err)

	assert.Equal(t, 2026, parsed.Year())
	assert.Equal(t, time.August, parsed.Month())
	assert.Equal(t, 30, parsed.Day())
	assert.Equal(t, CampusTZ, parsed.Location())

	_, err = ParseDate("30/08/2026")
	assert.Error(t, err)
}

func TestFormatDateStrConvertsToCampusTime(t *testing.T) {
	// 20:00 UTC on Aug 30 is 01:30 on Aug 31 in campus time
	utc := time.Date(2026, 8, 30, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-31", FormatDateStr(utc))
}

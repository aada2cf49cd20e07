package timeutil_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pspdems/dems-backend/pkg/timeutil"
)

func TestToISTOffset(t *testing.T) {
	utc := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	ist := timeutil.ToIST(utc)

	assert.Equal(t, 15, ist.Hour())
	assert.Equal(t, 30, ist.Minute())
	assert.True(t, ist.Equal(utc), "conversion changes display, not the instant")

	back := timeutil.ToUTC(ist)
	assert.Equal(t, time.UTC, back.Location())
	assert.True(t, back.Equal(utc))
}

func TestMidnight(t *testing.T) {
	late := time.Date(2026, time.September, 1, 23, 59, 59, 0, time.UTC)
	m := timeutil.Midnight(late)

	assert.Equal(t, 0, m.Hour())
	assert.Equal(t, 1, m.Day())
	assert.Equal(t, time.UTC, m.Location())
}

func TestDaysBetweenIgnoresPartialDays(t *testing.T) {
	a := time.Date(2026, time.September, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, time.September, 2, 1, 0, 0, 0, time.UTC)

	// Two hours apart on the clock, but one whole day apart at midnight.
	assert.Equal(t, 1, timeutil.DaysBetween(a, b))
	assert.Equal(t, -1, timeutil.DaysBetween(b, a))
	assert.Equal(t, 0, timeutil.DaysBetween(a, a))
}

package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspdems/dems-backend/internal/dems/service"
	"github.com/pspdems/dems-backend/pkg/timeutil"
)

func TestNextReminderInstant(t *testing.T) {
	// 08:00 IST on 1 Sep 2026.
	now := time.Date(2026, time.September, 1, 8, 0, 0, 0, timeutil.IST)

	next, err := service.NextReminderInstant(now, "09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 1, 9, 0, 0, 0, timeutil.IST).Unix(), next.Unix())

	// Already past today's slot: tomorrow.
	next, err = service.NextReminderInstant(now, "07:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 2, 7, 30, 0, 0, timeutil.IST).Unix(), next.Unix())

	// Exactly at the slot counts as past.
	next, err = service.NextReminderInstant(now, "08:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 2, 8, 0, 0, 0, timeutil.IST).Unix(), next.Unix())
}

func TestNextReminderInstantUTCInput(t *testing.T) {
	// 04:00 UTC is 09:30 IST, so a 09:00 slot has already passed.
	now := time.Date(2026, time.September, 1, 4, 0, 0, 0, time.UTC)

	next, err := service.NextReminderInstant(now, "09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 2, 9, 0, 0, 0, timeutil.IST).Unix(), next.Unix())
}

func TestNextReminderInstantRejectsBadInput(t *testing.T) {
	now := time.Now()

	_, err := service.NextReminderInstant(now, "not-a-time")
	assert.Error(t, err)

	_, err = service.NextReminderInstant(now, "25:00")
	assert.Error(t, err)

	_, err = service.NextReminderInstant(now, "10:75")
	assert.Error(t, err)

	// Trailing garbage after a valid prefix is not a valid HH:MM value.
	_, err = service.NextReminderInstant(now, "08:30junk")
	assert.Error(t, err)

	_, err = service.NextReminderInstant(now, "8:5:59")
	assert.Error(t, err)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pspdems/dems-backend/internal/dems/events"
	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/pkg/logger"
	"github.com/pspdems/dems-backend/pkg/timeutil"
)

// ReminderSettingsReader reads the reminder configuration.
type ReminderSettingsReader interface {
	Get(ctx context.Context) (*repository.ReminderSettings, error)
}

// ReminderScheduler fires the daily medical-check reminder at its configured
// wall-clock time, and runs the near-expiry alert scan on the same cycle.
// Settings are re-read before every wait so an admin edit takes effect on
// the next cycle, not after a restart.
type ReminderScheduler struct {
	settings  ReminderSettingsReader
	expiry    *ExpiryClassifier
	publisher *events.DemsEventPublisher
	fallback  string
	logger    *logger.Logger
	cancel    context.CancelFunc
}

// NewReminderScheduler creates a new reminder scheduler. fallback is the
// "HH:MM" send time used when no settings row exists or its value is bad.
func NewReminderScheduler(settings ReminderSettingsReader, expiry *ExpiryClassifier, publisher *events.DemsEventPublisher, fallback string, log *logger.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		settings:  settings,
		expiry:    expiry,
		publisher: publisher,
		fallback:  fallback,
		logger:    log,
	}
}

// Start starts the scheduler in a background goroutine.
func (s *ReminderScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Str("fallback", s.fallback).Msg("reminder scheduler started")
		for {
			settings := s.load(ctx)
			sendAt := s.fallback
			if settings != nil && settings.SendAt != "" {
				sendAt = settings.SendAt
			}

			next, err := NextReminderInstant(time.Now(), sendAt)
			if err != nil {
				s.logger.Error().Err(err).Str("send_at", sendAt).Msg("bad reminder time, using fallback")
				next, err = NextReminderInstant(time.Now(), s.fallback)
				if err != nil {
					s.logger.Error().Err(err).Msg("fallback reminder time is bad, scheduler exiting")
					return
				}
			}

			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				s.logger.Info().Msg("reminder scheduler stopped")
				return
			case <-timer.C:
			}

			s.scanExpiries(ctx)

			// Re-read right before sending so a disable flipped during the
			// wait is honored.
			settings = s.load(ctx)
			if settings == nil || !settings.Enabled {
				continue
			}
			s.publisher.PublishMedicalReminder(ctx, settings)
			s.logger.Info().Str("send_at", sendAt).
				Int("recipients", len(settings.RecipientList())).
				Msg("medical reminder published")
		}
	}()
}

// scanExpiries publishes one alert per batch expiring within the default
// window, across both inventories and all plants. The alert disable flag
// only covers the medical reminder, so this runs every cycle.
func (s *ReminderScheduler) scanExpiries(ctx context.Context) {
	if s.expiry == nil {
		return
	}
	now := time.Now()
	rows, err := s.expiry.NearExpiry(ctx, OpenVisibility(), ScopeBoth, now, -1, 0)
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry alert scan failed")
		return
	}
	for _, row := range rows {
		s.publisher.PublishExpiryAlert(ctx, row, timeutil.DaysBetween(now, row.ExpiryDate))
	}
	if len(rows) > 0 {
		s.logger.Info().Int("batches", len(rows)).Msg("expiry alerts published")
	}
}

// Stop stops the scheduler goroutine
func (s *ReminderScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *ReminderScheduler) load(ctx context.Context) *repository.ReminderSettings {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read reminder settings")
		return nil
	}
	return settings
}

// NextReminderInstant computes the next occurrence of the "HH:MM" wall-clock
// time in IST strictly after now.
func NextReminderInstant(now time.Time, sendAt string) (time.Time, error) {
	parsed, err := time.Parse("15:04", sendAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse reminder time %q: %w", sendAt, err)
	}

	local := now.In(timeutil.IST)
	next := time.Date(local.Year(), local.Month(), local.Day(), parsed.Hour(), parsed.Minute(), 0, 0, timeutil.IST)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

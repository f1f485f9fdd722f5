package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wakepark/internal/database"
	"wakepark/internal/domain"
	"wakepark/internal/events"
	"wakepark/internal/metrics"
	"wakepark/internal/models"
	"wakepark/internal/schedule"
	"wakepark/internal/timezone"

	"github.com/rs/zerolog"
)

// ScheduleService owns the slot inventory: initial population at startup,
// admin-triggered regeneration and the schedule configuration writes that
// feed the generator.
type ScheduleService struct {
	store           domain.Storage
	eventBus        domain.EventPublisher
	visibilityWeeks int
	now             func() time.Time
	logger          zerolog.Logger
}

func NewScheduleService(store domain.Storage, eventBus domain.EventPublisher, visibilityWeeks int, logger *zerolog.Logger) *ScheduleService {
	if visibilityWeeks <= 0 {
		visibilityWeeks = models.DefaultVisibilityWeeks
	}
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "schedule-service").Logger()
	}
	return &ScheduleService{
		store:           store,
		eventBus:        eventBus,
		visibilityWeeks: visibilityWeeks,
		now:             time.Now,
		logger:          base,
	}
}

// WithClock fixes the service wall clock, for tests.
func (s *ScheduleService) WithClock(now func() time.Time) *ScheduleService {
	s.now = now
	return s
}

// InitializeSlots populates the calendar on first start. It is a no-op when
// future slots already exist, so restarting the server never duplicates
// inventory.
func (s *ScheduleService) InitializeSlots(ctx context.Context) error {
	horizon := timezone.StartOfLocalDay(s.now())
	count, err := s.store.CountFutureSlots(ctx, horizon)
	if err != nil {
		return fmt.Errorf("count future slots: %w", err)
	}
	if count > 0 {
		s.logger.Debug().Int64("existing", count).Msg("slots already populated")
		return nil
	}

	created, err := s.generateWindow(ctx, horizon, nil)
	if err != nil {
		return err
	}

	s.logger.Info().Int("created", created).Msg("initial slot inventory generated")
	return nil
}

// Regenerate rebuilds the future slot inventory from the current
// configuration. Booked slots are never touched; newly generated slots that
// would collide with a preserved booked instant are dropped.
func (s *ScheduleService) Regenerate(ctx context.Context) (*models.RegenerationResult, error) {
	horizon := timezone.StartOfLocalDay(s.now())

	booked, err := s.store.GetBookedSlotsFrom(ctx, horizon)
	if err != nil {
		return nil, fmt.Errorf("collect booked slots: %w", err)
	}

	deleted, err := s.store.DeleteUnbookedSlotsFrom(ctx, horizon)
	if err != nil {
		return nil, fmt.Errorf("delete unbooked slots: %w", err)
	}

	created, dropped, err := s.generateWindowFiltered(ctx, horizon, booked)
	if err != nil {
		return nil, err
	}

	result := &models.RegenerationResult{
		PreservedBookings:   len(booked),
		DuplicatesPrevented: dropped,
		SlotsCreated:        created,
		SlotsDeleted:        int(deleted),
	}

	if s.eventBus != nil {
		_ = s.eventBus.PublishJSON(events.EventSlotsRegenerated, events.RegenerationEventPayload{
			PreservedBookings:   result.PreservedBookings,
			DuplicatesPrevented: result.DuplicatesPrevented,
			SlotsCreated:        result.SlotsCreated,
			SlotsDeleted:        result.SlotsDeleted,
		})
	}

	s.logger.Info().
		Int("preserved", result.PreservedBookings).
		Int("duplicates_prevented", result.DuplicatesPrevented).
		Int("created", result.SlotsCreated).
		Int64("deleted", deleted).
		Msg("slot inventory regenerated")
	return result, nil
}

// GetTimeSlots returns slots for the public calendar.
func (s *ScheduleService) GetTimeSlots(ctx context.Context, from, to time.Time) ([]models.TimeSlot, error) {
	return s.store.GetTimeSlotsByRange(ctx, from, to)
}

// UpdateOperatingHours validates and writes the weekly schedule. The change
// takes effect on the public calendar at the next regeneration.
func (s *ScheduleService) UpdateOperatingHours(ctx context.Context, hours []models.OperatingHours) error {
	if err := schedule.ValidateOperatingHours(hours); err != nil {
		return err
	}
	return s.store.ReplaceOperatingHours(ctx, hours)
}

func (s *ScheduleService) GetOperatingHours(ctx context.Context) ([]models.OperatingHours, error) {
	return s.store.GetOperatingHours(ctx)
}

// UpdatePricingRules validates and writes pricing. Prices apply to slots
// generated afterwards; existing slots keep the price they were sold at.
func (s *ScheduleService) UpdatePricingRules(ctx context.Context, rules []models.PricingRule) error {
	for _, r := range rules {
		if r.Name != models.PricingStandard && r.Name != models.PricingPeak {
			return fmt.Errorf("unknown pricing rule %q", r.Name)
		}
		if r.PriceCents <= 0 {
			return fmt.Errorf("rule %s: price must be positive", r.Name)
		}
	}
	return s.store.ReplacePricingRules(ctx, rules)
}

func (s *ScheduleService) GetPricingRules(ctx context.Context) ([]models.PricingRule, error) {
	return s.store.GetPricingRules(ctx)
}

func (s *ScheduleService) GetLeadTimeSettings(ctx context.Context) (*models.LeadTimeSettings, error) {
	return s.store.GetLeadTimeSettings(ctx)
}

func (s *ScheduleService) UpdateLeadTimeSettings(ctx context.Context, settings *models.LeadTimeSettings) error {
	switch settings.Mode {
	case models.LeadTimeOff, models.LeadTimeEnforced, models.LeadTimeBookingBased:
	default:
		return fmt.Errorf("unknown lead-time mode %q", settings.Mode)
	}
	if settings.LeadTimeDays < 0 {
		return fmt.Errorf("lead_time_days must not be negative")
	}
	return s.store.UpdateLeadTimeSettings(ctx, settings)
}

func (s *ScheduleService) GetConfigValue(ctx context.Context, name string) (string, error) {
	return s.store.GetConfigValue(ctx, name)
}

func (s *ScheduleService) SetConfigValue(ctx context.Context, name, value string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("setting name must not be empty")
	}
	if name == models.ConfigVisibilityWeeks {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("%s must be a positive integer", models.ConfigVisibilityWeeks)
		}
	}
	return s.store.SetConfigValue(ctx, name, value)
}

// visibilityWindow returns how many days ahead slots are generated, honoring
// the visibility_weeks configuration override.
func (s *ScheduleService) visibilityWindow(ctx context.Context) int {
	weeks := s.visibilityWeeks
	if raw, err := s.store.GetConfigValue(ctx, models.ConfigVisibilityWeeks); err == nil {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			weeks = parsed
		}
	} else if !errors.Is(err, database.ErrConfigNotFound) {
		s.logger.Warn().Err(err).Msg("read visibility_weeks, using default")
	}
	return weeks * 7
}

func (s *ScheduleService) generateWindow(ctx context.Context, horizon time.Time, booked []models.TimeSlot) (int, error) {
	created, _, err := s.generateWindowFiltered(ctx, horizon, booked)
	return created, err
}

func (s *ScheduleService) generateWindowFiltered(ctx context.Context, horizon time.Time, booked []models.TimeSlot) (created, dropped int, err error) {
	hours, err := s.store.GetOperatingHours(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load operating hours: %w", err)
	}
	rules, err := s.store.GetPricingRules(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load pricing rules: %w", err)
	}

	days := s.visibilityWindow(ctx)
	end := horizon.AddDate(0, 0, days-1)

	generated, err := schedule.Generate(horizon, end, hours, rules)
	if err != nil {
		return 0, 0, fmt.Errorf("generate slots: %w", err)
	}

	filtered, dropped := schedule.FilterAgainstBooked(generated, booked)
	created, err = s.store.InsertTimeSlots(ctx, filtered)
	if err != nil {
		return 0, 0, fmt.Errorf("insert slots: %w", err)
	}

	metrics.AddSlotsGenerated(created)
	return created, dropped, nil
}

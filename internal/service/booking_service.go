package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wakepark/internal/database"
	"wakepark/internal/domain"
	"wakepark/internal/events"
	"wakepark/internal/metrics"
	"wakepark/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	TaskUpsert       = "upsert"
	TaskUpdateStatus = "update_status"
)

// BookingRequest carries the customer payload for a confirmed booking.
type BookingRequest struct {
	CustomerName    string
	Email           string
	Phone           string
	EquipmentRental bool
	Comment         string
	SlotIDs         []int64
}

type BookingService struct {
	store          domain.Storage
	eventBus       domain.EventPublisher
	syncWorker     domain.SyncWorker
	reservationTTL time.Duration
	now            func() time.Time
	logger         zerolog.Logger
}

func NewBookingService(store domain.Storage, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, reservationTTL time.Duration, logger *zerolog.Logger) *BookingService {
	if reservationTTL <= 0 {
		reservationTTL = models.DefaultReservationTTL
	}
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "booking-service").Logger()
	}
	return &BookingService{
		store:          store,
		eventBus:       eventBus,
		syncWorker:     syncWorker,
		reservationTTL: reservationTTL,
		now:            time.Now,
		logger:         base,
	}
}

// WithClock fixes the service wall clock, for tests.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// ReserveSlots places a short-lived hold on the given slots and returns its
// expiry. The hold is what the calendar UI takes while the customer fills in
// the contact form.
func (s *BookingService) ReserveSlots(ctx context.Context, slotIDs []int64) (time.Time, error) {
	if len(slotIDs) == 0 {
		return time.Time{}, fmt.Errorf("no slots requested")
	}

	now := s.now()
	expiry := now.Add(s.reservationTTL)
	if err := s.store.ReserveTimeSlots(ctx, slotIDs, now, expiry); err != nil {
		return time.Time{}, err
	}

	s.logger.Info().Ints64("slot_ids", slotIDs).Time("expiry", expiry).Msg("slots reserved")
	return expiry, nil
}

// ReleaseSlots drops holds without creating a booking.
func (s *BookingService) ReleaseSlots(ctx context.Context, slotIDs []int64) error {
	return s.store.ReleaseTimeSlots(ctx, slotIDs)
}

// SlotsByIDs loads specific slots, preserving request order where possible.
func (s *BookingService) SlotsByIDs(ctx context.Context, slotIDs []int64) ([]models.TimeSlot, error) {
	return s.store.GetTimeSlotsByIDs(ctx, slotIDs)
}

// CreateBooking confirms a reservation: writes the booking, flips the slots
// to booked and fans the change out to notifications and the Sheets mirror.
func (s *BookingService) CreateBooking(ctx context.Context, req BookingRequest) (*models.BookingWithSlots, error) {
	booking := &models.Booking{
		Reference:       NewReference(),
		CustomerName:    req.CustomerName,
		Email:           req.Email,
		Phone:           req.Phone,
		EquipmentRental: req.EquipmentRental,
		Comment:         req.Comment,
	}

	if err := s.store.CreateBookingWithSlots(ctx, booking, req.SlotIDs, s.now()); err != nil {
		return nil, err
	}

	result, err := s.store.GetBookingByID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	metrics.IncBookingsCreated()
	s.publishBookingEvent(events.EventBookingCreated, result)
	s.enqueueSync(ctx, TaskUpsert, result, "")

	s.logger.Info().
		Str("reference", result.Reference).
		Int("slots", len(result.Slots)).
		Msg("booking created")
	return result, nil
}

// GetBookingByReference looks a booking up by its human-readable reference.
func (s *BookingService) GetBookingByReference(ctx context.Context, reference string) (*models.BookingWithSlots, error) {
	return s.store.GetBookingByReference(ctx, strings.ToUpper(strings.TrimSpace(reference)))
}

// CancelBooking deletes the booking and returns its slots to the pool.
func (s *BookingService) CancelBooking(ctx context.Context, id int64) error {
	booking, err := s.store.GetBookingByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteBooking(ctx, id); err != nil {
		return err
	}

	metrics.IncBookingsCancelled()
	s.publishBookingEvent(events.EventBookingCancelled, booking)
	s.enqueueSync(ctx, TaskUpdateStatus, booking, "cancelled")

	s.logger.Info().Str("reference", booking.Reference).Msg("booking cancelled")
	return nil
}

// ListBookings returns bookings with slots inside the window, for the admin
// back office.
func (s *BookingService) ListBookings(ctx context.Context, from, to time.Time) ([]models.BookingWithSlots, error) {
	return s.store.ListBookings(ctx, from, to)
}

// Stats returns the dashboard summary.
func (s *BookingService) Stats(ctx context.Context) (*models.Stats, error) {
	return s.store.GetStats(ctx, s.now())
}

func (s *BookingService) publishBookingEvent(eventType string, b *models.BookingWithSlots) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:       b.ID,
		Reference:       b.Reference,
		CustomerName:    b.CustomerName,
		Phone:           b.Phone,
		EquipmentRental: b.EquipmentRental,
		SlotCount:       len(b.Slots),
		TotalCents:      b.TotalCents(),
	}
	if len(b.Slots) > 0 {
		payload.FirstSlotStart = b.Slots[0].StartTime
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("publish event")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, taskType string, b *models.BookingWithSlots, status string) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueTask(ctx, taskType, b.ID, b, status); err != nil {
		s.logger.Error().Err(err).Str("task", taskType).Int64("booking_id", b.ID).Msg("enqueue sync task")
	}
}

// NewReference builds a short human-readable booking reference like
// "WP-9F3A21C4". uuid gives us the randomness; the customer reads it over
// the phone.
func NewReference() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "WP-" + strings.ToUpper(raw[:8])
}

// IsConflict reports whether the error is a slot-state conflict the client
// should see as 409 rather than 500.
func IsConflict(err error) bool {
	return errors.Is(err, database.ErrSlotUnavailable) ||
		errors.Is(err, database.ErrSlotNotReserved) ||
		errors.Is(err, database.ErrReservationExpired)
}

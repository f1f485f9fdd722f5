package domain

import (
	"context"
	"time"

	"wakepark/internal/models"
)

// Storage is the persistence surface for the booking system. Two
// implementations exist: sqlite (production) and in-memory (tests).
type Storage interface {
	// Time slots
	InsertTimeSlots(ctx context.Context, slots []models.TimeSlot) (int, error)
	GetTimeSlotsByRange(ctx context.Context, from, to time.Time) ([]models.TimeSlot, error)
	GetTimeSlotsByIDs(ctx context.Context, ids []int64) ([]models.TimeSlot, error)
	ReserveTimeSlots(ctx context.Context, ids []int64, now, expiry time.Time) error
	ReleaseTimeSlots(ctx context.Context, ids []int64) error
	GetBookedSlotsFrom(ctx context.Context, from time.Time) ([]models.TimeSlot, error)
	DeleteUnbookedSlotsFrom(ctx context.Context, from time.Time) (int64, error)
	HasBookedSlotBetween(ctx context.Context, from, to time.Time) (bool, error)
	CountFutureSlots(ctx context.Context, from time.Time) (int64, error)

	// Bookings
	CreateBookingWithSlots(ctx context.Context, booking *models.Booking, slotIDs []int64, now time.Time) error
	GetBookingByID(ctx context.Context, id int64) (*models.BookingWithSlots, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.BookingWithSlots, error)
	ListBookings(ctx context.Context, from, to time.Time) ([]models.BookingWithSlots, error)
	DeleteBooking(ctx context.Context, id int64) error

	// Schedule configuration
	GetOperatingHours(ctx context.Context) ([]models.OperatingHours, error)
	ReplaceOperatingHours(ctx context.Context, hours []models.OperatingHours) error
	GetPricingRules(ctx context.Context) ([]models.PricingRule, error)
	ReplacePricingRules(ctx context.Context, rules []models.PricingRule) error
	GetLeadTimeSettings(ctx context.Context) (*models.LeadTimeSettings, error)
	UpdateLeadTimeSettings(ctx context.Context, settings *models.LeadTimeSettings) error
	GetConfigValue(ctx context.Context, name string) (string, error)
	SetConfigValue(ctx context.Context, name, value string) error

	GetStats(ctx context.Context, now time.Time) (*models.Stats, error)
}

// SessionRepository stores admin sessions with a TTL and offers a coarse
// counter-based rate limit.
type SessionRepository interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
	SetSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, token string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SyncWorker queues booking changes for the Sheets mirror.
type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.BookingWithSlots, status string) error
}

// SheetsWriter mirrors bookings into the office spreadsheet.
type SheetsWriter interface {
	AppendBooking(ctx context.Context, booking *models.BookingWithSlots) error
	UpsertBooking(ctx context.Context, booking *models.BookingWithSlots) error
	UpdateBookingStatus(ctx context.Context, reference string, status string) error
}

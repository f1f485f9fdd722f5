package models

import "time"

// TimeSlot is a single 30-minute bookable interval. StartTime and EndTime are
// stored in UTC; rendering in park local time is the caller's concern.
type TimeSlot struct {
	ID                int64      `json:"id"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           time.Time  `json:"end_time"`
	PriceCents        int64      `json:"price_cents"`
	Status            string     `json:"status"` // available, reserved, booked
	ReservationExpiry *time.Time `json:"reservation_expiry,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ReservationExpired reports whether a reserved slot's hold has lapsed.
// Expiry is checked lazily against the wall clock; nobody flips the row back
// until the slot is touched again.
func (s *TimeSlot) ReservationExpired(now time.Time) bool {
	if s.Status != SlotReserved {
		return false
	}
	if s.ReservationExpiry == nil {
		return true
	}
	return s.ReservationExpiry.Before(now)
}

// Reservable reports whether the slot can take a new hold at the given time.
func (s *TimeSlot) Reservable(now time.Time) bool {
	return s.Status == SlotAvailable || s.ReservationExpired(now)
}

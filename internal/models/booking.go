package models

import "time"

type Booking struct {
	ID              int64     `json:"id"`
	Reference       string    `json:"reference"`
	CustomerName    string    `json:"customer_name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	EquipmentRental bool      `json:"equipment_rental"`
	Comment         string    `json:"comment"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookingWithSlots carries a booking together with its slots, ordered by
// start time. Used by admin listings and exports.
type BookingWithSlots struct {
	Booking
	Slots []TimeSlot `json:"slots"`
}

// TotalCents sums slot prices for the booking.
func (b *BookingWithSlots) TotalCents() int64 {
	var total int64
	for _, s := range b.Slots {
		total += s.PriceCents
	}
	return total
}

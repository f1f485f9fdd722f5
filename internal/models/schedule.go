package models

import "time"

// OperatingHours describes one weekday's local opening window.
// Weekday follows time.Weekday numbering (Sunday = 0).
// OpenTime/CloseTime are local clock strings "HH:MM".
type OperatingHours struct {
	Weekday   int    `json:"weekday" yaml:"weekday"`
	OpenTime  string `json:"open_time" yaml:"open_time"`
	CloseTime string `json:"close_time" yaml:"close_time"`
	IsClosed  bool   `json:"is_closed" yaml:"is_closed"`
}

// PricingRule is a named price applied by the slot generator.
// The peak window itself is fixed (weekends all day, weekday evenings); the
// rule supplies the amount and advertises its window for the admin UI.
type PricingRule struct {
	Name            string `json:"name" yaml:"name"` // standard, peak
	PriceCents      int64  `json:"price_cents" yaml:"price_cents"`
	StartTime       string `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime         string `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	AppliesWeekends bool   `json:"applies_weekends" yaml:"applies_weekends"`
}

// LeadTimeSettings is the singleton online-booking restriction record.
type LeadTimeSettings struct {
	Mode           string    `json:"mode"` // off, enforced, booking_based
	LeadTimeDays   int       `json:"lead_time_days"`
	OperatorOnSite bool      `json:"operator_on_site"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ConfigEntry is a generic name/value setting.
type ConfigEntry struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RegenerationResult summarizes one slot-inventory rebuild.
type RegenerationResult struct {
	PreservedBookings   int `json:"preserved_bookings"`
	DuplicatesPrevented int `json:"duplicates_prevented"`
	SlotsCreated        int `json:"slots_created"`
	SlotsDeleted        int `json:"slots_deleted"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalBookings    int64 `json:"total_bookings"`
	UpcomingBookings int64 `json:"upcoming_bookings"`
	BookedSlots      int64 `json:"booked_slots"`
	AvailableSlots   int64 `json:"available_slots"`
	RevenueCents     int64 `json:"revenue_cents"`
}

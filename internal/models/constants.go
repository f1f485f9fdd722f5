package models

import "time"

const (
	SlotAvailable = "available"
	SlotReserved  = "reserved"
	SlotBooked    = "booked"
)

const (
	LeadTimeOff          = "off"
	LeadTimeEnforced     = "enforced"
	LeadTimeBookingBased = "booking_based"
)

const (
	ReasonOperatorOnSite       = "operator_on_site"
	ReasonBookingBasedOverride = "booking_based_override"
	ReasonLeadTimeNotMet       = "lead_time_not_met"
)

const (
	PricingStandard = "standard"
	PricingPeak     = "peak"
)

const (
	// SlotDuration длительность одного слота
	SlotDuration = 30 * time.Minute

	// PeakStartHour начало вечернего пикового окна в будни (локальное время)
	PeakStartHour = 17
	// PeakEndHour конец пикового окна, не включительно
	PeakEndHour = 22

	// DefaultVisibilityWeeks сколько недель вперёд генерируются слоты
	DefaultVisibilityWeeks = 4

	// DefaultReservationTTL время жизни резервации до подтверждения
	DefaultReservationTTL = 15 * time.Minute

	// DefaultStandardPriceCents цена стандартного слота в центах
	DefaultStandardPriceCents = 2000
	// DefaultPeakPriceCents цена пикового слота в центах
	DefaultPeakPriceCents = 2500

	// DefaultSessionTTL время жизни админской сессии
	DefaultSessionTTL = 24 * time.Hour

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000
)

const (
	ConfigVisibilityWeeks = "visibility_weeks"
)

package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"wakepark/internal/models"
)

// MemoryStorage is the in-memory twin of the sqlite implementation. It backs
// handler and service tests; behavior mirrors the SQL layer including the
// lazy reservation-expiry rules.
type MemoryStorage struct {
	mu sync.RWMutex

	nextSlotID    int64
	nextBookingID int64

	slots        map[int64]models.TimeSlot
	bookings     map[int64]models.Booking
	bookingSlots map[int64][]int64 // booking id -> slot ids

	hours    []models.OperatingHours
	pricing  []models.PricingRule
	leadTime *models.LeadTimeSettings
	config   map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		nextSlotID:    1,
		nextBookingID: 1,
		slots:         make(map[int64]models.TimeSlot),
		bookings:      make(map[int64]models.Booking),
		bookingSlots:  make(map[int64][]int64),
		config:        make(map[string]string),
	}
}

func (m *MemoryStorage) InsertTimeSlots(ctx context.Context, slots []models.TimeSlot) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, s := range slots {
		s.ID = m.nextSlotID
		m.nextSlotID++
		if s.Status == "" {
			s.Status = models.SlotAvailable
		}
		s.StartTime = s.StartTime.UTC()
		s.EndTime = s.EndTime.UTC()
		s.CreatedAt = now
		s.UpdatedAt = now
		m.slots[s.ID] = s
	}
	return len(slots), nil
}

func (m *MemoryStorage) GetTimeSlotsByRange(ctx context.Context, from, to time.Time) ([]models.TimeSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.TimeSlot
	for _, s := range m.slots {
		if !s.StartTime.Before(from.UTC()) && s.StartTime.Before(to.UTC()) {
			out = append(out, s)
		}
	}
	sortSlots(out)
	return out, nil
}

func (m *MemoryStorage) GetTimeSlotsByIDs(ctx context.Context, ids []int64) ([]models.TimeSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.TimeSlot
	for _, id := range ids {
		if s, ok := m.slots[id]; ok {
			out = append(out, s)
		}
	}
	sortSlots(out)
	return out, nil
}

func (m *MemoryStorage) ReserveTimeSlots(ctx context.Context, ids []int64, now, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// First pass validates, so a failure leaves nothing half-reserved.
	for _, id := range ids {
		s, ok := m.slots[id]
		if !ok {
			return ErrSlotNotFound
		}
		if !s.Reservable(now) {
			return ErrSlotUnavailable
		}
	}

	exp := expiry.UTC()
	for _, id := range ids {
		s := m.slots[id]
		s.Status = models.SlotReserved
		s.ReservationExpiry = &exp
		s.UpdatedAt = now.UTC()
		m.slots[id] = s
	}
	return nil
}

func (m *MemoryStorage) ReleaseTimeSlots(ctx context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		s, ok := m.slots[id]
		if !ok || s.Status != models.SlotReserved {
			continue
		}
		s.Status = models.SlotAvailable
		s.ReservationExpiry = nil
		s.UpdatedAt = time.Now().UTC()
		m.slots[id] = s
	}
	return nil
}

func (m *MemoryStorage) GetBookedSlotsFrom(ctx context.Context, from time.Time) ([]models.TimeSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.TimeSlot
	for _, s := range m.slots {
		if s.Status == models.SlotBooked && !s.StartTime.Before(from.UTC()) {
			out = append(out, s)
		}
	}
	sortSlots(out)
	return out, nil
}

func (m *MemoryStorage) DeleteUnbookedSlotsFrom(ctx context.Context, from time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, s := range m.slots {
		if s.Status != models.SlotBooked && !s.StartTime.Before(from.UTC()) {
			delete(m.slots, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryStorage) HasBookedSlotBetween(ctx context.Context, from, to time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.slots {
		if s.Status == models.SlotBooked && !s.StartTime.Before(from.UTC()) && s.StartTime.Before(to.UTC()) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStorage) CountFutureSlots(ctx context.Context, from time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, s := range m.slots {
		if !s.StartTime.Before(from.UTC()) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStorage) CreateBookingWithSlots(ctx context.Context, booking *models.Booking, slotIDs []int64, now time.Time) error {
	if len(slotIDs) == 0 {
		return ErrSlotNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range slotIDs {
		s, ok := m.slots[id]
		if !ok {
			return ErrSlotNotFound
		}
		if s.Status != models.SlotReserved {
			return ErrSlotNotReserved
		}
		if s.ReservationExpiry == nil || s.ReservationExpiry.Before(now) {
			return ErrReservationExpired
		}
	}

	booking.ID = m.nextBookingID
	m.nextBookingID++
	booking.CreatedAt = now.UTC()
	booking.UpdatedAt = now.UTC()
	m.bookings[booking.ID] = *booking
	m.bookingSlots[booking.ID] = append([]int64(nil), slotIDs...)

	for _, id := range slotIDs {
		s := m.slots[id]
		s.Status = models.SlotBooked
		s.ReservationExpiry = nil
		s.UpdatedAt = now.UTC()
		m.slots[id] = s
	}
	return nil
}

func (m *MemoryStorage) GetBookingByID(ctx context.Context, id int64) (*models.BookingWithSlots, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return m.withSlots(b), nil
}

func (m *MemoryStorage) GetBookingByReference(ctx context.Context, reference string) (*models.BookingWithSlots, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, b := range m.bookings {
		if b.Reference == reference {
			return m.withSlots(b), nil
		}
	}
	return nil, ErrBookingNotFound
}

func (m *MemoryStorage) ListBookings(ctx context.Context, from, to time.Time) ([]models.BookingWithSlots, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.BookingWithSlots
	for _, b := range m.bookings {
		bws := m.withSlots(b)
		inRange := false
		for _, s := range bws.Slots {
			if !s.StartTime.Before(from.UTC()) && s.StartTime.Before(to.UTC()) {
				inRange = true
				break
			}
		}
		if inRange {
			out = append(out, *bws)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStorage) DeleteBooking(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bookings[id]; !ok {
		return ErrBookingNotFound
	}

	for _, slotID := range m.bookingSlots[id] {
		if s, ok := m.slots[slotID]; ok {
			s.Status = models.SlotAvailable
			s.ReservationExpiry = nil
			s.UpdatedAt = time.Now().UTC()
			m.slots[slotID] = s
		}
	}
	delete(m.bookingSlots, id)
	delete(m.bookings, id)
	return nil
}

func (m *MemoryStorage) GetOperatingHours(ctx context.Context) ([]models.OperatingHours, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.OperatingHours(nil), m.hours...), nil
}

func (m *MemoryStorage) ReplaceOperatingHours(ctx context.Context, hours []models.OperatingHours) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hours = append([]models.OperatingHours(nil), hours...)
	return nil
}

func (m *MemoryStorage) GetPricingRules(ctx context.Context) ([]models.PricingRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.PricingRule(nil), m.pricing...), nil
}

func (m *MemoryStorage) ReplacePricingRules(ctx context.Context, rules []models.PricingRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pricing = append([]models.PricingRule(nil), rules...)
	return nil
}

func (m *MemoryStorage) GetLeadTimeSettings(ctx context.Context) (*models.LeadTimeSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.leadTime == nil {
		return &models.LeadTimeSettings{Mode: models.LeadTimeOff}, nil
	}
	s := *m.leadTime
	return &s, nil
}

func (m *MemoryStorage) UpdateLeadTimeSettings(ctx context.Context, settings *models.LeadTimeSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *settings
	s.UpdatedAt = time.Now().UTC()
	m.leadTime = &s
	return nil
}

func (m *MemoryStorage) GetConfigValue(ctx context.Context, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.config[name]
	if !ok {
		return "", ErrConfigNotFound
	}
	return value, nil
}

func (m *MemoryStorage) SetConfigValue(ctx context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[name] = value
	return nil
}

func (m *MemoryStorage) GetStats(ctx context.Context, now time.Time) (*models.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.Stats{TotalBookings: int64(len(m.bookings))}
	for _, s := range m.slots {
		switch s.Status {
		case models.SlotBooked:
			stats.BookedSlots++
			stats.RevenueCents += s.PriceCents
		case models.SlotAvailable:
			if !s.StartTime.Before(now.UTC()) {
				stats.AvailableSlots++
			}
		}
	}
	for id := range m.bookings {
		for _, slotID := range m.bookingSlots[id] {
			if s, ok := m.slots[slotID]; ok && !s.StartTime.Before(now.UTC()) {
				stats.UpcomingBookings++
				break
			}
		}
	}
	return stats, nil
}

func (m *MemoryStorage) withSlots(b models.Booking) *models.BookingWithSlots {
	bws := &models.BookingWithSlots{Booking: b}
	for _, slotID := range m.bookingSlots[b.ID] {
		if s, ok := m.slots[slotID]; ok {
			bws.Slots = append(bws.Slots, s)
		}
	}
	sortSlots(bws.Slots)
	return bws
}

func sortSlots(slots []models.TimeSlot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
}

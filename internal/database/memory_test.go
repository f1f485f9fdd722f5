package database

import (
	"context"
	"testing"
	"time"

	"wakepark/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memorySlots(t *testing.T, m *MemoryStorage, base time.Time, count int) []models.TimeSlot {
	t.Helper()
	slots := make([]models.TimeSlot, 0, count)
	for i := 0; i < count; i++ {
		start := base.Add(time.Duration(i) * models.SlotDuration)
		slots = append(slots, models.TimeSlot{
			StartTime:  start,
			EndTime:    start.Add(models.SlotDuration),
			PriceCents: 2000,
		})
	}
	_, err := m.InsertTimeSlots(context.Background(), slots)
	require.NoError(t, err)

	stored, err := m.GetTimeSlotsByRange(context.Background(), base, base.Add(time.Duration(count)*models.SlotDuration))
	require.NoError(t, err)
	require.Len(t, stored, count)
	return stored
}

func TestMemoryStorageSlotLifecycle(t *testing.T) {
	m := NewMemoryStorage()
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	slots := memorySlots(t, m, base, 2)
	ids := []int64{slots[0].ID, slots[1].ID}

	now := time.Now().UTC()
	require.NoError(t, m.ReserveTimeSlots(ctx, ids, now, now.Add(15*time.Minute)))
	assert.ErrorIs(t, m.ReserveTimeSlots(ctx, ids, now, now.Add(15*time.Minute)), ErrSlotUnavailable)

	booking := &models.Booking{Reference: "WP-MEM00001", CustomerName: "Test", Phone: "+371"}
	require.NoError(t, m.CreateBookingWithSlots(ctx, booking, ids, now))
	require.NotZero(t, booking.ID)

	got, err := m.GetBookingByReference(ctx, "WP-MEM00001")
	require.NoError(t, err)
	require.Len(t, got.Slots, 2)
	assert.Equal(t, models.SlotBooked, got.Slots[0].Status)

	require.NoError(t, m.DeleteBooking(ctx, booking.ID))
	_, err = m.GetBookingByID(ctx, booking.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	freed, err := m.GetTimeSlotsByIDs(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, models.SlotAvailable, freed[0].Status)
}

func TestMemoryStorageReserveValidatesBeforeMutating(t *testing.T) {
	m := NewMemoryStorage()
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	slots := memorySlots(t, m, base, 2)

	now := time.Now().UTC()
	require.NoError(t, m.ReserveTimeSlots(ctx, []int64{slots[0].ID}, now, now.Add(15*time.Minute)))

	err := m.ReserveTimeSlots(ctx, []int64{slots[1].ID, slots[0].ID}, now, now.Add(15*time.Minute))
	require.ErrorIs(t, err, ErrSlotUnavailable)

	free, err := m.GetTimeSlotsByIDs(ctx, []int64{slots[1].ID})
	require.NoError(t, err)
	assert.Equal(t, models.SlotAvailable, free[0].Status)
}

func TestMemoryStorageScheduleConfig(t *testing.T) {
	m := NewMemoryStorage()
	ctx := context.Background()

	hours := []models.OperatingHours{{Weekday: 1, OpenTime: "12:00", CloseTime: "22:00"}}
	require.NoError(t, m.ReplaceOperatingHours(ctx, hours))
	got, err := m.GetOperatingHours(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	settings, err := m.GetLeadTimeSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.LeadTimeOff, settings.Mode)

	require.NoError(t, m.UpdateLeadTimeSettings(ctx, &models.LeadTimeSettings{Mode: models.LeadTimeEnforced, LeadTimeDays: 2}))
	settings, err = m.GetLeadTimeSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, settings.LeadTimeDays)

	_, err = m.GetConfigValue(ctx, "missing")
	assert.ErrorIs(t, err, ErrConfigNotFound)
	require.NoError(t, m.SetConfigValue(ctx, "visibility_weeks", "6"))
	v, err := m.GetConfigValue(ctx, "visibility_weeks")
	require.NoError(t, err)
	assert.Equal(t, "6", v)
}

func TestMemoryStorageRegenHelpers(t *testing.T) {
	m := NewMemoryStorage()
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	slots := memorySlots(t, m, base, 3)

	now := time.Now().UTC()
	require.NoError(t, m.ReserveTimeSlots(ctx, []int64{slots[1].ID}, now, now.Add(15*time.Minute)))
	booking := &models.Booking{Reference: "WP-MEM00002", CustomerName: "Test", Phone: "+371"}
	require.NoError(t, m.CreateBookingWithSlots(ctx, booking, []int64{slots[1].ID}, now))

	deleted, err := m.DeleteUnbookedSlotsFrom(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	booked, err := m.GetBookedSlotsFrom(ctx, base)
	require.NoError(t, err)
	require.Len(t, booked, 1)

	has, err := m.HasBookedSlotBetween(ctx, slots[1].StartTime, slots[1].StartTime.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, has)

	count, err := m.CountFutureSlots(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

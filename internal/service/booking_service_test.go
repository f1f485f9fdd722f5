package service

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"wakepark/internal/database"
	"wakepark/internal/events"
	"wakepark/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedTask struct {
	taskType  string
	bookingID int64
	status    string
}

type fakeSyncWorker struct {
	tasks []recordedTask
}

func (f *fakeSyncWorker) EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.BookingWithSlots, status string) error {
	f.tasks = append(f.tasks, recordedTask{taskType: taskType, bookingID: bookingID, status: status})
	return nil
}

func fixedNow() time.Time {
	return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
}

func seedSlots(t *testing.T, store *database.MemoryStorage, count int) []models.TimeSlot {
	t.Helper()
	base := fixedNow().Add(24 * time.Hour)
	slots := make([]models.TimeSlot, 0, count)
	for i := 0; i < count; i++ {
		start := base.Add(time.Duration(i) * models.SlotDuration)
		slots = append(slots, models.TimeSlot{
			StartTime:  start,
			EndTime:    start.Add(models.SlotDuration),
			PriceCents: 2000,
		})
	}
	_, err := store.InsertTimeSlots(context.Background(), slots)
	require.NoError(t, err)

	stored, err := store.GetTimeSlotsByRange(context.Background(), base, base.Add(time.Duration(count)*models.SlotDuration))
	require.NoError(t, err)
	require.Len(t, stored, count)
	return stored
}

func TestReserveSlots(t *testing.T) {
	store := database.NewMemoryStorage()
	svc := NewBookingService(store, nil, nil, 15*time.Minute, nil).WithClock(fixedNow)
	slots := seedSlots(t, store, 2)
	ids := []int64{slots[0].ID, slots[1].ID}

	expiry, err := svc.ReserveSlots(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, fixedNow().Add(15*time.Minute), expiry)

	_, err = svc.ReserveSlots(context.Background(), ids)
	assert.True(t, IsConflict(err))

	_, err = svc.ReserveSlots(context.Background(), nil)
	assert.Error(t, err)
}

func TestCreateBookingFullFlow(t *testing.T) {
	store := database.NewMemoryStorage()
	bus := events.NewEventBus()
	worker := &fakeSyncWorker{}
	svc := NewBookingService(store, bus, worker, 15*time.Minute, nil).WithClock(fixedNow)
	slots := seedSlots(t, store, 2)
	ids := []int64{slots[0].ID, slots[1].ID}

	var published []events.BookingEventPayload
	bus.Subscribe(events.EventBookingCreated, func(e *events.Event) error {
		var p events.BookingEventPayload
		require.NoError(t, json.Unmarshal(e.Payload, &p))
		published = append(published, p)
		return nil
	})

	_, err := svc.ReserveSlots(context.Background(), ids)
	require.NoError(t, err)

	booking, err := svc.CreateBooking(context.Background(), BookingRequest{
		CustomerName:    "Līga Ozola",
		Email:           "liga@example.com",
		Phone:           "+37129999999",
		EquipmentRental: true,
		SlotIDs:         ids,
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^WP-[0-9A-F]{8}$`), booking.Reference)
	assert.Equal(t, int64(4000), booking.TotalCents())
	require.Len(t, booking.Slots, 2)

	require.Len(t, published, 1)
	assert.Equal(t, booking.Reference, published[0].Reference)
	assert.Equal(t, 2, published[0].SlotCount)
	assert.Equal(t, slots[0].StartTime, published[0].FirstSlotStart)

	require.Len(t, worker.tasks, 1)
	assert.Equal(t, TaskUpsert, worker.tasks[0].taskType)
	assert.Equal(t, booking.ID, worker.tasks[0].bookingID)
}

func TestCreateBookingWithoutReservationConflicts(t *testing.T) {
	store := database.NewMemoryStorage()
	svc := NewBookingService(store, nil, nil, 15*time.Minute, nil).WithClock(fixedNow)
	slots := seedSlots(t, store, 1)

	_, err := svc.CreateBooking(context.Background(), BookingRequest{
		CustomerName: "X", Phone: "+371", SlotIDs: []int64{slots[0].ID},
	})
	assert.True(t, IsConflict(err))
}

func TestCreateBookingExpiredHoldConflicts(t *testing.T) {
	store := database.NewMemoryStorage()
	svc := NewBookingService(store, nil, nil, 15*time.Minute, nil).WithClock(fixedNow)
	slots := seedSlots(t, store, 1)
	ids := []int64{slots[0].ID}

	_, err := svc.ReserveSlots(context.Background(), ids)
	require.NoError(t, err)

	// Customer dawdled past the TTL.
	svc.WithClock(func() time.Time { return fixedNow().Add(20 * time.Minute) })
	_, err = svc.CreateBooking(context.Background(), BookingRequest{
		CustomerName: "X", Phone: "+371", SlotIDs: ids,
	})
	assert.True(t, IsConflict(err))
}

func TestGetBookingByReferenceNormalizes(t *testing.T) {
	store := database.NewMemoryStorage()
	svc := NewBookingService(store, nil, nil, 15*time.Minute, nil).WithClock(fixedNow)
	slots := seedSlots(t, store, 1)
	ids := []int64{slots[0].ID}

	_, err := svc.ReserveSlots(context.Background(), ids)
	require.NoError(t, err)
	booking, err := svc.CreateBooking(context.Background(), BookingRequest{
		CustomerName: "X", Phone: "+371", SlotIDs: ids,
	})
	require.NoError(t, err)

	// Lowercase and padded input still resolves.
	got, err := svc.GetBookingByReference(context.Background(), "  "+booking.Reference+"  ")
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)
}

func TestCancelBooking(t *testing.T) {
	store := database.NewMemoryStorage()
	bus := events.NewEventBus()
	worker := &fakeSyncWorker{}
	svc := NewBookingService(store, bus, worker, 15*time.Minute, nil).WithClock(fixedNow)
	slots := seedSlots(t, store, 1)
	ids := []int64{slots[0].ID}

	cancelled := 0
	bus.Subscribe(events.EventBookingCancelled, func(e *events.Event) error {
		cancelled++
		return nil
	})

	_, err := svc.ReserveSlots(context.Background(), ids)
	require.NoError(t, err)
	booking, err := svc.CreateBooking(context.Background(), BookingRequest{
		CustomerName: "X", Phone: "+371", SlotIDs: ids,
	})
	require.NoError(t, err)

	require.NoError(t, svc.CancelBooking(context.Background(), booking.ID))
	assert.Equal(t, 1, cancelled)

	require.Len(t, worker.tasks, 2)
	assert.Equal(t, TaskUpdateStatus, worker.tasks[1].taskType)
	assert.Equal(t, "cancelled", worker.tasks[1].status)

	freed, err := store.GetTimeSlotsByIDs(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, models.SlotAvailable, freed[0].Status)

	err = svc.CancelBooking(context.Background(), booking.ID)
	assert.ErrorIs(t, err, database.ErrBookingNotFound)
}

func TestNewReferenceShape(t *testing.T) {
	seen := map[string]bool{}
	pattern := regexp.MustCompile(`^WP-[0-9A-F]{8}$`)
	for i := 0; i < 100; i++ {
		ref := NewReference()
		assert.Regexp(t, pattern, ref)
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

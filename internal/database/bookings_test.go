package database

import (
	"context"
	"testing"
	"time"

	"wakepark/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bookTestSlots reserves the slots and confirms a booking on them.
func bookTestSlots(t *testing.T, db *DB, slotIDs []int64) *models.Booking {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, db.ReserveTimeSlots(ctx, slotIDs, now, now.Add(15*time.Minute)))

	booking := &models.Booking{
		Reference:    "WP-" + time.Now().Format("040506.000000000"),
		CustomerName: "Jānis Bērziņš",
		Email:        "janis@example.com",
		Phone:        "+37120000000",
	}
	require.NoError(t, db.CreateBookingWithSlots(ctx, booking, slotIDs, now))
	return booking
}

func TestCreateBookingWithSlots(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	slots := insertTestSlots(t, db, base, 2)
	ids := []int64{slots[0].ID, slots[1].ID}

	booking := bookTestSlots(t, db, ids)
	require.NotZero(t, booking.ID)

	got, err := db.GetBookingByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.Reference, got.Reference)
	assert.Equal(t, "Jānis Bērziņš", got.CustomerName)
	require.Len(t, got.Slots, 2)
	for _, s := range got.Slots {
		assert.Equal(t, models.SlotBooked, s.Status)
		assert.Nil(t, s.ReservationExpiry)
	}
}

func TestCreateBookingRequiresReservation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	slots := insertTestSlots(t, db, base, 1)

	booking := &models.Booking{Reference: "WP-AAAA0001", CustomerName: "X", Phone: "+371"}
	err := db.CreateBookingWithSlots(ctx, booking, []int64{slots[0].ID}, time.Now().UTC())
	assert.ErrorIs(t, err, ErrSlotNotReserved)
}

func TestCreateBookingExpiredReservation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	slots := insertTestSlots(t, db, base, 1)
	id := slots[0].ID

	// Hold taken 20 minutes ago with a 15 minute TTL.
	then := time.Now().UTC().Add(-20 * time.Minute)
	require.NoError(t, db.ReserveTimeSlots(ctx, []int64{id}, then, then.Add(15*time.Minute)))

	booking := &models.Booking{Reference: "WP-AAAA0002", CustomerName: "X", Phone: "+371"}
	err := db.CreateBookingWithSlots(ctx, booking, []int64{id}, time.Now().UTC())
	assert.ErrorIs(t, err, ErrReservationExpired)

	// The failed confirmation must not write a booking row.
	_, err = db.GetBookingByReference(ctx, "WP-AAAA0002")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestGetBookingByReference(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	slots := insertTestSlots(t, db, base, 1)

	booking := bookTestSlots(t, db, []int64{slots[0].ID})

	got, err := db.GetBookingByReference(ctx, booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	_, err = db.GetBookingByReference(ctx, "WP-NOPE0000")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestListBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	slots := insertTestSlots(t, db, base, 4)

	first := bookTestSlots(t, db, []int64{slots[0].ID, slots[1].ID})
	second := bookTestSlots(t, db, []int64{slots[3].ID})

	all, err := db.ListBookings(ctx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, all, 2)

	refs := []string{all[0].Reference, all[1].Reference}
	assert.Contains(t, refs, first.Reference)
	assert.Contains(t, refs, second.Reference)

	// Narrow window that only covers the last slot.
	narrow, err := db.ListBookings(ctx, slots[3].StartTime, slots[3].StartTime.Add(models.SlotDuration))
	require.NoError(t, err)
	require.Len(t, narrow, 1)
	assert.Equal(t, second.Reference, narrow[0].Reference)
	require.Len(t, narrow[0].Slots, 1)
}

func TestDeleteBookingFreesSlots(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	slots := insertTestSlots(t, db, base, 2)
	ids := []int64{slots[0].ID, slots[1].ID}

	booking := bookTestSlots(t, db, ids)
	require.NoError(t, db.DeleteBooking(ctx, booking.ID))

	_, err := db.GetBookingByID(ctx, booking.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	freed, err := db.GetTimeSlotsByIDs(ctx, ids)
	require.NoError(t, err)
	for _, s := range freed {
		assert.Equal(t, models.SlotAvailable, s.Status)
	}
}

func TestDeleteBookingUnknownID(t *testing.T) {
	db := setupTestDB(t)
	err := db.DeleteBooking(context.Background(), 424242)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
	slots := insertTestSlots(t, db, base, 4)

	bookTestSlots(t, db, []int64{slots[0].ID, slots[1].ID})

	stats, err := db.GetStats(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalBookings)
	assert.Equal(t, int64(1), stats.UpcomingBookings)
	assert.Equal(t, int64(2), stats.BookedSlots)
	assert.Equal(t, int64(2), stats.AvailableSlots)
	assert.Equal(t, int64(4000), stats.RevenueCents)
}

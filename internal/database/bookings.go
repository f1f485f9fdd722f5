package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wakepark/internal/models"
)

// CreateBookingWithSlots confirms a booking in one transaction: every slot
// must hold a live reservation, the booking row and join rows are written,
// and the slots flip to booked with their expiry cleared.
func (db *DB) CreateBookingWithSlots(ctx context.Context, booking *models.Booking, slotIDs []int64, now time.Time) error {
	if len(slotIDs) == 0 {
		return fmt.Errorf("booking requires at least one time slot")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	selectQuery := fmt.Sprintf(`SELECT status, reservation_expiry FROM %s WHERE id = ?`, db.table("time_slots"))
	for _, id := range slotIDs {
		var status string
		var resExpiry sql.NullTime
		err := tx.QueryRowContext(ctx, selectQuery, id).Scan(&status, &resExpiry)
		if err == sql.ErrNoRows {
			return ErrSlotNotFound
		}
		if err != nil {
			return fmt.Errorf("check slot %d: %w", id, err)
		}
		if status != models.SlotReserved {
			return ErrSlotNotReserved
		}
		// Lazy expiry: the hold is validated against the wall clock here, not
		// by a background timer.
		if !resExpiry.Valid || resExpiry.Time.Before(now) {
			return ErrReservationExpired
		}
	}

	insertBooking := fmt.Sprintf(`INSERT INTO %s (reference, customer_name, email, phone, equipment_rental, comment, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, db.table("bookings"))
	result, err := tx.ExecContext(ctx, insertBooking,
		booking.Reference,
		booking.CustomerName,
		booking.Email,
		booking.Phone,
		booking.EquipmentRental,
		booking.Comment,
		now.UTC(),
		now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	insertJoin := fmt.Sprintf(`INSERT INTO %s (booking_id, time_slot_id) VALUES (?, ?)`, db.table("booking_time_slots"))
	updateSlot := fmt.Sprintf(`UPDATE %s SET status = ?, reservation_expiry = NULL, updated_at = ? WHERE id = ?`, db.table("time_slots"))
	for _, slotID := range slotIDs {
		if _, err := tx.ExecContext(ctx, insertJoin, id, slotID); err != nil {
			return fmt.Errorf("link slot %d: %w", slotID, err)
		}
		if _, err := tx.ExecContext(ctx, updateSlot, models.SlotBooked, now.UTC(), slotID); err != nil {
			return fmt.Errorf("book slot %d: %w", slotID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	booking.ID = id
	booking.CreatedAt = now.UTC()
	booking.UpdatedAt = now.UTC()
	return nil
}

func (db *DB) GetBookingByID(ctx context.Context, id int64) (*models.BookingWithSlots, error) {
	query := fmt.Sprintf(`SELECT id, reference, customer_name, email, phone, equipment_rental, comment, created_at, updated_at
        FROM %s WHERE id = ?`, db.table("bookings"))
	return db.getBooking(ctx, query, id)
}

func (db *DB) GetBookingByReference(ctx context.Context, reference string) (*models.BookingWithSlots, error) {
	query := fmt.Sprintf(`SELECT id, reference, customer_name, email, phone, equipment_rental, comment, created_at, updated_at
        FROM %s WHERE reference = ?`, db.table("bookings"))
	return db.getBooking(ctx, query, reference)
}

func (db *DB) getBooking(ctx context.Context, query string, arg any) (*models.BookingWithSlots, error) {
	var b models.BookingWithSlots
	var comment sql.NullString
	err := db.QueryRowContext(ctx, query, arg).Scan(
		&b.ID,
		&b.Reference,
		&b.CustomerName,
		&b.Email,
		&b.Phone,
		&b.EquipmentRental,
		&comment,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	b.Comment = comment.String

	slots, err := db.getBookingSlots(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Slots = slots
	return &b, nil
}

func (db *DB) getBookingSlots(ctx context.Context, bookingID int64) ([]models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT s.id, s.start_time, s.end_time, s.price_cents, s.status, s.reservation_expiry, s.created_at, s.updated_at
        FROM %s s JOIN %s bts ON bts.time_slot_id = s.id
        WHERE bts.booking_id = ? ORDER BY s.start_time`, db.table("time_slots"), db.table("booking_time_slots"))

	rows, err := db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("query booking slots: %w", err)
	}
	defer rows.Close()

	return scanTimeSlots(rows)
}

// ListBookings returns bookings whose first slot starts inside [from, to),
// newest first, each with its slots attached.
func (db *DB) ListBookings(ctx context.Context, from, to time.Time) ([]models.BookingWithSlots, error) {
	query := fmt.Sprintf(`SELECT DISTINCT b.id, b.reference, b.customer_name, b.email, b.phone, b.equipment_rental, b.comment, b.created_at, b.updated_at
        FROM %s b
        JOIN %s bts ON bts.booking_id = b.id
        JOIN %s s ON s.id = bts.time_slot_id
        WHERE s.start_time >= ? AND s.start_time < ?
        ORDER BY b.created_at DESC`, db.table("bookings"), db.table("booking_time_slots"), db.table("time_slots"))

	rows, err := db.QueryContext(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.BookingWithSlots
	for rows.Next() {
		var b models.BookingWithSlots
		var comment sql.NullString
		err := rows.Scan(&b.ID, &b.Reference, &b.CustomerName, &b.Email, &b.Phone, &b.EquipmentRental, &comment, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.Comment = comment.String
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bookings {
		slots, err := db.getBookingSlots(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		bookings[i].Slots = slots
	}
	return bookings, nil
}

// DeleteBooking removes the booking and its join rows, flipping its slots
// back to available in the same transaction.
func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists int
	checkQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ?`, db.table("bookings"))
	if err := tx.QueryRowContext(ctx, checkQuery, id).Scan(&exists); err != nil {
		return fmt.Errorf("check booking: %w", err)
	}
	if exists == 0 {
		return ErrBookingNotFound
	}

	releaseQuery := fmt.Sprintf(`UPDATE %s SET status = ?, reservation_expiry = NULL, updated_at = ?
        WHERE id IN (SELECT time_slot_id FROM %s WHERE booking_id = ?)`,
		db.table("time_slots"), db.table("booking_time_slots"))
	if _, err := tx.ExecContext(ctx, releaseQuery, models.SlotAvailable, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("release slots: %w", err)
	}

	deleteJoin := fmt.Sprintf(`DELETE FROM %s WHERE booking_id = ?`, db.table("booking_time_slots"))
	if _, err := tx.ExecContext(ctx, deleteJoin, id); err != nil {
		return fmt.Errorf("delete join rows: %w", err)
	}

	deleteBooking := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, db.table("bookings"))
	if _, err := tx.ExecContext(ctx, deleteBooking, id); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetStats collects the admin dashboard numbers in a handful of aggregate
// queries.
func (db *DB) GetStats(ctx context.Context, now time.Time) (*models.Stats, error) {
	stats := &models.Stats{}

	queries := []struct {
		dest  *int64
		query string
		args  []any
	}{
		{&stats.TotalBookings, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, db.table("bookings")), nil},
		{&stats.UpcomingBookings, fmt.Sprintf(`SELECT COUNT(DISTINCT bts.booking_id) FROM %s bts JOIN %s s ON s.id = bts.time_slot_id WHERE s.start_time >= ?`,
			db.table("booking_time_slots"), db.table("time_slots")), []any{now.UTC()}},
		{&stats.BookedSlots, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE status = ?`, db.table("time_slots")), []any{models.SlotBooked}},
		{&stats.AvailableSlots, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE status = ? AND start_time >= ?`, db.table("time_slots")), []any{models.SlotAvailable, now.UTC()}},
		{&stats.RevenueCents, fmt.Sprintf(`SELECT COALESCE(SUM(price_cents), 0) FROM %s WHERE status = ?`, db.table("time_slots")), []any{models.SlotBooked}},
	}

	for _, q := range queries {
		if err := db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("stats query: %w", err)
		}
	}
	return stats, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wakepark/internal/models"
)

func (db *DB) InsertTimeSlots(ctx context.Context, slots []models.TimeSlot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := fmt.Sprintf(`INSERT INTO %s (start_time, end_time, price_cents, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)`, db.table("time_slots"))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	for _, s := range slots {
		status := s.Status
		if status == "" {
			status = models.SlotAvailable
		}
		if _, err := stmt.ExecContext(ctx, s.StartTime.UTC(), s.EndTime.UTC(), s.PriceCents, status, now, now); err != nil {
			return 0, fmt.Errorf("insert slot %s: %w", s.StartTime.Format(time.RFC3339), err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (db *DB) GetTimeSlotsByRange(ctx context.Context, from, to time.Time) ([]models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT id, start_time, end_time, price_cents, status, reservation_expiry, created_at, updated_at
        FROM %s WHERE start_time >= ? AND start_time < ? ORDER BY start_time`, db.table("time_slots"))

	rows, err := db.QueryContext(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	return scanTimeSlots(rows)
}

func (db *DB) GetTimeSlotsByIDs(ctx context.Context, ids []int64) ([]models.TimeSlot, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id, start_time, end_time, price_cents, status, reservation_expiry, created_at, updated_at
        FROM %s WHERE id IN (%s) ORDER BY start_time`, db.table("time_slots"), placeholders(len(ids)))

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query slots by ids: %w", err)
	}
	defer rows.Close()

	return scanTimeSlots(rows)
}

// ReserveTimeSlots places a hold on every slot in one transaction. A slot can
// be held if it is available, or reserved with a lapsed expiry. Any slot that
// fails the check aborts the whole reservation.
func (db *DB) ReserveTimeSlots(ctx context.Context, ids []int64, now, expiry time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	selectQuery := fmt.Sprintf(`SELECT status, reservation_expiry FROM %s WHERE id = ?`, db.table("time_slots"))
	updateQuery := fmt.Sprintf(`UPDATE %s SET status = ?, reservation_expiry = ?, updated_at = ? WHERE id = ?`, db.table("time_slots"))

	for _, id := range ids {
		var status string
		var resExpiry sql.NullTime
		err := tx.QueryRowContext(ctx, selectQuery, id).Scan(&status, &resExpiry)
		if err == sql.ErrNoRows {
			return ErrSlotNotFound
		}
		if err != nil {
			return fmt.Errorf("check slot %d: %w", id, err)
		}

		slot := models.TimeSlot{Status: status}
		if resExpiry.Valid {
			t := resExpiry.Time
			slot.ReservationExpiry = &t
		}
		if !slot.Reservable(now) {
			return ErrSlotUnavailable
		}

		if _, err := tx.ExecContext(ctx, updateQuery, models.SlotReserved, expiry.UTC(), now.UTC(), id); err != nil {
			return fmt.Errorf("reserve slot %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ReleaseTimeSlots drops reservations, returning slots to available. Booked
// slots are left untouched.
func (db *DB) ReleaseTimeSlots(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE %s SET status = ?, reservation_expiry = NULL, updated_at = ?
        WHERE id IN (%s) AND status = ?`, db.table("time_slots"), placeholders(len(ids)))

	args := make([]any, 0, len(ids)+3)
	args = append(args, models.SlotAvailable, time.Now().UTC())
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, models.SlotReserved)

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("release slots: %w", err)
	}
	return nil
}

func (db *DB) GetBookedSlotsFrom(ctx context.Context, from time.Time) ([]models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT id, start_time, end_time, price_cents, status, reservation_expiry, created_at, updated_at
        FROM %s WHERE start_time >= ? AND status = ? ORDER BY start_time`, db.table("time_slots"))

	rows, err := db.QueryContext(ctx, query, from.UTC(), models.SlotBooked)
	if err != nil {
		return nil, fmt.Errorf("query booked slots: %w", err)
	}
	defer rows.Close()

	return scanTimeSlots(rows)
}

func (db *DB) DeleteUnbookedSlotsFrom(ctx context.Context, from time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE start_time >= ? AND status != ?`, db.table("time_slots"))

	result, err := db.ExecContext(ctx, query, from.UTC(), models.SlotBooked)
	if err != nil {
		return 0, fmt.Errorf("delete unbooked slots: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) HasBookedSlotBetween(ctx context.Context, from, to time.Time) (bool, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE start_time >= ? AND start_time < ? AND status = ?`, db.table("time_slots"))

	var count int
	if err := db.QueryRowContext(ctx, query, from.UTC(), to.UTC(), models.SlotBooked).Scan(&count); err != nil {
		return false, fmt.Errorf("count booked slots: %w", err)
	}
	return count > 0, nil
}

func (db *DB) CountFutureSlots(ctx context.Context, from time.Time) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE start_time >= ?`, db.table("time_slots"))

	var count int64
	if err := db.QueryRowContext(ctx, query, from.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count future slots: %w", err)
	}
	return count, nil
}

func scanTimeSlots(rows *sql.Rows) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	for rows.Next() {
		var s models.TimeSlot
		var resExpiry sql.NullTime
		err := rows.Scan(&s.ID, &s.StartTime, &s.EndTime, &s.PriceCents, &s.Status, &resExpiry, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		if resExpiry.Valid {
			t := resExpiry.Time
			s.ReservationExpiry = &t
		}
		s.StartTime = s.StartTime.UTC()
		s.EndTime = s.EndTime.UTC()
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

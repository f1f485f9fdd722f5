package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wakepark/internal/models"
)

func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	query := fmt.Sprintf(`INSERT INTO %s (task_type, booking_id, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, db.table("sync_queue"))
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		task.TaskType,
		task.BookingID,
		task.Payload,
		task.Status,
		task.RetryCount,
		task.LastError,
		now,
		task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("create sync task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

func (db *DB) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	query := fmt.Sprintf(`SELECT id, task_type, booking_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at
              FROM %s
              WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC LIMIT ?`, db.table("sync_queue"))
	rows, err := db.QueryContext(ctx, query, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync tasks: %w", err)
	}
	defer rows.Close()

	return scanSyncTasks(rows)
}

func (db *DB) UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []interface{}
	now := time.Now().UTC()

	switch status {
	case "retry":
		query = fmt.Sprintf(`UPDATE %s SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`, db.table("sync_queue"))
		args = []interface{}{status, errMsg, nextRetryAt, id}
	case "completed", "failed":
		query = fmt.Sprintf(`UPDATE %s SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`, db.table("sync_queue"))
		args = []interface{}{status, errMsg, nextRetryAt, &now, id}
	default:
		query = fmt.Sprintf(`UPDATE %s SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`, db.table("sync_queue"))
		args = []interface{}{status, errMsg, nextRetryAt, id}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update sync task status: %w", err)
	}
	return nil
}

func (db *DB) GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error) {
	query := fmt.Sprintf(`SELECT id, task_type, booking_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at
              FROM %s WHERE status = 'failed' ORDER BY created_at DESC`, db.table("sync_queue"))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get failed sync tasks: %w", err)
	}
	defer rows.Close()

	return scanSyncTasks(rows)
}

func scanSyncTasks(rows *sql.Rows) ([]models.SyncTask, error) {
	var tasks []models.SyncTask
	for rows.Next() {
		var t models.SyncTask
		err := rows.Scan(
			&t.ID, &t.TaskType, &t.BookingID, &t.Payload, &t.Status, &t.RetryCount, &t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sync task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wakepark/internal/models"
)

func (db *DB) GetOperatingHours(ctx context.Context) ([]models.OperatingHours, error) {
	query := fmt.Sprintf(`SELECT weekday, open_time, close_time, is_closed FROM %s ORDER BY weekday`, db.table("operating_hours"))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query operating hours: %w", err)
	}
	defer rows.Close()

	var hours []models.OperatingHours
	for rows.Next() {
		var h models.OperatingHours
		if err := rows.Scan(&h.Weekday, &h.OpenTime, &h.CloseTime, &h.IsClosed); err != nil {
			return nil, fmt.Errorf("scan operating hours: %w", err)
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// ReplaceOperatingHours overwrites the weekly schedule atomically.
func (db *DB) ReplaceOperatingHours(ctx context.Context, hours []models.OperatingHours) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, db.table("operating_hours"))); err != nil {
		return fmt.Errorf("clear operating hours: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO %s (weekday, open_time, close_time, is_closed) VALUES (?, ?, ?, ?)`, db.table("operating_hours"))
	for _, h := range hours {
		if _, err := tx.ExecContext(ctx, insert, h.Weekday, h.OpenTime, h.CloseTime, h.IsClosed); err != nil {
			return fmt.Errorf("insert weekday %d: %w", h.Weekday, err)
		}
	}

	return tx.Commit()
}

func (db *DB) GetPricingRules(ctx context.Context) ([]models.PricingRule, error) {
	query := fmt.Sprintf(`SELECT name, price_cents, start_time, end_time, applies_weekends FROM %s ORDER BY name`, db.table("pricing_rules"))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query pricing rules: %w", err)
	}
	defer rows.Close()

	var rules []models.PricingRule
	for rows.Next() {
		var r models.PricingRule
		var start, end sql.NullString
		if err := rows.Scan(&r.Name, &r.PriceCents, &start, &end, &r.AppliesWeekends); err != nil {
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}
		r.StartTime = start.String
		r.EndTime = end.String
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (db *DB) ReplacePricingRules(ctx context.Context, rules []models.PricingRule) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, db.table("pricing_rules"))); err != nil {
		return fmt.Errorf("clear pricing rules: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO %s (name, price_cents, start_time, end_time, applies_weekends) VALUES (?, ?, ?, ?, ?)`, db.table("pricing_rules"))
	for _, r := range rules {
		if _, err := tx.ExecContext(ctx, insert, r.Name, r.PriceCents, nullable(r.StartTime), nullable(r.EndTime), r.AppliesWeekends); err != nil {
			return fmt.Errorf("insert rule %s: %w", r.Name, err)
		}
	}

	return tx.Commit()
}

// GetLeadTimeSettings returns the singleton settings row, or defaults when
// none has been written yet.
func (db *DB) GetLeadTimeSettings(ctx context.Context) (*models.LeadTimeSettings, error) {
	query := fmt.Sprintf(`SELECT mode, lead_time_days, operator_on_site, updated_at FROM %s WHERE id = 1`, db.table("lead_time_settings"))

	var s models.LeadTimeSettings
	err := db.QueryRowContext(ctx, query).Scan(&s.Mode, &s.LeadTimeDays, &s.OperatorOnSite, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return &models.LeadTimeSettings{Mode: models.LeadTimeOff}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead time settings: %w", err)
	}
	return &s, nil
}

func (db *DB) UpdateLeadTimeSettings(ctx context.Context, settings *models.LeadTimeSettings) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, mode, lead_time_days, operator_on_site, updated_at)
        VALUES (1, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            mode = excluded.mode,
            lead_time_days = excluded.lead_time_days,
            operator_on_site = excluded.operator_on_site,
            updated_at = excluded.updated_at`, db.table("lead_time_settings"))

	_, err := db.ExecContext(ctx, query, settings.Mode, settings.LeadTimeDays, settings.OperatorOnSite, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update lead time settings: %w", err)
	}
	return nil
}

func (db *DB) GetConfigValue(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE name = ?`, db.table("configuration"))

	var value string
	err := db.QueryRowContext(ctx, query, name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrConfigNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get config %s: %w", name, err)
	}
	return value, nil
}

func (db *DB) SetConfigValue(ctx context.Context, name, value string) error {
	query := fmt.Sprintf(`INSERT INTO %s (name, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, db.table("configuration"))

	if _, err := db.ExecContext(ctx, query, name, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("set config %s: %w", name, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

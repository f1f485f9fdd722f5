// Package schedule holds the calendar logic: slot generation from operating
// hours, peak pricing, the lead-time gate and regeneration planning. All
// functions take plain in-memory inputs; storage and HTTP live elsewhere.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"wakepark/internal/models"
	"wakepark/internal/timezone"
)

// Generate produces every bookable slot between start and end, both taken as
// park calendar dates, inclusive. Days whose weekday has no operating-hours
// record, or is marked closed, yield nothing. The walk runs in local civil
// time in 30-minute steps and each slot is emitted in UTC.
//
// A malformed open/close string fails the whole call: publishing a calendar
// built from defaulted hours is worse than publishing none.
func Generate(start, end time.Time, hours []models.OperatingHours, rules []models.PricingRule) ([]models.TimeSlot, error) {
	byWeekday := make(map[int]models.OperatingHours, len(hours))
	for _, h := range hours {
		byWeekday[h.Weekday] = h
	}

	prices := resolvePrices(rules)

	var slots []models.TimeSlot
	day := timezone.LocalDate(start)
	last := timezone.LocalDate(end)

	for !day.After(last) {
		h, ok := byWeekday[int(day.Weekday())]
		if ok && !h.IsClosed {
			daySlots, err := generateDay(day, h, prices)
			if err != nil {
				return nil, fmt.Errorf("generate %s: %w", day.Format("2006-01-02"), err)
			}
			slots = append(slots, daySlots...)
		}
		day = day.AddDate(0, 0, 1)
	}

	return slots, nil
}

func generateDay(day time.Time, h models.OperatingHours, prices priceTable) ([]models.TimeSlot, error) {
	openH, openM, err := ParseClock(h.OpenTime)
	if err != nil {
		return nil, fmt.Errorf("open time %q: %w", h.OpenTime, err)
	}
	closeH, closeM, err := ParseClock(h.CloseTime)
	if err != nil {
		return nil, fmt.Errorf("close time %q: %w", h.CloseTime, err)
	}

	openMin := openH*60 + openM
	closeMin := closeH*60 + closeM
	if closeMin <= openMin {
		return nil, fmt.Errorf("close time %s is not after open time %s", h.CloseTime, h.OpenTime)
	}

	step := int(models.SlotDuration.Minutes())
	weekday := day.Weekday()

	var slots []models.TimeSlot
	// The last slot must fit entirely before closing, never overrun it.
	for cur := openMin; cur+step <= closeMin; cur += step {
		startUTC := timezone.FromLocal(day.Year(), day.Month(), day.Day(), cur/60, cur%60)
		// Spring-forward folds local starts inside the skipped hour onto the
		// following hour; keep a single slot per UTC instant.
		if n := len(slots); n > 0 && !startUTC.After(slots[n-1].StartTime) {
			continue
		}
		slots = append(slots, models.TimeSlot{
			StartTime:  startUTC,
			EndTime:    startUTC.Add(models.SlotDuration),
			PriceCents: prices.forSlot(weekday, cur/60),
			Status:     models.SlotAvailable,
		})
	}

	return slots, nil
}

// IsPeak applies the fixed peak rule: weekends all day, weekday evenings
// between 17:00 and 22:00 local, end exclusive.
func IsPeak(weekday time.Weekday, localHour int) bool {
	if weekday == time.Saturday || weekday == time.Sunday {
		return true
	}
	return localHour >= models.PeakStartHour && localHour < models.PeakEndHour
}

type priceTable struct {
	standard int64
	peak     int64
}

func (p priceTable) forSlot(weekday time.Weekday, localHour int) int64 {
	if IsPeak(weekday, localHour) {
		return p.peak
	}
	return p.standard
}

func resolvePrices(rules []models.PricingRule) priceTable {
	prices := priceTable{
		standard: models.DefaultStandardPriceCents,
		peak:     models.DefaultPeakPriceCents,
	}
	for _, r := range rules {
		switch r.Name {
		case models.PricingStandard:
			prices.standard = r.PriceCents
		case models.PricingPeak:
			prices.peak = r.PriceCents
		}
	}
	return prices
}

// ParseClock parses a strict "HH:MM" 24-hour string.
func ParseClock(s string) (hour, min int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM")
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour %q", parts[0])
	}
	min, err = strconv.Atoi(parts[1])
	if err != nil || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("invalid minute %q", parts[1])
	}
	return hour, min, nil
}

// ValidateOperatingHours checks an admin-supplied weekly schedule before it is
// written, so generation never sees malformed records.
func ValidateOperatingHours(hours []models.OperatingHours) error {
	seen := make(map[int]bool, len(hours))
	for _, h := range hours {
		if h.Weekday < 0 || h.Weekday > 6 {
			return fmt.Errorf("weekday %d out of range", h.Weekday)
		}
		if seen[h.Weekday] {
			return fmt.Errorf("duplicate weekday %d", h.Weekday)
		}
		seen[h.Weekday] = true
		if h.IsClosed {
			continue
		}
		openH, openM, err := ParseClock(h.OpenTime)
		if err != nil {
			return fmt.Errorf("weekday %d open time: %w", h.Weekday, err)
		}
		closeH, closeM, err := ParseClock(h.CloseTime)
		if err != nil {
			return fmt.Errorf("weekday %d close time: %w", h.Weekday, err)
		}
		if closeH*60+closeM <= openH*60+openM {
			return fmt.Errorf("weekday %d closes before it opens", h.Weekday)
		}
	}
	return nil
}

package schedule

import (
	"time"

	"wakepark/internal/models"
)

// FilterAgainstBooked drops generated slots whose UTC start coincides with a
// preserved booked slot, so regeneration never creates a duplicate time
// period. Returns the surviving slots and the number filtered out.
func FilterAgainstBooked(generated, booked []models.TimeSlot) ([]models.TimeSlot, int) {
	if len(booked) == 0 {
		return generated, 0
	}

	taken := make(map[time.Time]bool, len(booked))
	for _, s := range booked {
		taken[s.StartTime.UTC()] = true
	}

	kept := generated[:0]
	dropped := 0
	for _, s := range generated {
		if taken[s.StartTime.UTC()] {
			dropped++
			continue
		}
		kept = append(kept, s)
	}
	return kept, dropped
}

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"wakepark/internal/database"
	"wakepark/internal/metrics"
	"wakepark/internal/models"
	"wakepark/internal/schedule"
	"wakepark/internal/service"
	"wakepark/internal/timezone"
)

// handleTimeSlots serves the public calendar. startDate/endDate are park
// calendar dates (YYYY-MM-DD), endDate inclusive.
func (s *HTTPServer) handleTimeSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slots, err := s.schedules.GetTimeSlots(r.Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("get time slots")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if slots == nil {
		// Days with no operating hours are an empty calendar, not an error.
		slots = []models.TimeSlot{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"time_slots": slots})
}

func (s *HTTPServer) handleReserve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		SlotIDs []int64 `json:"slot_ids"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.SlotIDs) == 0 {
		writeError(w, http.StatusBadRequest, "slot_ids is required")
		return
	}

	// Online reservations pass the lead-time gate; the check keys off the
	// earliest requested slot.
	decision, err := s.checkLeadTimeForSlots(r, body.SlotIDs)
	if err != nil {
		s.logger.Error().Err(err).Msg("lead-time check")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !decision.Allowed {
		metrics.IncLeadTimeDenied()
		writeJSON(w, http.StatusForbidden, decision)
		return
	}

	expiry, err := s.bookings.ReserveSlots(r.Context(), body.SlotIDs)
	if err != nil {
		if errors.Is(err, database.ErrSlotNotFound) {
			writeError(w, http.StatusNotFound, "time slot not found")
			return
		}
		if service.IsConflict(err) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("reserve slots")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reserved_until": expiry,
		"slot_ids":       body.SlotIDs,
	})
}

func (s *HTTPServer) handleRelease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		SlotIDs []int64 `json:"slot_ids"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.SlotIDs) == 0 {
		writeError(w, http.StatusBadRequest, "slot_ids is required")
		return
	}

	if err := s.bookings.ReleaseSlots(r.Context(), body.SlotIDs); err != nil {
		s.logger.Error().Err(err).Msg("release slots")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func (s *HTTPServer) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, err := s.schedules.Regenerate(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("regenerate slots")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleLeadTimeCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := parseLocalDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	writeJSON(w, http.StatusOK, s.leadTime.CheckAllowed(r.Context(), date))
}

// checkLeadTimeForSlots runs the lead-time policy against the earliest of the
// requested slots. Unknown slot IDs are left for the reserve call to reject.
func (s *HTTPServer) checkLeadTimeForSlots(r *http.Request, slotIDs []int64) (schedule.Decision, error) {
	slots, err := s.bookings.SlotsByIDs(r.Context(), slotIDs)
	if err != nil {
		return schedule.Decision{}, err
	}
	if len(slots) == 0 {
		return schedule.Decision{Allowed: true}, nil
	}

	earliest := slots[0].StartTime
	for _, slot := range slots[1:] {
		if slot.StartTime.Before(earliest) {
			earliest = slot.StartTime
		}
	}
	return s.leadTime.CheckAllowed(r.Context(), earliest), nil
}

// parseDateRange reads startDate/endDate query params as park calendar dates
// and returns the matching UTC window, endDate inclusive.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	startStr := strings.TrimSpace(r.URL.Query().Get("startDate"))
	endStr := strings.TrimSpace(r.URL.Query().Get("endDate"))
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, errParam("startDate and endDate are required")
	}

	start, err := parseLocalDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, errParam("invalid startDate; expected YYYY-MM-DD")
	}
	end, err := parseLocalDate(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, errParam("invalid endDate; expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errParam("endDate is before startDate")
	}

	from := timezone.StartOfLocalDay(start)
	to := timezone.StartOfLocalDay(end.AddDate(0, 0, 1))
	return from, to, nil
}

// parseLocalDate interprets YYYY-MM-DD as a park calendar date, returning the
// UTC instant of local midnight.
func parseLocalDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return timezone.FromLocal(d.Year(), d.Month(), d.Day(), 0, 0), nil
}

type paramError string

func (e paramError) Error() string { return string(e) }

func errParam(msg string) error { return paramError(msg) }

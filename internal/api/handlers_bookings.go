package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wakepark/internal/database"
	"wakepark/internal/export"
	"wakepark/internal/models"
	"wakepark/internal/service"
	"wakepark/internal/timezone"
)

// handleBookings confirms a held reservation into a booking.
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		CustomerName    string  `json:"customer_name"`
		Email           string  `json:"email"`
		Phone           string  `json:"phone"`
		EquipmentRental bool    `json:"equipment_rental"`
		Comment         string  `json:"comment"`
		SlotIDs         []int64 `json:"slot_ids"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := validateBookingBody(body.CustomerName, body.Phone, body.SlotIDs); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), service.BookingRequest{
		CustomerName:    strings.TrimSpace(body.CustomerName),
		Email:           strings.TrimSpace(body.Email),
		Phone:           strings.TrimSpace(body.Phone),
		EquipmentRental: body.EquipmentRental,
		Comment:         strings.TrimSpace(body.Comment),
		SlotIDs:         body.SlotIDs,
	})
	if err != nil {
		if errors.Is(err, database.ErrSlotNotFound) {
			writeError(w, http.StatusNotFound, "time slot not found")
			return
		}
		if service.IsConflict(err) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("create booking")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

// handleBookingByPath serves /api/bookings/{reference} lookups and
// /api/bookings/{id} cancellations.
func (s *HTTPServer) handleBookingByPath(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/api/bookings/")
	if tail == "" || strings.Contains(tail, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getBookingByReference(w, r, tail)
	case http.MethodDelete:
		// Cancellation is back-office only.
		s.auth.Require(func(w http.ResponseWriter, r *http.Request) {
			s.cancelBooking(w, r, tail)
		})(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) getBookingByReference(w http.ResponseWriter, r *http.Request, reference string) {
	booking, err := s.bookings.GetBookingByReference(r.Context(), reference)
	if err != nil {
		if errors.Is(err, database.ErrBookingNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		s.logger.Error().Err(err).Msg("get booking")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) cancelBooking(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	if err := s.bookings.CancelBooking(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrBookingNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		s.logger.Error().Err(err).Msg("cancel booking")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleAdminBookings lists bookings for the back office, optionally narrowed
// to a date range.
func (s *HTTPServer) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from, to, err := adminRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.bookings.ListBookings(r.Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("list bookings")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.bookings.Stats(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("get stats")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleExport serves the admin booking export: GET streams the xlsx
// workbook, POST writes it to the configured exports directory on the host.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.streamExport(w, r)
	case http.MethodPost:
		s.saveExport(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) streamExport(w http.ResponseWriter, r *http.Request) {
	bookings, ok := s.exportBookings(w, r)
	if !ok {
		return
	}

	file, err := export.BookingsWorkbook(bookings)
	if err != nil {
		s.logger.Error().Err(err).Msg("build export workbook")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer file.Close()

	filename := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if err := file.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("stream export workbook")
	}
}

func (s *HTTPServer) saveExport(w http.ResponseWriter, r *http.Request) {
	bookings, ok := s.exportBookings(w, r)
	if !ok {
		return
	}

	path, err := export.SaveBookings(bookings, s.cfg.Exports.Path)
	if err != nil {
		s.logger.Error().Err(err).Msg("save export workbook")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info().Str("path", path).Int("bookings", len(bookings)).Msg("export saved")
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func (s *HTTPServer) exportBookings(w http.ResponseWriter, r *http.Request) ([]models.BookingWithSlots, bool) {
	from, to, err := adminRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	bookings, err := s.bookings.ListBookings(r.Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("list bookings for export")
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return bookings, true
}

// adminRange reads optional from/to date params; absent bounds default to a
// wide open window.
func adminRange(r *http.Request) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := parseLocalDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, errParam("invalid from; expected YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		parsed, err := parseLocalDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, errParam("invalid to; expected YYYY-MM-DD")
		}
		to = timezone.StartOfLocalDay(parsed.AddDate(0, 0, 1))
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errParam("to is before from")
	}
	return from, to, nil
}

func validateBookingBody(name, phone string, slotIDs []int64) string {
	if strings.TrimSpace(name) == "" {
		return "customer_name is required"
	}
	if strings.TrimSpace(phone) == "" {
		return "phone is required"
	}
	if len(slotIDs) == 0 {
		return "slot_ids is required"
	}
	return ""
}

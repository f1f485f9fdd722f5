package api

import (
	"errors"
	"net/http"
	"strings"

	"wakepark/internal/database"
	"wakepark/internal/models"
)

func (s *HTTPServer) handleOperatingHours(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		hours, err := s.schedules.GetOperatingHours(r.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("get operating hours")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"operating_hours": hours})

	case http.MethodPut:
		var body struct {
			OperatingHours []models.OperatingHours `json:"operating_hours"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.schedules.UpdateOperatingHours(r.Context(), body.OperatingHours); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handlePricing(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rules, err := s.schedules.GetPricingRules(r.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("get pricing rules")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"pricing_rules": rules})

	case http.MethodPut:
		var body struct {
			PricingRules []models.PricingRule `json:"pricing_rules"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.schedules.UpdatePricingRules(r.Context(), body.PricingRules); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleLeadTimeSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.schedules.GetLeadTimeSettings(r.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("get lead-time settings")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, settings)

	case http.MethodPut:
		var settings models.LeadTimeSettings
		if err := decodeJSON(r, &settings); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.schedules.UpdateLeadTimeSettings(r.Context(), &settings); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleGenericConfig serves the free-form key/value settings under
// /api/config/{name}, e.g. visibility_weeks.
func (s *HTTPServer) handleGenericConfig(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/config/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		value, err := s.schedules.GetConfigValue(r.Context(), name)
		if err != nil {
			if errors.Is(err, database.ErrConfigNotFound) {
				writeError(w, http.StatusNotFound, "setting not found")
				return
			}
			s.logger.Error().Err(err).Msg("get config value")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"name": name, "value": value})

	case http.MethodPut:
		var body struct {
			Value string `json:"value"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.schedules.SetConfigValue(r.Context(), name, body.Value); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"name": name, "value": body.Value})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

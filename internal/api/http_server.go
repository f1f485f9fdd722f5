// Package api exposes the booking system over REST. Public endpoints serve
// the calendar SPA; admin endpoints sit behind cookie-session auth.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wakepark/internal/config"
	"wakepark/internal/domain"
	"wakepark/internal/schedule"
	"wakepark/internal/service"

	"github.com/rs/zerolog"
)

type HTTPServer struct {
	cfg       *config.Config
	bookings  *service.BookingService
	schedules *service.ScheduleService
	leadTime  *schedule.Evaluator
	sessions  domain.SessionRepository
	auth      *SessionAuth
	limiter   *ipLimiter
	server    *http.Server
	logger    zerolog.Logger
}

func NewHTTPServer(
	cfg *config.Config,
	bookings *service.BookingService,
	schedules *service.ScheduleService,
	leadTime *schedule.Evaluator,
	sessions domain.SessionRepository,
	logger *zerolog.Logger,
) *HTTPServer {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}

	srv := &HTTPServer{
		cfg:       cfg,
		bookings:  bookings,
		schedules: schedules,
		leadTime:  leadTime,
		sessions:  sessions,
		limiter:   newIPLimiter(cfg.RateLimit),
		logger:    base,
	}
	srv.auth = NewSessionAuth(cfg.Admin, sessions, &base)

	mux := http.NewServeMux()

	// Public calendar and booking flow.
	mux.HandleFunc("/api/timeslots", srv.handleTimeSlots)
	mux.HandleFunc("/api/timeslots/reserve", srv.limited(srv.handleReserve))
	mux.HandleFunc("/api/timeslots/release", srv.limited(srv.handleRelease))
	mux.HandleFunc("/api/bookings", srv.limited(srv.handleBookings))
	mux.HandleFunc("/api/bookings/", srv.handleBookingByPath)
	mux.HandleFunc("/api/lead-time/check", srv.handleLeadTimeCheck)

	// Admin auth.
	mux.HandleFunc("/api/admin/login", srv.auth.HandleLogin)
	mux.HandleFunc("/api/admin/logout", srv.auth.HandleLogout)

	// Admin back office.
	mux.HandleFunc("/api/admin/bookings", srv.auth.Require(srv.handleAdminBookings))
	mux.HandleFunc("/api/admin/export", srv.auth.Require(srv.handleExport))
	mux.HandleFunc("/api/timeslots/regenerate", srv.auth.Require(srv.handleRegenerate))
	mux.HandleFunc("/api/stats", srv.auth.Require(srv.handleStats))
	mux.HandleFunc("/api/config/operating-hours", srv.auth.Require(srv.handleOperatingHours))
	mux.HandleFunc("/api/config/pricing", srv.auth.Require(srv.handlePricing))
	mux.HandleFunc("/api/config/lead-time", srv.auth.Require(srv.handleLeadTimeSettings))
	mux.HandleFunc("/api/config/", srv.auth.Require(srv.handleGenericConfig))

	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.requestIDMiddleware(srv.loggingMiddleware(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler returns the composed handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// decodeJSON parses a request body strictly; unknown fields are rejected so
// client typos surface as 400s instead of silently dropped fields.
func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

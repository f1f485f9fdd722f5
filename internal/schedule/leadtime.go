package schedule

import (
	"context"
	"time"

	"wakepark/internal/models"
	"wakepark/internal/timezone"

	"github.com/rs/zerolog"
)

// Decision is the lead-time verdict for a candidate booking date.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

// LeadTimeStore is the slice of storage the evaluator needs.
type LeadTimeStore interface {
	GetLeadTimeSettings(ctx context.Context) (*models.LeadTimeSettings, error)
	HasBookedSlotBetween(ctx context.Context, from, to time.Time) (bool, error)
}

// Evaluator gates online bookings by required advance notice.
//
// failOpen makes storage failures answer "allowed". That favors availability
// over strictness and is configurable rather than baked in; deployments that
// would rather turn customers away than overbook can flip it off.
type Evaluator struct {
	store    LeadTimeStore
	failOpen bool
	now      func() time.Time
	logger   zerolog.Logger
}

func NewEvaluator(store LeadTimeStore, failOpen bool, logger *zerolog.Logger) *Evaluator {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "leadtime").Logger()
	}
	return &Evaluator{
		store:    store,
		failOpen: failOpen,
		now:      time.Now,
		logger:   base,
	}
}

// WithClock fixes the evaluator's wall clock, for tests.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// CheckAllowed decides whether an online booking for the candidate date may
// proceed. Day difference is computed on park civil dates, not UTC dates,
// to match what the operator sees on the wall calendar.
func (e *Evaluator) CheckAllowed(ctx context.Context, candidate time.Time) Decision {
	settings, err := e.store.GetLeadTimeSettings(ctx)
	if err != nil {
		return e.failure(err)
	}
	if settings == nil || settings.Mode == models.LeadTimeOff {
		return Decision{Allowed: true, Mode: models.LeadTimeOff}
	}

	if settings.OperatorOnSite {
		return Decision{Allowed: true, Reason: models.ReasonOperatorOnSite, Mode: settings.Mode}
	}

	days := timezone.DaysBetween(e.now(), candidate)
	if days >= settings.LeadTimeDays {
		return Decision{Allowed: true, Mode: settings.Mode}
	}

	if settings.Mode == models.LeadTimeBookingBased {
		dayStart := timezone.StartOfLocalDay(candidate)
		booked, err := e.store.HasBookedSlotBetween(ctx, dayStart, dayStart.Add(24*time.Hour))
		if err != nil {
			return e.failure(err)
		}
		if booked {
			// A session already runs that day, so the boat is out anyway.
			return Decision{Allowed: true, Reason: models.ReasonBookingBasedOverride, Mode: settings.Mode}
		}
	}

	return Decision{Allowed: false, Reason: models.ReasonLeadTimeNotMet, Mode: settings.Mode}
}

func (e *Evaluator) failure(err error) Decision {
	e.logger.Error().Err(err).Bool("fail_open", e.failOpen).Msg("lead-time check failed")
	return Decision{Allowed: e.failOpen}
}

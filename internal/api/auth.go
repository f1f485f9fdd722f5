package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"wakepark/internal/config"
	"wakepark/internal/domain"
	"wakepark/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	loginAttemptLimit  = 5
	loginAttemptWindow = time.Minute
)

// SessionAuth implements cookie-session auth for the admin back office.
// Credentials come from config; sessions live in the session repository.
type SessionAuth struct {
	cfg      config.AdminConfig
	sessions domain.SessionRepository
	logger   zerolog.Logger
}

func NewSessionAuth(cfg config.AdminConfig, sessions domain.SessionRepository, logger *zerolog.Logger) *SessionAuth {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "auth").Logger()
	}
	return &SessionAuth{cfg: cfg, sessions: sessions, logger: base}
}

func (a *SessionAuth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Credential guessing gets throttled per client address. A broken
	// counter backend must not lock every operator out.
	allowed, err := a.sessions.CheckRateLimit(r.Context(), "login:"+clientKey(r), loginAttemptLimit, loginAttemptWindow)
	if err != nil {
		a.logger.Error().Err(err).Msg("login rate limit check")
	} else if !allowed {
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var body struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	account, ok := a.verify(body.Name, body.Password)
	if !ok {
		a.logger.Warn().Str("name", body.Name).Msg("failed login attempt")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	now := time.Now()
	session := &models.Session{
		Token:     uuid.NewString(),
		AdminName: account.Name,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(a.cfg.SessionTTLHours) * time.Hour),
	}
	if err := a.sessions.SetSession(r.Context(), session); err != nil {
		a.logger.Error().Err(err).Msg("store session")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"name": account.Name})
}

func (a *SessionAuth) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if cookie, err := r.Cookie(a.cfg.CookieName); err == nil {
		if err := a.sessions.DeleteSession(r.Context(), cookie.Value); err != nil {
			a.logger.Error().Err(err).Msg("delete session")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Require guards an admin handler behind a valid session cookie.
func (a *SessionAuth) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(a.cfg.CookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		session, err := a.sessions.GetSession(r.Context(), cookie.Value)
		if err != nil {
			a.logger.Error().Err(err).Msg("load session")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if session == nil || session.Expired(time.Now()) {
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}

		next(w, r)
	}
}

func (a *SessionAuth) verify(name, password string) (config.AdminAccount, bool) {
	// Compare against every account to keep timing independent of which
	// name matched.
	var found config.AdminAccount
	ok := false
	for _, account := range a.cfg.Accounts {
		nameMatch := subtle.ConstantTimeCompare([]byte(account.Name), []byte(name)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(account.Password), []byte(password)) == 1
		if nameMatch && passMatch {
			found = account
			ok = true
		}
	}
	return found, ok
}

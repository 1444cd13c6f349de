package api

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"lessonbook/internal/config"
	"lessonbook/internal/domain"
	"lessonbook/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	apiKeyHeaderDefault = "x-api-key"
	userIDHeader        = "X-User-ID"
	userAdminHeader     = "X-User-Admin"
	adminSecretHeader   = "X-Admin-Secret"
)

// HTTPAuth provides API-key auth and per-caller rate limiting. Caller
// identity is separate: the fronting identity service verifies the user and
// asserts it through X-User-ID and X-User-Admin, which we trust once the
// API key has checked out.
//
// The limit is enforced in two layers: a local token bucket shapes bursts
// within this instance, and the shared lock repository counts requests
// across all instances so the cap holds cluster-wide.
type HTTPAuth struct {
	cfg      config.APIConfig
	clients  map[string]config.APIClientKey
	locks    domain.LockRepository
	logger   *zerolog.Logger
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig, locks domain.LockRepository, logger *zerolog.Logger) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m, locks: locks, logger: logger}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	header := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = apiKeyHeaderDefault
	}

	apiKey := strings.TrimSpace(r.Header.Get(header))
	if apiKey == "" {
		return fmt.Errorf("missing api key header")
	}

	for key := range a.clients {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return nil
		}
	}
	return fmt.Errorf("invalid api key")
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	key := a.clientKey(r)
	lim := a.getLimiter(key)
	if !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}

	if a.locks == nil {
		return nil
	}

	// Shared fixed window: the sustained rate over a minute, with the burst
	// allowance as headroom. Counted in the lock repository so every
	// instance draws from the same budget.
	limit := int(a.cfg.RateLimit.RPS*60) + a.cfg.RateLimit.Burst
	ok, err := a.locks.CheckRateLimit(r.Context(), key, limit, time.Minute)
	if err != nil {
		// A broken limit store must not take the API down.
		a.logger.Warn().Err(err).Str("key", key).Msg("rate limit store unavailable, allowing request")
		return nil
	}
	if !ok {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

// clientKey buckets rate limits per caller: the asserted user when present,
// otherwise the remote host.
func (a *HTTPAuth) clientKey(r *http.Request) string {
	if userID := strings.TrimSpace(r.Header.Get(userIDHeader)); userID != "" {
		return userID
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

// callerIdentity extracts the verified identity headers. The user record,
// if any, comes from the store; the admin flag is whatever the identity
// service asserted for this request.
func callerIdentity(r *http.Request) (userID string, isAdmin bool) {
	userID = strings.TrimSpace(r.Header.Get(userIDHeader))
	admin := strings.TrimSpace(r.Header.Get(userAdminHeader))
	isAdmin = admin == "true" || admin == "1"
	return userID, isAdmin
}

// callerAsUser builds the caller's user record for service-level checks. A
// caller unknown to the store still carries a valid asserted identity.
func (s *HTTPServer) callerAsUser(r *http.Request) (*models.User, error) {
	userID, isAdmin := callerIdentity(r)
	if userID == "" {
		return nil, fmt.Errorf("missing %s header", userIDHeader)
	}

	caller, err := s.users.GetUser(r.Context(), userID)
	if err != nil {
		caller = &models.User{ID: userID}
	}
	caller.IsAdmin = isAdmin
	return caller, nil
}

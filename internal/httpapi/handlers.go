package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"digytal.com/control/internal/account"
	"digytal.com/control/internal/auth"
	"digytal.com/control/internal/catalog"
	"digytal.com/control/internal/obs"
	"digytal.com/control/internal/onboarding"
)

const serviceName = "control-api"

// ReadyProbe pings the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Services are the domain entry points the HTTP layer dispatches to.
type Services struct {
	Authenticator *auth.Authenticator
	Passwords     *auth.PasswordService
	Onboarding    *onboarding.Service
	Catalog       *catalog.Service
	Accounts      *account.Service
}

// API is the HTTP layer.
type API struct {
	mux         *http.ServeMux
	readyProbe  readinessChecker
	version     string
	svc         Services
	rateBurst   int
	ratePerSec  int
	corsOrigins []string
	maxBody     int64
}

// Option configures API.
type Option func(*API)

// WithRateLimit sets the per-client token bucket.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		if burst > 0 {
			a.rateBurst = burst
		}
		if perSecond > 0 {
			a.ratePerSec = perSecond
		}
	}
}

// WithCORSOrigins lists browser origins allowed to call the API.
func WithCORSOrigins(origins ...string) Option {
	return func(a *API) {
		for _, o := range origins {
			if o = strings.TrimSpace(o); o != "" {
				a.corsOrigins = append(a.corsOrigins, o)
			}
		}
	}
}

func New(rp readinessChecker, version string, svc Services, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		svc:        svc,
		rateBurst:  20,
		ratePerSec: 10,
		maxBody:    1 << 20,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/password/reset", a.handleResetRequest)
	a.mux.HandleFunc("/v1/auth/password/confirm", a.handleResetConfirm)
	a.mux.HandleFunc("/v1/auth/password", a.handlePasswordChange)
	a.mux.HandleFunc("/v1/first-access", a.handleFirstAccess)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	a.mux.HandleFunc("/v1/applications/", a.handleApplications)
	a.mux.HandleFunc("/v1/accounts", a.handleAccountsCollection)
	a.mux.HandleFunc("/v1/accounts/", a.handleAccountResource)
	a.mux.HandleFunc("/v1/payment-methods/", a.handlePaymentMethodResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the mux wrapped in the full middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBody)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

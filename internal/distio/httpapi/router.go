// Package httpapi wires the distribution server's four HTTP routes behind
// the same middleware stack (request ID, logging, metrics, CORS,
// compression, security headers) the rest of the codebase's HTTP surface
// uses.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lighty-launcher/distserver/internal/api/middleware"
	"github.com/lighty-launcher/distserver/internal/config"
	"github.com/lighty-launcher/distserver/internal/distio/contentcache"
	distmetrics "github.com/lighty-launcher/distserver/internal/distio/metrics"
	"github.com/lighty-launcher/distserver/internal/distio/manifeststore"
	"github.com/lighty-launcher/distserver/internal/distio/orchestrator"
	pkgmiddleware "github.com/lighty-launcher/distserver/pkg/middleware"
)

// Options configures the rescan route's rate limit; zero values take the
// documented defaults.
type Options struct {
	RescanRateLimitPerMinute int
	RescanRateLimitBurst     int
}

func (o Options) withDefaults() Options {
	if o.RescanRateLimitPerMinute <= 0 {
		o.RescanRateLimitPerMinute = 10
	}
	if o.RescanRateLimitBurst <= 0 {
		o.RescanRateLimitBurst = 3
	}
	return o
}

// New builds the router. cfgSource must stay live across hot-reloads — pass
// a *reload.Controller (which implements Current() *config.Config) in
// production, or Static(cfg) for tests and simple single-shot deployments.
func New(cfgSource configSource, store *manifeststore.Store, cache *contentcache.Cache, orch *orchestrator.Orchestrator, logger *slog.Logger, opts Options) *mux.Router {
	opts = opts.withDefaults()
	h := newHandlers(cfgSource, store, cache, orch)

	r := mux.NewRouter()
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(distmetrics.HTTPMiddleware)
	r.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig()))
	r.Use(middleware.CompressionMiddleware)
	r.Use(pkgmiddleware.SecureHeaders())

	r.HandleFunc("/", h.ListProfiles).Methods(http.MethodGet)
	r.HandleFunc("/{name}.json", h.Manifest).Methods(http.MethodGet)

	rescanLimiter := newIPRateLimiter(opts.RescanRateLimitPerMinute, opts.RescanRateLimitBurst)
	rescan := r.Path("/rescan/{name}").Subrouter()
	rescan.Use(rateLimitMiddleware(rescanLimiter))
	rescan.HandleFunc("", h.Rescan).Methods(http.MethodPost)

	r.HandleFunc("/{name}/{rest:.*}", h.ServeFile).Methods(http.MethodGet)

	return r
}

// Static wraps a fixed *config.Config as a configSource for tests and
// deployments that never hot-reload.
func Static(cfg *config.Config) configSource {
	return staticConfigSource{cfg: cfg}
}

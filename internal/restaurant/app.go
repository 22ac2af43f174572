// Package restaurant wires the menu and order routes into one HTTP handler.
package restaurant

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"Restaurant/internal/menu"
	"Restaurant/internal/order"
	"Restaurant/pkg/kit"
)

const readyTimeout = 1 * time.Second

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
	TracingEnabled bool

	// PlaceLimiter throttles order placement; nil disables it.
	PlaceLimiter *kit.IPRateLimiter
}

type App struct {
	Menu   *menu.Store
	Orders *order.Engine
	Log    *zap.Logger
}

type homeResp struct {
	Menu  map[string]menu.Dish `json:"menu"`
	Order map[int]order.Order  `json:"order"`
}

func NewHandler(a *App, deps HTTPDeps) http.Handler {
	if a.Log == nil {
		a.Log = zap.NewNop()
	}

	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, deps)

	r.Get("/healthz", healthz)
	r.Get("/readyz", a.readyz)

	r.Get("/", a.home)
	r.Get("/exit", a.exit)

	(&menu.Server{Store: a.Menu, Log: a.Log}).Register(r)
	(&order.Server{Engine: a.Orders, Log: a.Log, PlaceLimiter: deps.PlaceLimiter}).Register(r)

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
	if deps.TracingEnabled {
		r.Use(kit.Tracing(deps.Service))
	}
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry, deps.Service)
	r.Use(metrics.Middleware(deps.Service, kit.RoutePattern))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (a *App) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := errors.Join(a.Menu.Ping(ctx), a.Orders.Ping(ctx)); err != nil {
		a.Log.Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *App) home(w http.ResponseWriter, r *http.Request) {
	dishes, err := a.Menu.List(r.Context())
	if err != nil {
		a.serverError(w, r, "list menu failed", err)
		return
	}
	orders, err := a.Orders.List(r.Context())
	if err != nil {
		a.serverError(w, r, "list orders failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, homeResp{Menu: dishes, Order: orders})
}

// exit flushes both snapshots. The process keeps serving; shutdown is
// driven by signals.
func (a *App) exit(w http.ResponseWriter, r *http.Request) {
	if err := a.Flush(r.Context()); err != nil {
		a.serverError(w, r, "flush snapshots failed", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Exiting the application..."))
}

// Flush writes both snapshots; used by /exit and on shutdown.
func (a *App) Flush(ctx context.Context) error {
	return errors.Join(a.Menu.Flush(ctx), a.Orders.Flush(ctx))
}

func (a *App) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	a.Log.Error(msg, zap.Error(err))
	kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
}

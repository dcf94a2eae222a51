package pos

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"MiniMart/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	SessionLimitPerMin int
}

const (
	readyTimeout       = 1 * time.Second
	sessionLimitWindow = 60 * time.Second
)

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if s.Log == nil {
		s.Log = deps.Log
	}

	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, s, deps)
	setupRoutes(r, s, deps)

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, s *Server, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service))
	if s.Metrics == nil {
		s.Metrics = NewMetrics(deps.Registry)
	}

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func setupRoutes(r *chi.Mux, s *Server, deps HTTPDeps) {
	limit := deps.SessionLimitPerMin
	if limit <= 0 {
		limit = 30
	}
	sessionLimiter := kit.NewIPRateLimiter(limit, sessionLimitWindow)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	r.Route("/products", func(pr chi.Router) {
		pr.Get("/", s.listProducts)
		pr.Post("/", s.addProduct)
		pr.Get("/{name}", s.getProduct)
		pr.Post("/{name}/stock", s.addStock)
		pr.Put("/{name}/price", s.updatePrice)
		pr.Get("/{name}/image", s.productImage)
	})

	r.With(sessionLimiter.Middleware).Post("/sessions", s.createSession)

	r.Group(func(pr chi.Router) {
		pr.Use(RequireSession(s.Tokens))

		pr.Delete("/sessions/current", s.endSession)

		pr.Get("/cart", s.viewCart)
		pr.Post("/cart/items", s.reserve)
		pr.Put("/cart/items/{name}", s.updateItem)
		pr.Post("/cart/reset", s.resetCart)
		pr.Post("/cart/checkout", s.checkout)
		pr.Get("/cart/receipt", s.downloadReceipt)
	})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Catalog.Ping(ctx); err != nil {
		s.Log.Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

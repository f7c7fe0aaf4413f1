package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bher20/billoptimizer/internal/api/swagger"
	"github.com/bher20/billoptimizer/internal/auth"
	"github.com/bher20/billoptimizer/internal/predict"
	"github.com/bher20/billoptimizer/internal/storage"
	"github.com/bher20/billoptimizer/internal/tariff"
)

// Server holds the services behind the HTTP API.
type Server struct {
	tariffs *tariff.Service
	predict *predict.Service
	auth    *auth.Service
	store   storage.Storage
	log     *zap.Logger
}

// Deps are the services the API is built from. Store and Auth may be nil,
// in which case readiness always succeeds and account routes are not served.
type Deps struct {
	Tariffs *tariff.Service
	Predict *predict.Service
	Auth    *auth.Service
	Store   storage.Storage
	Log     *zap.Logger
}

// NewMux constructs the HTTP mux, wiring in the API, metrics, docs and
// health endpoints.
func NewMux(d Deps) *http.ServeMux {
	s := &Server{
		tariffs: d.Tariffs,
		predict: d.Predict,
		auth:    d.Auth,
		store:   d.Store,
		log:     d.Log.Named("api"),
	}

	mux := http.NewServeMux()

	// Metrics endpoint.
	mux.Handle("/metrics", promhttp.Handler())

	// Health / readiness / liveness.
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("live"))
	})

	// API documentation.
	mux.Handle("/docs/", http.StripPrefix("/docs", swagger.Handler()))

	// Tariffs and bills.
	s.route(mux, "GET /api/tariffs", "/api/tariffs", s.handleTariffs)
	s.route(mux, "GET /api/bill", "/api/bill", s.handleBillQuery)
	s.route(mux, "POST /api/bill", "/api/bill", s.handleBill)

	// Consumption estimates and planning.
	s.route(mux, "GET /api/appliances", "/api/appliances", s.handleAppliances)
	s.route(mux, "POST /api/calculate-units", "/api/calculate-units", s.handleCalculateUnits)
	s.route(mux, "POST /api/simulate", "/api/simulate", s.handleSimulate)
	s.route(mux, "POST /api/plan", "/api/plan", s.handlePlan)
	s.route(mux, "GET /api/plan/measures", "/api/plan/measures", s.handleMeasures)
	s.route(mux, "POST /api/plan/savings", "/api/plan/savings", s.handleSavings)
	s.route(mux, "POST /api/predict", "/api/predict", s.handlePredict)
	s.route(mux, "GET /api/model-info", "/api/model-info", s.handleModelInfo)

	if s.auth != nil {
		s.route(mux, "GET /api/predictions", "/api/predictions",
			s.permit("predictions", "read", s.handlePredictions))

		s.route(mux, "POST /api/auth/register", "/api/auth/register", s.handleRegister)
		s.route(mux, "POST /api/auth/login", "/api/auth/login", s.handleLogin)
		s.route(mux, "POST /api/auth/logout", "/api/auth/logout",
			s.auth.RequireUser(http.HandlerFunc(s.handleLogout)).ServeHTTP)
		s.route(mux, "POST /api/auth/request-password-reset", "/api/auth/request-password-reset", s.handleRequestReset)
		s.route(mux, "POST /api/auth/reset-password", "/api/auth/reset-password", s.handleResetPassword)
		s.route(mux, "GET /api/auth/profile", "/api/auth/profile", s.permit("profile", "read", s.handleProfile))
		s.route(mux, "PUT /api/auth/profile", "/api/auth/profile", s.permit("profile", "write", s.handleUpdateProfile))

		s.route(mux, "GET /api/admin/tariffs", "/api/admin/tariffs", s.permit("tariffs", "write", s.handleAdminSlabs))
		s.route(mux, "POST /api/admin/tariffs", "/api/admin/tariffs", s.permit("tariffs", "write", s.handleAdminUpdateRate))
	}

	return mux
}

// route registers an instrumented API handler. Bearer tokens are resolved
// when an auth service is configured.
func (s *Server) route(mux *http.ServeMux, pattern, name string, h http.HandlerFunc) {
	var handler http.Handler = h
	if s.auth != nil {
		handler = s.auth.Middleware(handler)
	}
	mux.Handle(pattern, instrument(name, handler))
}

func (s *Server) permit(obj, act string, h http.HandlerFunc) http.HandlerFunc {
	return s.auth.RequirePermission(obj, act, h).ServeHTTP
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.log.Warn("readyz: db ping failed", zap.Error(err))
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
	}
	_, _ = w.Write([]byte("ready"))
}

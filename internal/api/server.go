package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"tranzac/internal/config"
	"tranzac/internal/domain"
	"tranzac/internal/metrics"
	"tranzac/internal/pricing"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Server is the admin HTTP API. A separate listener exposes Prometheus
// metrics when monitoring is enabled.
type Server struct {
	cfg        config.APIConfig
	monitoring config.MonitoringConfig

	estimates domain.EstimateService
	sender    domain.EstimateSender
	repo      domain.EstimateRepository
	cms       domain.CMSClient
	table     *pricing.Table
	calc      *pricing.Calculator
	taxRate   float64
	loc       *time.Location

	auth    *Auth
	limiter *rateLimiter
	logger  zerolog.Logger

	server  *http.Server
	monitor *http.Server
}

type ServerDeps struct {
	Estimates domain.EstimateService
	Sender    domain.EstimateSender
	Repo      domain.EstimateRepository
	CMS       domain.CMSClient
	Sessions  domain.SessionRepository
	Table     *pricing.Table
	Calc      *pricing.Calculator
	TaxRate   float64
	Location  *time.Location
	Logger    *zerolog.Logger
}

func NewServer(cfg config.APIConfig, monitoring config.MonitoringConfig, deps ServerDeps) *Server {
	base := zerolog.Nop()
	if deps.Logger != nil {
		base = deps.Logger.With().Str("component", "api").Logger()
	}

	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Server{
		cfg:        cfg,
		monitoring: monitoring,
		estimates:  deps.Estimates,
		sender:     deps.Sender,
		repo:       deps.Repo,
		cms:        deps.CMS,
		table:      deps.Table,
		calc:       deps.Calc,
		taxRate:    deps.TaxRate,
		loc:        loc,
		auth:       NewAuth(cfg, deps.Sessions, deps.Logger),
		limiter:    newRateLimiter(cfg.RateLimit),
		logger:     base,
	}

	handler := s.middleware(s.routes())

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	if monitoring.PrometheusEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.monitor = &http.Server{
			Addr:              fmt.Sprintf(":%d", monitoring.PrometheusPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return s
}

func (s *Server) routes() http.Handler {
	router := httprouter.New()

	router.GET("/healthz", s.handleHealth)

	router.POST("/api/v1/auth/login", s.auth.handleLogin)
	router.POST("/api/v1/auth/logout", s.auth.handleLogout)

	authed := s.auth.Authenticate

	router.GET("/api/v1/rooms", authed(s.handleRooms))
	router.GET("/api/v1/resources", authed(s.handleResources))

	router.GET("/api/v1/rentalRequests", authed(s.handleListRentalRequests))
	router.GET("/api/v1/rentalRequests/:id", authed(s.handleGetRentalRequest))
	router.GET("/api/v1/rentalRequests/:id/slots", authed(s.handleGetSlots))

	router.POST("/api/v1/calculate", authed(s.handlePreview))

	router.POST("/api/v1/costEstimates", authed(s.handleCreateEstimate))
	router.GET("/api/v1/costEstimates", authed(s.handleListEstimates))
	router.GET("/api/v1/costEstimates/:id", authed(s.handleGetEstimate))
	router.PUT("/api/v1/costEstimates/:id/status", authed(s.handleChangeStatus))
	router.PUT("/api/v1/costEstimates/:id/accept", authed(s.handleAccept))
	router.PUT("/api/v1/costEstimates/:id/reject", authed(s.handleReject))
	router.POST("/api/v1/costEstimates/:id/send", authed(s.handleSendEstimate))

	router.POST("/api/v1/costEstimates/:id/versions", authed(s.handleCreateVersion))
	router.GET("/api/v1/costEstimates/:id/versions/:version", authed(s.handleGetVersion))
	router.PUT("/api/v1/costEstimates/:id/versions/:version", authed(s.handleUpdateVersion))
	router.PUT("/api/v1/costEstimates/:id/versions/:version/items", authed(s.handleUpdateItem))
	router.DELETE("/api/v1/costEstimates/:id/versions/:version/items", authed(s.handleRemoveItem))
	router.POST("/api/v1/costEstimates/:id/versions/:version/customItems", authed(s.handleAddCustomItem))
	router.POST("/api/v1/costEstimates/:id/versions/:version/recalculate", authed(s.handleRecalculate))
	router.GET("/api/v1/costEstimates/:id/versions/:version/export", authed(s.handleExportVersion))

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(router)
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		metrics.IncHTTP(r.URL.Path, strconv.Itoa(recorder.status))
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

// clientKey prefers the bearer token over the remote address so clients
// behind one NAT are limited independently.
func clientKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return auth
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (s *Server) Start() error {
	if s.monitor != nil {
		go func() {
			s.logger.Info().Str("addr", s.monitor.Addr).Msg("Metrics listener started")
			if err := s.monitor.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error().Err(err).Msg("Metrics listener failed")
			}
		}()
	}

	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.monitor != nil {
		_ = s.monitor.Shutdown(ctx)
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the full middleware chain for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

package api

import (
	"context"
	"net/http"
	"time"

	"example.com/backstage/services/laundry/config"
	"example.com/backstage/services/laundry/internal/auth"
	"example.com/backstage/services/laundry/internal/metrics"
	"example.com/backstage/services/laundry/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Services groups the business services served over HTTP
type Services struct {
	Orders     OrderService
	Scheduling SchedulingService
	Routing    RoutingService
	Tracking   TrackingService
}

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	services   Services
	parser     auth.TokenParser
	tracer     tracing.Tracer
	metrics    *metrics.Metrics
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, svc Services, parser auth.TokenParser, tracer tracing.Tracer, m *metrics.Metrics) *Server {
	server := &Server{
		config:   cfg,
		services: svc,
		parser:   parser,
		tracer:   tracer,
		metrics:  m,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
	}

	return server
}

// Router exposes the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware(s.config.Server.CorsOrigins))
	router.Use(LoggingMiddleware())
	router.Use(s.tracer.Middleware())

	NewMetricsHandler(s.metrics, s.tracer).RegisterRoutes(router)

	v1 := router.Group("/api/v1", Authenticate(s.parser))

	NewOrderHandler(s.services.Orders, s.services.Tracking, s.services.Scheduling).RegisterRoutes(v1)
	NewSchedulingHandler(s.services.Scheduling).RegisterRoutes(v1)
	NewRoutingHandler(s.services.Routing).RegisterRoutes(v1)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Server.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}

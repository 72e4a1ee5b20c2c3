package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/config"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/middleware"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Routes groups the handlers mounted by the server
type Routes struct {
	Products *handler.ProductHandler
	Uploads  *handler.UploadHandler
	// Files serves stored uploads under FilesPrefix
	Files       http.Handler
	FilesPrefix string
}

// Server represents the HTTP server
type Server struct {
	router        *chi.Mux
	config        *config.ServerConfig
	routes        Routes
	meterProvider metric.MeterProvider
	logger        *slog.Logger
	httpServer    *http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.ServerConfig,
	routes Routes,
	meterProvider metric.MeterProvider,
	logger *slog.Logger,
) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		config:        cfg,
		routes:        routes,
		meterProvider: meterProvider,
		logger:        logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.StructuredLogger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(middleware.HTTPRouteContext())
	s.router.Use(middleware.RequestMetrics(s.meterProvider.Meter(telemetry.InstrumentationName)))
}

func (s *Server) setupRoutes() {
	s.router.Route("/products", func(r chi.Router) {
		r.Get("/", s.routes.Products.ListProducts)
		r.Post("/", s.routes.Products.CreateProduct)
		r.Get("/{id}", s.routes.Products.GetProduct)
		r.Put("/{id}", s.routes.Products.UpdateProduct)
		r.Delete("/{id}", s.routes.Products.DeleteProduct)
	})

	s.router.Route("/upload", func(r chi.Router) {
		r.Use(middleware.CORS(
			[]string{http.MethodPost, http.MethodOptions},
			[]string{"Content-Type", "Accept"},
		))
		r.Post("/", s.routes.Uploads.Upload)
	})

	if s.routes.Files != nil {
		s.router.Handle(s.routes.FilesPrefix+"/*", s.routes.Files)
	}

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.router.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// Handler returns the router wrapped with otelhttp, which provides the
// standard http.server.* metrics and a server span per request
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "http-server",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
		otelhttp.WithMeterProvider(s.meterProvider),
		otelhttp.WithMetricAttributesFn(func(r *http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{
				attribute.String("http.route", middleware.RoutePattern(r)),
			}
		}),
	)
}

// Start blocks serving HTTP until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		slog.String("address", s.httpServer.Addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

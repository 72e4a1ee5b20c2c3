package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrops-br/product-catalog-api/internal/app/service"
	"github.com/mrops-br/product-catalog-api/internal/app/validator"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/config"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/database"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/repository/memory"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/repository/postgres"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/storage"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/telemetry"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var telem *telemetry.Telemetry
	if cfg.OTLP.Enabled {
		telem, err = telemetry.NewTelemetry(&cfg.OTLP)
	} else {
		telem, err = telemetry.NewNoOpTelemetry(&cfg.OTLP)
	}
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	if err := run(cfg, telem); err != nil {
		telem.Logger.Error("Products API stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, telem *telemetry.Telemetry) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer := telem.TracerProvider.Tracer(telemetry.InstrumentationName)
	meter := telem.MeterProvider.Meter(telemetry.InstrumentationName)
	logger := telem.Logger

	logger.Info("Starting Products API")

	repo, db, err := openRepository(ctx, cfg, tracer, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	productService := service.NewProductService(repo, validator.New(), tracer, meter, logger)

	if cfg.Catalog.Seed {
		if _, err := productService.Seed(ctx, service.DemoProducts); err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
	}

	sink, err := storage.NewFileSink(afero.NewOsFs(), cfg.Upload.Dir, cfg.Upload.URLPrefix, tracer, logger)
	if err != nil {
		return err
	}

	server := http.NewServer(&cfg.Server, http.Routes{
		Products:    handler.NewProductHandler(productService, logger),
		Uploads:     handler.NewUploadHandler(sink, cfg.Upload.MaxMemory, logger),
		Files:       sink.Handler(),
		FilesPrefix: sink.URLPrefix(),
	}, telem.MeterProvider, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// openRepository returns the Postgres store when a database URL is configured,
// otherwise the in-memory store. The *sql.DB is nil for the in-memory store.
func openRepository(ctx context.Context, cfg *config.Config, tracer trace.Tracer, logger *slog.Logger) (domain.ProductRepository, *sql.DB, error) {
	if cfg.Database.URL == "" {
		logger.Info("Using in-memory product repository")
		return memory.NewProductRepository(tracer, logger), nil, nil
	}

	db, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	logger.Info("Using PostgreSQL product repository")
	return postgres.NewProductRepository(db, tracer, logger), db, nil
}

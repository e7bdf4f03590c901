package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Abdurahmanit/nodepop/internal/adapter/rest"
	"github.com/Abdurahmanit/nodepop/internal/config"
	"github.com/Abdurahmanit/nodepop/internal/listing/usecase"
	"github.com/Abdurahmanit/nodepop/internal/platform/logger"
	"github.com/Abdurahmanit/nodepop/internal/platform/metrics"
	"github.com/Abdurahmanit/nodepop/internal/platform/tracer"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("NODEPOP_CONFIG"), "path to a yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputFile: cfg.Log.OutputFile,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	appLogger = appLogger.With(zap.String("service", cfg.ServiceName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.InitTracer(ctx, cfg.ServiceName, cfg.Tracing.Endpoint, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	appMetrics := metrics.New("nodepop")

	store, err := openStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open listing store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.close()

	photoStorage, err := openStorage(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open photo storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}

	cache, closeCache := openCache(ctx, cfg, appLogger)
	defer closeCache()

	publisher, closePublisher := openPublisher(cfg, appLogger)
	defer closePublisher()

	listingUC := usecase.NewListingUsecase(store.listings, store.tags, cache, publisher, appMetrics, appLogger.Named("listing"))
	photoUC := usecase.NewPhotoUsecase(photoStorage.storage, usecase.PhotoConfig{
		MaxWidth:    cfg.Media.MaxWidth,
		MaxHeight:   cfg.Media.MaxHeight,
		MaxPixels:   cfg.Media.MaxPixels,
		JPEGQuality: cfg.Media.JPEGQuality,
		Workers:     cfg.Media.Workers,
	}, appMetrics, appLogger.Named("photo"))

	handler := rest.NewListingHandler(listingUC, photoUC, cfg.HTTP.MaxUploadBytes, appLogger.Named("http"))
	router := rest.NewRouter(handler, rest.RouterConfig{
		ServiceName: cfg.ServiceName,
		JWTSecret:   cfg.Auth.JWTSecret,
		Images:      photoStorage.images,
		Metrics:     appMetrics,
		Logger:      appLogger.Named("http"),
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ysalameh/paywatch/internal/config"
	"github.com/ysalameh/paywatch/internal/events"
	"github.com/ysalameh/paywatch/internal/infrastructure/db"
	"github.com/ysalameh/paywatch/internal/infrastructure/logger"
	"github.com/ysalameh/paywatch/internal/infrastructure/telemetry"
	"github.com/ysalameh/paywatch/internal/processing/paylinks"
	"github.com/ysalameh/paywatch/internal/processing/reconciler"
	memoryStorage "github.com/ysalameh/paywatch/internal/storage/memory"
	mongoStorage "github.com/ysalameh/paywatch/internal/storage/mongo"
	httpTransport "github.com/ysalameh/paywatch/internal/transport/http"
	"github.com/ysalameh/paywatch/internal/transport/ws"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)

	var shutdownTracer func(context.Context) error
	if cfg.OTel.Enabled {
		var err error
		shutdownTracer, err = telemetry.InitTracer(cfg.OTel.Endpoint, cfg.App.Name, cfg.App.Version)
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
		}
	}

	var linkRepo paylinks.LinkRepository
	switch cfg.Monitor.StorageBackend {
	case "memory":
		linkRepo = memoryStorage.NewLinksRepository()
		logger.Info("Using in-memory link storage")
	default:
		mongoConn, err := db.ConnectMongo(cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer func() { _ = mongoConn.Disconnect() }()

		linkRepo, err = mongoStorage.NewLinksRepository(mongoConn)
		if err != nil {
			logger.Fatal("Failed to initialize links repository", zap.Error(err))
		}
	}

	hub := ws.NewHub()

	sinks := events.MultiSink{hub}
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.StatusTopic, cfg.Kafka.WriteTimeout)
		defer func() { _ = kafkaPublisher.Close() }()
		sinks = append(sinks, kafkaPublisher)
		logger.Info("Kafka status mirroring enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.StatusTopic),
		)
	}

	prober := paylinks.NewPageProber(cfg.Monitor.ProbeTimeout)
	linkSvc := paylinks.NewService(linkRepo, prober, sinks)

	reconcileCtx, stopReconcile := context.WithCancel(context.Background())
	rec := reconciler.New(linkSvc, hub, cfg.Monitor.ProbeInterval, cfg.Monitor.ProbeConcurrency)
	go rec.Run(reconcileCtx)

	router := httpTransport.NewRouter(cfg, linkSvc, hub)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		stopReconcile()
		hub.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if shutdownTracer != nil {
			_ = shutdownTracer(shutdownCtx)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.App.Env),
		zap.String("address", fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

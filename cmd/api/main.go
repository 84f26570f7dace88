package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gin-gonic/gin"

	"github.com/vendroute/packing-player/internal/application"
	"github.com/vendroute/packing-player/internal/infrastructure/fulfillment"
	"github.com/vendroute/packing-player/internal/infrastructure/speech"
	"github.com/vendroute/packing-player/pkg/events"
	"github.com/vendroute/packing-player/pkg/kafka"
	"github.com/vendroute/packing-player/pkg/logging"
	"github.com/vendroute/packing-player/pkg/metrics"
	"github.com/vendroute/packing-player/pkg/middleware"
	"github.com/vendroute/packing-player/pkg/tracing"
)

const serviceName = "packing-player"

// Config holds application configuration, parsed from the environment.
type Config struct {
	ServerAddr  string `env:"SERVER_ADDR" envDefault:":8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	FulfillmentBaseURL string        `env:"FULFILLMENT_BASE_URL" envDefault:"http://localhost:3000"`
	FulfillmentAPIKey  string        `env:"FULFILLMENT_API_KEY"`
	FulfillmentTimeout time.Duration `env:"FULFILLMENT_TIMEOUT" envDefault:"10s"`

	SpeechBaseURL     string  `env:"SPEECH_BASE_URL" envDefault:"http://localhost:5002"`
	SpeechVoice       string  `env:"SPEECH_VOICE"`
	SpeechRate        float64 `env:"SPEECH_RATE" envDefault:"1.0"`
	PhraseCatalogPath string  `env:"PHRASE_CATALOG_PATH"`

	KafkaEnabled   bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	TelemetryTopic string   `env:"TELEMETRY_TOPIC" envDefault:"player.session.events"`

	TracingEnabled bool   `env:"TRACING_ENABLED" envDefault:"true"`
	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
}

func main() {
	var config Config
	if err := env.Parse(&config); err != nil {
		panic("failed to parse configuration: " + err.Error())
	}

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(config.LogLevel)
	logConfig.Environment = config.Environment
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting packing-player API")
	ctx := context.Background()

	// OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = config.OTLPEndpoint
	tracingConfig.Environment = config.Environment
	tracingConfig.Enabled = config.TracingEnabled

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	// Kafka telemetry producer, optional
	var publisher application.TelemetryPublisher
	if config.KafkaEnabled {
		kafkaConfig := kafka.DefaultConfig(serviceName)
		kafkaConfig.Brokers = config.KafkaBrokers
		producer := kafka.NewProducer(kafkaConfig)
		defer producer.Close()
		publisher = producer
		logger.Info("Kafka producer initialized", "brokers", kafkaConfig.Brokers)
	} else {
		logger.Info("Kafka telemetry disabled")
	}

	eventFactory := events.NewEventFactory("/packing-player")

	// Fulfillment backend client
	fulfillmentConfig := fulfillment.DefaultConfig(config.FulfillmentBaseURL)
	fulfillmentConfig.APIKey = config.FulfillmentAPIKey
	fulfillmentConfig.Timeout = config.FulfillmentTimeout
	gateway, err := fulfillment.NewClient(fulfillmentConfig, logger, m)
	if err != nil {
		logger.WithError(err).Error("Failed to create fulfillment client")
		os.Exit(1)
	}
	logger.Info("Fulfillment client initialized", "baseUrl", config.FulfillmentBaseURL)

	// Narration gateway and phrase catalog
	catalog, err := speech.LoadCatalog(config.PhraseCatalogPath)
	if err != nil {
		logger.WithError(err).Error("Failed to load phrase catalog")
		os.Exit(1)
	}
	speechConfig := speech.DefaultConfig(config.SpeechBaseURL)
	speechConfig.Voice = config.SpeechVoice
	speechConfig.Rate = config.SpeechRate
	narrator := speech.NewClient(speechConfig, logger)
	defer narrator.Close()
	logger.Info("Narration gateway initialized", "baseUrl", config.SpeechBaseURL)

	// Application service
	serviceConfig := application.DefaultConfig()
	serviceConfig.TelemetryTopic = config.TelemetryTopic
	serviceConfig.SessionConfig = catalog.SessionConfig()
	playerService := application.NewPlayerApplicationService(
		gateway,
		narrator,
		publisher,
		eventFactory,
		logger,
		m,
		serviceConfig,
	)

	// Gin router with the standard middleware chain
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, nil))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1/sessions")
	{
		api.POST("", startSessionHandler(playerService, logger))
		api.GET("/:sessionId", getSessionHandler(playerService, logger))
		api.GET("/:sessionId/events", watchSessionHandler(playerService, logger))
		api.POST("/:sessionId/forward", transitionHandler(playerService, logger, "forward"))
		api.POST("/:sessionId/skip", transitionHandler(playerService, logger, "skip"))
		api.POST("/:sessionId/back", transitionHandler(playerService, logger, "back"))
		api.POST("/:sessionId/repeat", transitionHandler(playerService, logger, "repeat"))
		api.POST("/:sessionId/pause", transitionHandler(playerService, logger, "pause"))
		api.POST("/:sessionId/resume", transitionHandler(playerService, logger, "resume"))
		api.POST("/:sessionId/stop", stopSessionHandler(playerService, logger))
		api.DELETE("/:sessionId", abandonSessionHandler(playerService, logger))
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown without an explicit stop abandons every open session so
	// nothing is left half-finished on the backend.
	if err := playerService.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to close player service")
	}

	logger.Info("Server stopped")
}

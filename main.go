package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"charge-gateway/internal/config"
	"charge-gateway/internal/events"
	"charge-gateway/internal/gateway"
	"charge-gateway/internal/handlers"
	"charge-gateway/internal/logger"
	"charge-gateway/internal/middleware"
	"charge-gateway/internal/normalize"
	rediswrap "charge-gateway/internal/redis"
	"charge-gateway/internal/services"
	"charge-gateway/internal/storage"
	"charge-gateway/internal/validation"

	"github.com/gin-gonic/gin"
)

func main() {
	log := logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("ENV", "Error loading .env file, using environment variables")
	}

	log.LogProcess("STARTUP", "Charge Gateway starting up...")

	// Missing processor credentials fail here, not on the first charge.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("CONFIG", "Configuration error: "+err.Error())
	}
	log.Info("CONFIG", "Configuration loaded successfully")

	var store storage.Store
	if cfg.Database.Host != "" {
		log.LogProcess("DATABASE", "Initializing MySQL attempt store...")
		mysqlStore, err := storage.NewMySQLStore(cfg.Database, log)
		if err != nil {
			log.Fatal("DATABASE", "Failed to initialize MySQL: "+err.Error())
		}
		store = mysqlStore
	} else {
		log.LogProcess("DATABASE", "DB_HOST not set, using in-memory attempt store")
		store = storage.NewInMemoryStore()
	}
	defer store.Close()

	log.LogProcess("KAFKA", "Initializing event producer...")
	producer, err := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.MockMode, log)
	if err != nil {
		log.Fatal("KAFKA", "Failed to create event producer: "+err.Error())
	}
	defer producer.Close()

	var keys normalize.KeySource
	var redisPinger handlers.Pinger
	if cfg.Redis.Addr != "" {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		redisKeys := rediswrap.NewKeySource(redisClient)
		keys = redisKeys
		redisPinger = redisKeys
		log.LogProcess("REDIS", "Redis-backed idempotency key source enabled")
	} else {
		keys = normalize.NewCounterKeySource()
		log.LogProcess("REDIS", "REDIS_ADDR not set, using in-process idempotency key source")
	}

	gatewayClient, err := gateway.NewClient(cfg.Stripe, log)
	if err != nil {
		log.Fatal("STRIPE", "Failed to initialize processor client: "+err.Error())
	}
	log.LogProcess("SERVICE", "Processor client initialized")

	validator := validation.New(cfg.Payments)
	normalizer := normalize.New(keys)
	chargeService := services.NewChargeService(normalizer, gatewayClient, store, producer, log)
	log.LogProcess("SERVICE", "Charge service initialized")

	chargeHandler := handlers.NewChargeHandler(validator, chargeService, log, cfg.Debug)
	metaHandler := handlers.NewMetaHandler(validator, store, redisPinger, cfg.Kafka.MockMode, cfg.Stripe.WebhookSecret != "", log)
	webhookHandler := handlers.NewWebhookHandler(gatewayClient, chargeService, log)
	log.LogProcess("HANDLER", "All handlers initialized")

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if !cfg.Kafka.MockMode {
		consumer, err := events.NewChargeConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, log)
		if err != nil {
			log.Fatal("KAFKA", "Failed to create charge consumer: "+err.Error())
		}
		defer consumer.Close()

		go func() {
			log.LogKafka("START", "consumer", "Starting charge event consumer goroutine")
			if err := consumer.ConsumeChargeEvents(consumerCtx, chargeService.ProcessChargeEvent); err != nil && err != context.Canceled {
				log.Error("KAFKA", "Consumer error: "+err.Error())
			}
		}()
	}

	router := setupRouter(cfg, log, chargeHandler, metaHandler, webhookHandler)
	log.LogProcess("ROUTER", "HTTP router configured")

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.LogProcess("SERVER", "Starting HTTP server on port "+cfg.Server.Port)
		log.Info("STARTUP", "Charge Gateway is ready to accept requests")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "Server failed to start: "+err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("SHUTDOWN", "Received shutdown signal, initiating graceful shutdown...")
	stopConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("SHUTDOWN", "Server forced to shutdown: "+err.Error())
	}

	log.Info("SHUTDOWN", "Charge Gateway shutdown completed successfully")
}

func setupRouter(cfg *config.Config, log *logger.Logger, chargeHandler *handlers.ChargeHandler, metaHandler *handlers.MetaHandler, webhookHandler *handlers.WebhookHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log, cfg.Debug))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders(log))
	router.Use(middleware.RateLimit(log, cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst))

	router.GET("/health", metaHandler.Health)
	router.GET("/api/countries", metaHandler.Countries)
	router.GET("/api/attempts", metaHandler.Attempts)

	router.POST("/create-payment-intent", chargeHandler.CreatePaymentIntent)
	router.POST("/confirm-payment", chargeHandler.ConfirmPayment)
	router.POST("/confirm-payment-intent", chargeHandler.ConfirmPayment)
	router.GET("/payment-intent/:id", chargeHandler.GetPaymentIntent)

	router.POST("/webhook", webhookHandler.HandleWebhook)

	log.LogProcess("ROUTER", "All routes registered successfully")
	return router
}

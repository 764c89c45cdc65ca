package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/happy-baby-style/internal/cache"
	"github.com/vasiliy-maslov/happy-baby-style/internal/config"
	"github.com/vasiliy-maslov/happy-baby-style/internal/db"
	apihttp "github.com/vasiliy-maslov/happy-baby-style/internal/handler/http"
	"github.com/vasiliy-maslov/happy-baby-style/internal/messaging/rabbitmq"
	"github.com/vasiliy-maslov/happy-baby-style/internal/observability"
	"github.com/vasiliy-maslov/happy-baby-style/internal/order"
	"github.com/vasiliy-maslov/happy-baby-style/internal/product"
	"github.com/vasiliy-maslov/happy-baby-style/internal/report"
	"github.com/vasiliy-maslov/happy-baby-style/internal/user"
)

const serviceName = "happy-baby-admin"

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		observability.SetupLogger(config.AppConfig{LogLevel: "info", LogFormat: "console"}, serviceName)
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.SetupLogger(cfg.App, serviceName)

	log.Info().Str("env", cfg.App.Env).Msg("Admin API starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	sqlxDB := pg.SQLX()
	defer sqlxDB.Close()

	redisClient, err := cache.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	var productCache product.Cache
	if redisClient != nil {
		defer redisClient.Close()
		productCache = product.NewRedisCache(redisClient, cfg.Redis.ProductTTL)
	}

	amqpConn, amqpCh, err := rabbitmq.Connect(ctx, cfg.RabbitMQ)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to rabbitmq")
	}
	var publisher order.EventPublisher = order.NopPublisher{}
	if amqpConn != nil {
		defer amqpConn.Close()
		defer amqpCh.Close()
		publisher = rabbitmq.NewPublisher(amqpCh, cfg.RabbitMQ.Exchange)
	}

	tracerProvider, shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing.Enabled, serviceName, cfg.App.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up tracing")
	}

	productSvc := product.NewService(product.NewRepository(pg.Pool), productCache)
	orderSvc := order.WithTracing(
		order.NewService(order.NewRepository(pg.Pool), productSvc, publisher),
		tracerProvider,
	)
	userSvc := user.NewService(user.NewRepository(pg.Pool))
	reportSvc := report.NewService(report.NewRepository(sqlxDB))

	router := apihttp.NewRouter(30*time.Second,
		apihttp.NewOrderHandler(orderSvc),
		apihttp.NewProductHandler(productSvc),
		apihttp.NewUserHandler(userSvc),
		apihttp.NewReportHandler(reportSvc),
	)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	case err := <-serverErr:
		log.Error().Err(err).Msg("Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Tracer shutdown failed")
	}

	log.Info().Msg("Admin API stopped")
}

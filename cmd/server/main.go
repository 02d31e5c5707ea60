// Command server runs the order lifecycle service: REST + SSE API, payment
// verification, and the Kafka-backed email pipeline.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"foodDeliveryManagement/internal/config"
	"foodDeliveryManagement/internal/db"
	"foodDeliveryManagement/internal/httpapi"
	"foodDeliveryManagement/internal/mailer"
	"foodDeliveryManagement/internal/order"
	"foodDeliveryManagement/internal/payment"
	"foodDeliveryManagement/internal/realtime"
	"foodDeliveryManagement/repository"
)

const shutdownGrace = 10 * time.Second

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	var (
		cfg *config.Config
		err error
	)
	if os.Getenv("DEV_MODE") == "1" {
		cfg, err = config.LoadWithDefaults()
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	logger.Info("configuration loaded", zap.String("config", cfg.String()))

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	orderRepo := repository.NewOrderRepository(database)
	userRepo := repository.NewUserRepository(database)

	registry := realtime.NewRegistry(logger)
	router := realtime.NewRouter(registry, logger)
	gateway := payment.NewClient(cfg.Payment, logger)

	// The email pipeline is optional at runtime: with no reachable broker the
	// service still takes orders, it just cannot send mail.
	var publisher *mailer.Publisher
	if producer, err := mailer.NewSyncProducer(cfg.Kafka.Brokers, logger); err != nil {
		logger.Warn("kafka unavailable; email pipeline disabled", zap.Error(err))
	} else {
		publisher = mailer.NewPublisher(producer, cfg.Kafka.Topic, logger)
		defer publisher.Close()
	}

	var events order.EventPublisher
	if publisher != nil {
		events = publisher
	}
	svc := order.NewService(orderRepo, userRepo, gateway, router, events, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if publisher != nil {
		consumer, err := mailer.NewConsumer(cfg.Kafka.Brokers, logger)
		if err != nil {
			logger.Warn("mailer worker disabled", zap.Error(err))
		} else {
			defer consumer.Close()
			worker := mailer.NewWorker(consumer, cfg.Kafka.Topic, mailer.NewSMTPSender(cfg.Mail), logger)
			go func() {
				if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("mailer worker stopped", zap.Error(err))
				}
			}()
		}
	}

	api := httpapi.NewServer(svc, registry, router, logger)
	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: api.Routes(cfg.Auth.JWTSecret),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

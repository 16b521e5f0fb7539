// Package sitemechanic собирает зависимости сервиса анализа сайтов:
// хранилище, кеш, брокер уведомлений, платёжный провайдер и HTTP-сервер.
package sitemechanic

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/peternemser-ui/font-scanner-sub010/internal/cache"
	"github.com/peternemser-ui/font-scanner-sub010/internal/config"
	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/jwt"
	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/rabbitmq"
	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/sl"
	"github.com/peternemser-ui/font-scanner-sub010/internal/migrations"
	"github.com/peternemser-ui/font-scanner-sub010/internal/services/auth"
	"github.com/peternemser-ui/font-scanner-sub010/internal/services/checkout"
	"github.com/peternemser-ui/font-scanner-sub010/internal/services/entitlement"
	"github.com/peternemser-ui/font-scanner-sub010/internal/services/reconciler"
	"github.com/peternemser-ui/font-scanner-sub010/internal/services/scanner"
	"github.com/peternemser-ui/font-scanner-sub010/internal/storage/repository"
)

// App объединяет HTTP-сервер и подключения к внешним системам.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	amqpConn *amqp.Connection
}

// eventStore адаптирует хранилище к интерфейсу реконсилера.
type eventStore struct {
	db *repository.Storage
}

func (s eventStore) BeginEventTx(ctx context.Context) (reconciler.Tx, error) {
	return s.db.BeginEventTx(ctx)
}

// New инициализирует все зависимости приложения и возвращает готовый App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	var amqpConn *amqp.Connection
	var publisher reconciler.Publisher
	if cfg.RabbitMQ.URL != "" {
		amqpConn, err = rabbitmq.Connect(cfg.RabbitMQ.URL, 5, 2*time.Second)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(amqpConn, cfg.RabbitMQ.Exchange)
		if err != nil {
			return nil, err
		}
		publisher = rabbitmq.NewEventPublisher(ch, cfg.RabbitMQ.Exchange)
	} else {
		logger.Warn("rabbitmq url is empty, billing notifications disabled")
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authService := auth.New(db, jwtMaker)
	entitlementService := entitlement.New(db, cacheRedis, logger)
	reconcilerService := reconciler.New(eventStore{db: db}, cacheRedis, publisher, logger)
	scannerService := scanner.New(cfg.Scanner, logger)
	checkoutService := checkout.New(db, cfg.Stripe, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg,
		authService, entitlementService, reconcilerService, scannerService, checkoutService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		amqpConn: amqpConn,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.db.Close(); closeErr != nil {
			a.logger.Error("failed to close storage", sl.Err(closeErr))
		}
		if a.amqpConn != nil {
			if closeErr := a.amqpConn.Close(); closeErr != nil {
				a.logger.Error("failed to close rabbitmq connection", sl.Err(closeErr))
			}
		}
		return err
	}
}

package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/miras-dev/taxi-dispatch/config"
	repo "github.com/miras-dev/taxi-dispatch/internal/adapter/postgres"
	rabbitadapter "github.com/miras-dev/taxi-dispatch/internal/adapter/rabbit"
	redisadapter "github.com/miras-dev/taxi-dispatch/internal/adapter/redis"
	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
	"github.com/miras-dev/taxi-dispatch/internal/service/geo"
	"github.com/miras-dev/taxi-dispatch/internal/service/order"
	"github.com/miras-dev/taxi-dispatch/pkg/logger"
	"github.com/miras-dev/taxi-dispatch/pkg/postgres"
	"github.com/miras-dev/taxi-dispatch/pkg/rabbit"
	"github.com/miras-dev/taxi-dispatch/pkg/trm"
)

// Application owns every long-lived resource of the dispatch service and
// wires them together.
type Application struct {
	postgresDB *postgres.PostgreDB
	redis      *goredis.Client
	rabbitMQ   *rabbit.RabbitMQ

	dispatch *order.Service
	consumer *rabbitadapter.OrderConsumer
	cache    *redisadapter.LocationCache
	drivers  *repo.DriverRepo

	metricsSrv *http.Server

	cfg config.Config
	log logger.Logger
}

func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*Application, error) {
	postgresDB, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}

	redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr()})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error(ctx, "Failed to connect to redis", err)
		return nil, err
	}

	rabbitClient, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		log.Error(ctx, "Failed to connect to rabbitMQ", err)
		return nil, err
	}

	txManager := trm.New(postgresDB.Pool)

	orderRepo := repo.NewOrderRepo(postgresDB.Pool)
	driverRepo := repo.NewDriverRepo(postgresDB.Pool)
	passengerRepo := repo.NewPassengerRepo(postgresDB.Pool)

	locationCache := redisadapter.NewLocationCache(redisClient)
	index := geo.NewIndex(driverRepo, locationCache, log)

	emitter := rabbitadapter.NewEventBroker(rabbitClient, log)

	dispatch := order.New(
		orderRepo,
		driverRepo,
		passengerRepo,
		emitter,
		index,
		txManager,
		log,
		cfg.Dispatch.OrderNoRetries,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Application{
		postgresDB: postgresDB,
		redis:      redisClient,
		rabbitMQ:   rabbitClient,
		dispatch:   dispatch,
		consumer:   rabbitadapter.NewOrderConsumer(rabbitClient, log),
		cache:      locationCache,
		drivers:    driverRepo,
		metricsSrv: &http.Server{Addr: cfg.MetricsAddr, Handler: mux},
		cfg:        cfg,
		log:        log,
	}, nil
}

// Run starts the consumers and the metrics endpoint and blocks until a
// shutdown signal arrives or a component fails.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)

	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		errCh <- a.consumer.ConsumeOrderRequests(ctx, a.handleOrderRequest)
	}()

	go func() {
		errCh <- a.consumer.ConsumeLocationUpdates(ctx, a.handleLocationUpdate)
	}()

	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "dispatch service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "Dispatch service has been started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (a *Application) handleOrderRequest(ctx context.Context, req models.OrderRequestMessage) error {
	_, err := a.dispatch.Create(ctx, order.CreateOrderRequest{
		PassengerID: req.PassengerID,
		OrderType:   req.OrderType,
		Pickup:      req.Pickup,
		Destination: req.Destination,
		ReservedAt:  req.ReservedAt,
		Remark:      req.Remark,
	})
	return err
}

func (a *Application) handleLocationUpdate(ctx context.Context, req models.LocationUpdateMessage) error {
	loc := models.Location{Latitude: req.Latitude, Longitude: req.Longitude}

	if err := a.drivers.UpdateLocation(ctx, req.DriverID, loc, req.Timestamp); err != nil {
		return err
	}

	// Cache write is best-effort: the directory row is authoritative.
	if err := a.cache.Add(ctx, req.DriverID, loc); err != nil {
		a.log.Warn(ctx, "failed to cache driver location", "error", err.Error())
	}

	return nil
}

func (a *Application) close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := a.metricsSrv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn(ctx, "Failed to gracefully close metrics server", "error", err.Error())
	}

	if a.rabbitMQ != nil {
		if err := a.rabbitMQ.Close(shutdownCtx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close rabbitMQ", "error", err.Error())
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn(ctx, "Failed to close redis client", "error", err.Error())
		}
	}

	if a.postgresDB != nil && a.postgresDB.Pool != nil {
		a.postgresDB.Pool.Close()
	}
}

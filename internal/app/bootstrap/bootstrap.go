package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	deliveryservice "mealtrack/contexts/meal-operations/delivery-service"
	deliverypostgres "mealtrack/contexts/meal-operations/delivery-service/adapters/postgres"
	deliveryworkers "mealtrack/contexts/meal-operations/delivery-service/application/workers"
	deliveryports "mealtrack/contexts/meal-operations/delivery-service/ports"
	distributionservice "mealtrack/contexts/meal-operations/distribution-service"
	distributionpostgres "mealtrack/contexts/meal-operations/distribution-service/adapters/postgres"
	distributionworkers "mealtrack/contexts/meal-operations/distribution-service/application/workers"
	distributionports "mealtrack/contexts/meal-operations/distribution-service/ports"
	"mealtrack/internal/platform/config"
	"mealtrack/internal/platform/db"
	"mealtrack/internal/platform/httpserver"
	"mealtrack/internal/platform/messaging"
	"mealtrack/internal/shared/events"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres          *db.Postgres
	registrationRelay distributionworkers.OutboxRelay
	deliveryRelay     deliveryworkers.OutboxRelay
	runRegistration   bool
	runDelivery       bool
	pollInterval      time.Duration
	logger            *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(db.Settings{
		DSN:          cfg.PostgresDSN,
		MaxOpenConns: cfg.PostgresMaxOpenConns,
		MaxIdleConns: cfg.PostgresMaxIdleConns,
	})
	if err != nil {
		return nil, err
	}

	distributionRepo := distributionpostgres.NewRepository(pg.DB, logger)
	distributionModule := distributionservice.NewModule(distributionservice.Dependencies{
		Distributions: distributionRepo,
		Ledger:        distributionRepo,
		Students:      distributionRepo,
		Approvals:     distributionRepo,
		Clock:         distributionpostgres.SystemClock{},
		IDGen:         distributionpostgres.UUIDGenerator{},
		Outbox:        distributionRepo,
		Logger:        logger,
	})

	deliveryRepo := deliverypostgres.NewRepository(pg.DB, logger)
	deliveryModule := deliveryservice.NewModule(deliveryservice.Dependencies{
		Plans:     deliveryRepo,
		Vendors:   deliveryRepo,
		Approvals: deliveryRepo,
		Clock:     deliverypostgres.SystemClock{},
		IDGen:     deliverypostgres.UUIDGenerator{},
		Outbox:    deliveryRepo,
		Logger:    logger,
	})

	server := httpserver.New(distributionModule, deliveryModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(db.Settings{
		DSN:          cfg.PostgresDSN,
		MaxOpenConns: cfg.PostgresMaxOpenConns,
		MaxIdleConns: cfg.PostgresMaxIdleConns,
	})
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	distributionRepo := distributionpostgres.NewRepository(pg.DB, logger)
	deliveryRepo := deliverypostgres.NewRepository(pg.DB, logger)

	return &WorkerApp{
		postgres: pg,
		registrationRelay: distributionworkers.OutboxRelay{
			Outbox:    distributionRepo,
			Publisher: registrationBusPublisher{bus: kafka},
			Clock:     distributionpostgres.SystemClock{},
			Topic:     "registration.committed",
			BatchSize: 100,
			Logger:    logger,
		},
		deliveryRelay: deliveryworkers.OutboxRelay{
			Outbox:    deliveryRepo,
			Publisher: deliveryBusPublisher{bus: kafka},
			Clock:     deliverypostgres.SystemClock{},
			Topic:     "plan.delivered",
			BatchSize: 100,
			Logger:    logger,
		},
		runRegistration: cfg.EnableRegistrationRelay,
		runDelivery:     cfg.EnableDeliveryRelay,
		pollInterval:    2 * time.Second,
		logger:          logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.runRegistration {
			if err := w.registrationRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.runDelivery {
			if err := w.deliveryRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

// registrationBusPublisher adapts the shared bus to the distribution-service
// publisher port.
type registrationBusPublisher struct {
	bus *messaging.Kafka
}

func (p registrationBusPublisher) Publish(ctx context.Context, topic string, event distributionports.EventEnvelope) error {
	return p.bus.Publish(ctx, topic, events.Envelope{
		EventID:       event.EventID,
		EventType:     event.EventType,
		OccurredAt:    event.OccurredAt,
		SourceService: event.SourceService,
		PartitionKey:  event.PartitionKey,
		SchemaVersion: event.SchemaVersion,
		Data:          event.Data,
	})
}

type deliveryBusPublisher struct {
	bus *messaging.Kafka
}

func (p deliveryBusPublisher) Publish(ctx context.Context, topic string, event deliveryports.EventEnvelope) error {
	return p.bus.Publish(ctx, topic, events.Envelope{
		EventID:       event.EventID,
		EventType:     event.EventType,
		OccurredAt:    event.OccurredAt,
		SourceService: event.SourceService,
		PartitionKey:  event.PartitionKey,
		SchemaVersion: event.SchemaVersion,
		Data:          event.Data,
	})
}

var (
	_ distributionports.EventPublisher = registrationBusPublisher{}
	_ deliveryports.EventPublisher     = deliveryBusPublisher{}
)

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"mindmail/internal/clock"
	"mindmail/internal/config"
	"mindmail/internal/events"
	"mindmail/internal/handlers"
	"mindmail/internal/health"
	"mindmail/internal/logger"
	"mindmail/internal/metrics"
	"mindmail/internal/middleware"
	"mindmail/internal/models"
	"mindmail/internal/repositories"
	"mindmail/internal/scheduler"
	"mindmail/internal/services"
	"mindmail/pkg/rabbitmq"
)

// application is every long-lived piece of the process, wired from config.
type application struct {
	cfg    *config.Config
	logger *zap.Logger
	clock  clock.Clock

	storage  *services.StorageService
	center   *scheduler.TimerCenter
	sched    *scheduler.Scheduler
	bus      *events.Bus
	broker   *rabbitmq.Client
	registry *prometheus.Registry

	users   *services.UserService
	journal *services.JournalService
	letters *services.LetterService

	closers []func() error
}

// newApplication opens the configured store and broker and wires the
// services. clk may be nil.
func newApplication(ctx context.Context, cfg *config.Config, log *zap.Logger, clk clock.Clock) (*application, error) {
	if clk == nil {
		clk = clock.Real{}
	}
	log = logger.OrNop(log)
	a := &application{cfg: cfg, logger: log, clock: clk}

	kv, closeKV, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeKV)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(a.registry)

	a.bus = events.NewBus(64)
	metrics.RegisterDroppedEvents(a.registry, a.bus.Dropped)
	publishers := events.Multi{a.bus}
	if cfg.RabbitMQ.URL != "" {
		a.broker, err = rabbitmq.NewClient(ctx, rabbitmq.Config{URL: cfg.RabbitMQ.URL, Queue: cfg.RabbitMQ.Queue}, log.Named("rabbitmq"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, a.broker.Close)
		publishers = append(publishers, a.broker)
	}

	a.storage = services.NewStorageService(kv, services.StorageConfig{
		Keys:                repositories.NewKeys(cfg.Storage.KeyPrefix),
		MaxScheduledLetters: cfg.Letters.MaxScheduled,
	}, log.Named("storage"))

	gate := scheduler.StaticPermission(cfg.Notifications.Enabled)
	a.center = scheduler.NewTimerCenter(clk, log.Named("triggers"))
	a.closers = append(a.closers, func() error { a.center.Stop(); return nil })
	a.sched = scheduler.New(a.storage, a.center, publishers, gate, scheduler.Options{
		MinScheduleDelay: cfg.Letters.MinScheduleDelay,
		Clock:            clk,
		Metrics:          recorder,
		Logger:           log.Named("scheduler"),
	})
	a.center.OnFire(a.sched.HandleTrigger)

	a.users = services.NewUserService(a.storage, a.sched, clk, log.Named("users"))
	a.journal = services.NewJournalService(a.storage, clk, log.Named("journal"))
	a.letters = services.NewLetterService(a.storage, a.sched, gate, services.LetterConfig{
		BodyPolicy: models.BodyPolicy{
			MinLength: cfg.Letters.BodyMinLength,
			MaxLength: cfg.Letters.BodyMaxLength,
		},
		MinScheduleDelay: cfg.Letters.MinScheduleDelay,
	}, clk, log.Named("letters"))

	return a, nil
}

// openStore returns the KVStore for the configured driver and a func that
// releases it.
func openStore(ctx context.Context, sc config.StorageConfig) (repositories.KVStore, func() error, error) {
	noop := func() error { return nil }

	switch sc.Driver {
	case config.DriverMemory:
		return repositories.NewMemoryKVStore(), noop, nil
	case config.DriverFile:
		store, err := repositories.NewFileKVStore(sc.FileDir)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case config.DriverSQLite, config.DriverPostgres:
		dsn := sc.SQLitePath
		if sc.Driver == config.DriverPostgres {
			dsn = sc.PostgresDSN
		}
		db, err := repositories.OpenGORM(sc.Driver, dsn)
		if err != nil {
			return nil, nil, err
		}
		store := repositories.NewGORMKVStore(db)
		return store, store.Close, nil
	case config.DriverRedis:
		client, err := repositories.DialRedis(ctx, repositories.RedisConfig{
			Addr:     sc.RedisAddr,
			Password: sc.RedisPassword,
			DB:       sc.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		store := repositories.NewRedisKVStore(client)
		return store, store.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
}

// routes builds the HTTP surface.
func (a *application) routes() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "mindmail",
		DisableStartupMessage: true,
	})
	app.Use(fiberlogger.New())

	validate := handlers.NewValidator()
	opts := handlers.Options{StripMarkup: a.cfg.Sanitize.StripMarkup}

	apiV1 := app.Group("/api/v1")

	// Open routes
	handlers.NewUserHandler(a.users, validate, a.logger).RegisterRoutes(apiV1)
	handlers.NewCatalogHandler().RegisterRoutes(apiV1)

	// Routes that need a user
	protected := apiV1.Group("", middleware.OnboardingRequired(a.users, a.logger))
	handlers.NewJournalHandler(a.journal, validate, opts, a.logger).RegisterRoutes(protected)
	handlers.NewLetterHandler(a.letters, validate, opts, a.logger).RegisterRoutes(protected)

	pingers := map[string]health.Pinger{"store": a.storage}
	if a.broker != nil {
		pingers["rabbitmq"] = a.broker
	}
	checker := health.NewChecker(pingers, a.logger)
	app.Get("/live", adaptor.HTTPHandlerFunc(checker.LiveEndpoint))
	app.Get("/ready", adaptor.HTTPHandlerFunc(checker.ReadyEndpoint))
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(a.registry)))

	app.Get("/health", func(c *fiber.Ctx) error {
		status, storeStatus := fiber.StatusOK, "connected"
		if err := a.storage.Ping(c.UserContext()); err != nil {
			status, storeStatus = fiber.StatusServiceUnavailable, err.Error()
		}
		return c.Status(status).JSON(fiber.Map{
			"status":  http.StatusText(status),
			"time":    a.clock.Now().Format(time.RFC3339),
			"storage": a.cfg.Storage.Driver,
			"store":   storeStatus,
		})
	})

	return app
}

// Close releases everything newApplication opened, last opened first.
func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"wacrm/internal/automation"
	"wacrm/internal/config"
	"wacrm/internal/constants"
	"wacrm/internal/contacts"
	"wacrm/internal/logger"
	"wacrm/internal/segment"
	"wacrm/internal/segments"
	"wacrm/pkg/bootstrap"
	"wacrm/pkg/health"
	"wacrm/pkg/logging"
	"wacrm/pkg/metrics"
	"wacrm/pkg/middleware"
	"wacrm/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	redis          *redis.Client
	mongoClient    *mongo.Client
	postgresDB     *sqlx.DB
	service        *automation.Service
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitBroker(serviceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initService(); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	metrics.RegisterSegmentMetrics()
	metrics.RegisterAutomationMetrics()
	metrics.RegisterDatabaseMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.initHTTPServer()
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb

	postgresDB, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	if postgresDB == nil {
		return errors.New("postgres host is required")
	}
	a.postgresDB = postgresDB

	// Contact groups are only needed by segments that reference them, so the
	// worker starts without MongoDB and such segments fall back per
	// segmentation.membership.on_error.
	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		initCtx := logging.WithServiceName(ctx, serviceName)
		a.Logger.WarnwCtx(initCtx, "MongoDB initialization failed, contact group lookups will be disabled", "error", err)
	} else {
		a.mongoClient = mongoClient
	}
	return nil
}

func (a *App) initService() error {
	var groups segment.GroupStore
	if a.mongoClient != nil {
		db := a.dbConnector.MongoDatabase(a.mongoClient, constants.DefaultMongoDBName)
		groups = contacts.NewCircuitBreakerGroupStore(contacts.NewGroupRepository(db), a.Config.CircuitBreaker)
	}
	membership := segment.NewMembershipResolver(groups, a.Config.Segmentation.Membership, a.Logger)
	compiler := segment.NewCompiler(membership, a.Config.Segmentation, a.Logger)

	entries := automation.NewCircuitBreakerRepository(automation.NewRepository(a.redis), a.Config.CircuitBreaker)

	svc, err := automation.NewService(
		segments.NewRepository(a.postgresDB),
		compiler,
		entries,
		a.Producer,
		a.Config.Broker.Kafka.SegmentEntriesTopic,
		a.Config.Automation,
		a.Logger,
	)
	if err != nil {
		return err
	}
	a.service = svc
	return nil
}

func (a *App) initHTTPServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(a.Logger))

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewRedisChecker(a.redis))
	healthRegistry.Register(health.NewPostgreSQLChecker(a.postgresDB.DB))
	healthRegistry.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	if a.mongoClient != nil {
		healthRegistry.RegisterOptional(health.NewMongoDBChecker(a.mongoClient))
	}

	router.GET("/health", healthRegistry.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: router,
	}
}

func (a *App) Run(ctx context.Context) error {
	contactTopic := a.Config.Broker.Kafka.ContactEventsTopic
	if contactTopic == "" {
		contactTopic = constants.DefaultContactEventsTopic
	}
	contactConsumer, err := a.NewConsumer()
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.service.StartReloader(gCtx)
	})

	if topic := a.Config.Broker.Kafka.ConfigUpdateTopic; topic != "" {
		configConsumer, err := a.NewConsumer()
		if err != nil {
			configCtx := logging.WithServiceName(ctx, serviceName)
			a.Logger.WarnwCtx(configCtx, "Failed to create config event consumer, event-driven reload disabled", "error", err)
		} else {
			configHandler := automation.NewConfigHandler(a.service, a.Logger)
			g.Go(func() error {
				configCtx := logging.WithServiceName(gCtx, serviceName)
				a.Logger.InfowCtx(configCtx, "Starting config update event consumer", "topic", topic)
				return configConsumer.Consume(gCtx, topic, configHandler.HandleConfigUpdateEvent)
			})
		}
	}

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "Starting contact event consumer", "topic", contactTopic)
		return contactConsumer.Consume(gCtx, contactTopic, a.service.HandleContactEvent)
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, serviceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down audience worker")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		timeoutCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		if a.server != nil {
			if err := a.server.Shutdown(timeoutCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(timeoutCtx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(timeoutCtx, a.redis, a.postgresDB, a.mongoClient)...)
		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}

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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"wacrm/internal/config"
	"wacrm/internal/constants"
	"wacrm/internal/contacts"
	"wacrm/internal/logger"
	"wacrm/internal/segment"
	"wacrm/internal/segments"
	"wacrm/pkg/bootstrap"
	"wacrm/pkg/health"
	"wacrm/pkg/metrics"
	"wacrm/pkg/middleware"
	"wacrm/pkg/migrations"
	"wacrm/pkg/ratelimit"
	"wacrm/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	mongoClient    *mongo.Client
	postgresDB     *sqlx.DB
	redis          *redis.Client
	router         *gin.Engine
	server         *http.Server
	limiter        *ratelimit.Store
	tracerProvider *tracing.TracerProvider
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

	if a.Config.Broker.Type == "kafka" {
		if err := a.InitBroker(serviceName); err != nil {
			a.Logger.WarnwCtx(ctx, "Failed to create config event producer, segment changes will not be announced", "error", err)
		}
	}

	metrics.RegisterSegmentMetrics()
	metrics.RegisterContactMetrics()
	metrics.RegisterDatabaseMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterCircuitBreakerMetrics()

	if err := a.initRouter(ctx); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeout(),
		WriteTimeout: a.Config.Server.WriteTimeout(),
	}
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}
	if mongoClient == nil {
		return errors.New("mongodb uri is required")
	}
	a.mongoClient = mongoClient

	if a.Config.Database.RunMigrations {
		if err := migrations.EnsureMongoIndexes(ctx, a.mongoDatabase()); err != nil {
			return err
		}
	}

	postgresDB, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	if postgresDB == nil {
		return errors.New("postgres host is required")
	}
	a.postgresDB = postgresDB

	if a.Config.Database.RunMigrations {
		if err := migrations.RunPostgres(postgresDB.DB); err != nil {
			return err
		}
		a.Logger.InfowCtx(ctx, "Database migrations applied")
	}

	if a.Config.Database.Redis.Host != "" {
		rdb, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			a.Logger.WarnwCtx(ctx, "Redis unavailable, health check will not include it", "error", err)
		} else {
			a.redis = rdb
		}
	}
	return nil
}

func (a *App) mongoDatabase() *mongo.Database {
	return a.dbConnector.MongoDatabase(a.mongoClient, constants.DefaultMongoDBName)
}

func (a *App) newContactService() *contacts.Service {
	db := a.mongoDatabase()

	groups := contacts.NewCircuitBreakerGroupStore(contacts.NewGroupRepository(db), a.Config.CircuitBreaker)
	membership := segment.NewMembershipResolver(groups, a.Config.Segmentation.Membership, a.Logger)
	compiler := segment.NewCompiler(membership, a.Config.Segmentation, a.Logger)

	return contacts.NewService(compiler, contacts.NewRepository(db), a.Logger)
}

func (a *App) newSegmentService(searcher segments.ContactSearcher) *segments.Service {
	opts := []segments.ServiceOption{segments.WithPreview(searcher)}

	if a.Producer != nil {
		topic := a.Config.Broker.Kafka.ConfigUpdateTopic
		if topic == "" {
			topic = constants.DefaultConfigEventsTopic
		}
		opts = append(opts, segments.WithConfigEvents(segments.NewConfigEventProducer(a.Producer, topic, serviceName)))
	}

	return segments.NewService(segments.NewRepository(a.postgresDB), a.Logger, opts...)
}

func (a *App) initRouter(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(serviceName), tracing.ScopeAttributes())
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.CORSMiddleware(a.Config.API.CORS))

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	healthRegistry.Register(health.NewPostgreSQLChecker(a.postgresDB.DB))
	if a.redis != nil {
		healthRegistry.RegisterOptional(health.NewRedisChecker(a.redis))
	}
	if a.Producer != nil {
		healthRegistry.RegisterOptional(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}

	router.GET("/health", healthRegistry.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1")
	if a.Config.API.RateLimit.Enabled {
		a.limiter = ratelimit.NewStore(ratelimit.FromConfig(a.Config.API.RateLimit))
		api.Use(ratelimit.RateLimitMiddleware(a.limiter))
		a.Logger.InfowCtx(ctx, "Rate limiting enabled",
			"rps", a.Config.API.RateLimit.RPS,
			"burst", a.Config.API.RateLimit.Burst,
		)
	}
	api.Use(middleware.ScopeMiddleware())

	contactService := a.newContactService()
	contacts.NewHandler(contactService, a.Logger).RegisterRoutes(api)
	segments.NewHandler(a.newSegmentService(contactService), a.Logger).RegisterRoutes(api)

	a.router = router
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "Server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.Run(gCtx)
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		if a.server != nil {
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(shutdownCtx, a.redis, a.postgresDB, a.mongoClient)...)
		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}

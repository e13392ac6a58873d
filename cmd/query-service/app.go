package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	_ "entityquery/docs"

	"entityquery/internal/attributes"
	"entityquery/internal/auth"
	"entityquery/internal/config"
	"entityquery/internal/constants"
	"entityquery/internal/evaluation"
	"entityquery/internal/filters"
	"entityquery/internal/logger"
	"entityquery/internal/querying"
	"entityquery/pkg/bootstrap"
	"entityquery/pkg/cel"
	"entityquery/pkg/health"
	"entityquery/pkg/logging"
	"entityquery/pkg/metrics"
	"entityquery/pkg/middleware"
	"entityquery/pkg/migrations"
	"entityquery/pkg/ratelimit"
	"entityquery/pkg/tracing"
)

type App struct {
	*bootstrap.Base

	dbConnector    *bootstrap.DatabaseConnector
	dbs            bootstrap.Databases
	attributeStore attributes.Store
	filtersSvc     filters.Service
	queryingSvc    *querying.Service
	limiter        *ratelimit.Limiter
	server         *http.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	log = log.With(logging.ServiceNameKey, constants.ServiceName)
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(&cfg.Database, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp
	metrics.Register()

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitBroker(constants.ServiceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.initRouter(),
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	dbs, err := a.dbConnector.Connect(ctx)
	if err != nil {
		return err
	}
	a.dbs = dbs

	if dbs.Postgres == nil {
		return fmt.Errorf("saved filters require database.postgres")
	}

	if !a.Config.Database.RunMigrations {
		return nil
	}
	if err := migrations.MigratePostgres(dbs.Postgres, a.Logger); err != nil {
		return err
	}
	if mongoDB := dbs.MongoDatabase(a.Config.Database.MongoDB); mongoDB != nil {
		if err := migrations.EnsureMongoIndexes(ctx, mongoDB); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) initServices() error {
	store, err := attributes.NewStore(a.Config, attributes.Clients{
		Postgres: a.dbs.Postgres,
		Mongo:    a.dbs.MongoDatabase(a.Config.Database.MongoDB),
		Redis:    a.dbs.Redis,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.attributeStore = store

	resolver := evaluation.NewResolver(
		attributes.NewLookup(a.Config.Attributes.Loader, store),
		a.Logger,
		evaluation.WithStorageErrorMode(a.Config.Evaluation.OnStorageError),
		evaluation.WithResolveTimeout(a.Config.Evaluation.ResolveTimeout),
	)
	evaluator := evaluation.NewEvaluator(resolver, evaluation.OptionsFromConfig(a.Config.Evaluation), a.Logger)

	compiler, err := cel.NewCompiler()
	if err != nil {
		return err
	}

	a.filtersSvc = filters.NewService(
		filters.NewRepository(a.dbs.Postgres),
		a.Logger,
		filters.WithEventPublisher(filters.NewEventPublisher(a.Producer, a.filterEventsTopic())),
		filters.WithMaxDepth(a.Config.Evaluation.MaxDepth),
		filters.WithCacheTTL(a.Config.API.SavedFilterCacheTTL),
	)

	a.queryingSvc = querying.NewService(evaluator, a.filtersSvc, compiler, a.Logger,
		querying.WithMaxRows(a.Config.API.MaxRows),
		querying.WithMaxPageSize(a.Config.API.MaxPageSize),
	)

	if a.Config.API.RateLimit.Enabled {
		a.limiter = ratelimit.New(ratelimit.ConfigFromAPI(a.Config.API.RateLimit), byTenant)
	}
	return nil
}

func (a *App) filterEventsTopic() string {
	if topic := a.Config.Broker.Kafka.FilterEventsTopic; topic != "" {
		return topic
	}
	return constants.DefaultFilterEventsTopic
}

// byTenant charges API requests to the caller's tenant. It runs after the
// auth middleware, so a principal is always present.
func byTenant(c *gin.Context) string {
	if principal, ok := auth.PrincipalFromContext(c.Request.Context()); ok {
		return principal.TenantID
	}
	return c.ClientIP()
}

func (a *App) initRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}
	router.Use(middleware.Recovery(a.Logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.Logger))

	router.GET("/health", a.healthRegistry().Handler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1")
	api.Use(auth.Middleware(a.Config.Auth, a.Logger))
	if a.limiter != nil {
		api.Use(a.limiter.Middleware())
		a.Logger.Infow("Rate limiting enabled", "rps", a.Config.API.RateLimit.RPS, "burst", a.Config.API.RateLimit.Burst)
	}

	filters.NewHandler(a.filtersSvc, a.Logger).RegisterRoutes(api)
	querying.NewHandler(a.queryingSvc, a.Logger).RegisterRoutes(api)
	attributes.NewHandler(a.attributeStore, a.Logger).RegisterRoutes(api)

	return router
}

func (a *App) healthRegistry() *health.CheckerRegistry {
	registry := health.NewCheckerRegistry()
	registry.Register(health.NewPostgreSQLChecker(a.dbs.Postgres))
	if a.dbs.Redis != nil {
		registry.RegisterOptional(health.NewRedisChecker(a.dbs.Redis))
	}
	if a.dbs.Mongo != nil {
		checker := health.NewMongoDBChecker(a.dbs.Mongo)
		if a.Config.Attributes.Store == constants.AttributeStoreMongoDB {
			registry.Register(checker)
		} else {
			registry.RegisterOptional(checker)
		}
	}
	return registry
}

// Run serves HTTP and consumes filter events until ctx is done, then shuts
// everything down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(gctx, "Server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := a.Consumer.Consume(gctx, a.filterEventsTopic(), a.filtersSvc.HandleFilterEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("filter event consumer: %w", err)
		}
		return nil
	})

	if a.limiter != nil {
		g.Go(func() error {
			if err := a.limiter.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	runErr := g.Wait()
	if err := a.Shutdown(context.Background()); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
	defer cancel()

	return a.Base.Shutdown(shutdownCtx, func(ctx context.Context) []error {
		var errs []error
		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
			}
		}
		return append(errs, a.dbConnector.Close(ctx, a.dbs)...)
	})
}

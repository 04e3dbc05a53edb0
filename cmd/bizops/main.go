package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/bizops/internal/app"
	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/billing"
	"github.com/odyssey-erp/bizops/internal/businessdata"
	"github.com/odyssey-erp/bizops/internal/customers"
	"github.com/odyssey-erp/bizops/internal/identity"
	"github.com/odyssey-erp/bizops/internal/inventory"
	"github.com/odyssey-erp/bizops/internal/observability"
	"github.com/odyssey-erp/bizops/internal/platform/cache"
	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/platform/telemetry"
	"github.com/odyssey-erp/bizops/internal/reporting"
	"github.com/odyssey-erp/bizops/internal/scenarios"
	"github.com/odyssey-erp/bizops/internal/tenant"
	"github.com/odyssey-erp/bizops/jobs"
	"github.com/odyssey-erp/bizops/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("bizops", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if err := telemetry.Init(ctx, cfg.Telemetry()); err != nil {
		return err
	}
	defer func() {
		if err := telemetry.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := migrateUp(pool, logger); err != nil {
			return err
		}
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := cache.Ping(ctx, redisClient); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	guard, err := newGuard(cfg, pool, logger, metrics)
	if err != nil {
		return err
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	identityHandler, err := newIdentityHandler(cfg, pool, logger, metrics)
	if err != nil {
		return err
	}

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Ready: app.Readiness{
			Logger: logger,
			Checks: map[string]func(context.Context) error{
				"postgres": pool.Ping,
				"redis":    cache.Check(redisClient),
			},
		},
		AuthzMiddleware:     authz.Middleware{Guard: guard, Logger: logger},
		TenantHandler:       tenant.NewHandler(tenant.NewResolver(pool, cfg.RootDomain), logger),
		BusinessDataHandler: businessdata.NewHandler(businessdata.NewService(businessdata.NewRepository(pool), guard, logger), logger),
		ScenarioHandler:     scenarios.NewHandler(scenarios.NewService(scenarios.NewRepository(pool), guard, logger), logger),
		InventoryHandler:    inventory.NewHandler(inventory.NewService(inventory.NewRepository(pool), guard, logger), logger),
		CustomerHandler:     customers.NewHandler(customers.NewService(customers.NewRepository(pool), guard, logger), logger),
		BillingHandler:      billing.NewHandler(billing.NewService(billing.NewRepository(pool), guard, logger), logger),
		ReportingHandler: reporting.NewHandler(
			reporting.NewService(reporting.NewRepository(pool), guard, logger, reporting.WithEnqueuer(jobClient)),
			logger,
		),
		IdentityHandler: identityHandler,
		JobHandler:      jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newGuard(cfg *app.Config, pool *pgxpool.Pool, logger *slog.Logger, metrics *observability.Metrics) (*authz.Guard, error) {
	var resolver authz.Resolver = authz.HeaderResolver{}
	if cfg.JWTSecret != "" {
		jwtResolver, err := authz.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer, resolver)
		if err != nil {
			return nil, err
		}
		resolver = jwtResolver
	}
	return authz.NewGuard(resolver, authz.NewPostgresBindings(pool),
		authz.WithLogger(logger),
		authz.WithMetrics(authz.NewMetrics(metrics.Registerer())),
	), nil
}

func newIdentityHandler(cfg *app.Config, pool *pgxpool.Pool, logger *slog.Logger, metrics *observability.Metrics) (*identity.Handler, error) {
	var verifier *identity.Verifier
	if cfg.ClerkWebhookSecret != "" {
		v, err := identity.NewVerifier(cfg.ClerkWebhookSecret, cfg.WebhookTolerance)
		if err != nil {
			return nil, err
		}
		verifier = v
	} else {
		logger.Warn("CLERK_WEBHOOK_SIGNING_SECRET not set, webhook endpoint will answer 500")
	}
	service := identity.NewService(verifier, identity.NewPostgresStore(pool), identity.NewMetrics(metrics.Registerer()), logger)
	syncer := authz.NewSyncer(authz.NewPostgresSyncStore(pool))
	return identity.NewHandler(service, syncer, cfg.ClerkRoleSyncSecret, logger), nil
}

func migrateUp(pool *pgxpool.Pool, logger *slog.Logger) error {
	migrator, err := db.NewMigrator(pool, migrations.FS, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warn("migrator close", slog.Any("error", err))
		}
	}()
	return migrator.Up()
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"entityquery/internal/auth"
	"entityquery/internal/config"
	"entityquery/internal/constants"
	"entityquery/internal/evaluation"
	"entityquery/internal/logger"
	"entityquery/pkg/bootstrap"
	"entityquery/pkg/logging"
	"entityquery/pkg/migrations"
)

var configFile string

// @title           Entity Query Service API
// @version         1.0
// @description     Evaluates key filters with dynamic values against entity and alarm rows, manages saved filters and exports them as CEL.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @schemes   http https

//go:generate swag init -g main.go -d ./,../../internal,../../pkg -o ../../docs --parseDependency

func main() {
	rootCmd := &cobra.Command{
		Use:   constants.ServiceName,
		Short: "Entity query service",
		Long:  "Evaluates key filters with dynamic values against entity and alarm rows and manages saved filters",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (or CONFIG_FILE)")
	rootCmd.AddCommand(serveCmd(), migrateCmd(), tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the config path from the flag or CONFIG_FILE and
// builds the service logger from it.
func loadConfig() (*config.Config, logger.Logger, error) {
	earlyLog := logging.NewEarlyLog()

	path := configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
		return nil, nil, fmt.Errorf("config file is required")
	}

	cfg, err := config.Load(path)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return nil, nil, err
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the filter event consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting query service", "port", cfg.Server.Port)

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				_ = app.Shutdown(context.Background())
				return err
			}

			if err := app.Run(ctx); err != nil {
				log.ErrorwCtx(ctx, "Application error", "error", err)
				return err
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Applies pending PostgreSQL migrations and MongoDB indexes. With --down N, rolls back N PostgreSQL migrations instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			connector := bootstrap.NewDatabaseConnector(&cfg.Database, log)
			dbs, err := connector.Connect(ctx)
			if err != nil {
				return err
			}
			defer connector.Close(context.Background(), dbs)

			if dbs.Postgres == nil {
				return fmt.Errorf("database.postgres is not configured")
			}
			if down > 0 {
				return migrations.RollbackPostgres(dbs.Postgres, down, log)
			}
			if err := migrations.MigratePostgres(dbs.Postgres, log); err != nil {
				return err
			}
			if mongoDB := dbs.MongoDatabase(cfg.Database.MongoDB); mongoDB != nil {
				if err := migrations.EnsureMongoIndexes(ctx, mongoDB); err != nil {
					return err
				}
				log.InfowCtx(ctx, "MongoDB indexes ensured", "database", mongoDB.Name())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "Number of PostgreSQL migrations to roll back")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		principal evaluation.Principal
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the configured JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not configured")
			}
			token, err := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer).Issue(principal, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&principal.TenantID, "tenant", "", "Tenant id (required)")
	cmd.Flags().StringVar(&principal.CustomerID, "customer", constants.NullUUID, "Customer id")
	cmd.Flags().StringVar(&principal.UserID, "user", "", "User id")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

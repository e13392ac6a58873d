package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"entityquery/internal/config"
	"entityquery/internal/constants"
	"entityquery/internal/logger"
)

// Databases holds the connections opened by a DatabaseConnector. Any of them
// may be nil when its section is not configured.
type Databases struct {
	Postgres *sql.DB
	Redis    *redis.Client
	Mongo    *mongo.Client
}

// MongoDatabase returns the configured database, or nil without a client.
func (d Databases) MongoDatabase(cfg config.MongoDBConfig) *mongo.Database {
	if d.Mongo == nil {
		return nil
	}
	name := cfg.Database
	if name == "" {
		name = constants.DefaultMongoDBName
	}
	return d.Mongo.Database(name)
}

type DatabaseConnector struct {
	Config *config.DatabaseConfig
	Logger logger.Logger
}

func NewDatabaseConnector(cfg *config.DatabaseConfig, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Config: cfg,
		Logger: log,
	}
}

// Connect opens every configured database. On failure the connections
// already opened are closed.
func (dc *DatabaseConnector) Connect(ctx context.Context) (Databases, error) {
	var (
		dbs Databases
		err error
	)

	if dbs.Postgres, err = dc.InitPostgreSQL(ctx); err != nil {
		return Databases{}, err
	}
	if dbs.Redis, err = dc.InitRedis(ctx); err != nil {
		dc.Close(ctx, dbs)
		return Databases{}, err
	}
	if dbs.Mongo, err = dc.InitMongoDB(ctx); err != nil {
		dc.Close(ctx, dbs)
		return Databases{}, err
	}
	return dbs, nil
}

func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	cfg := dc.Config.Redis
	if cfg.Host == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	dc.Logger.InfowCtx(ctx, "Redis connected", "addr", rdb.Options().Addr)
	return rdb, nil
}

// PostgresDSN renders cfg as a lib/pq connection URL.
func PostgresDSN(cfg config.PostgresConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.DBName,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return dsn.String()
}

func (dc *DatabaseConnector) InitPostgreSQL(ctx context.Context) (*sql.DB, error) {
	cfg := dc.Config.Postgres
	if cfg.Host == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", PostgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dc.Logger.InfowCtx(ctx, "PostgreSQL connected", "host", cfg.Host, "database", cfg.DBName)
	return db, nil
}

func (dc *DatabaseConnector) InitMongoDB(ctx context.Context) (*mongo.Client, error) {
	cfg := dc.Config.MongoDB
	if cfg.URI == "" {
		return nil, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dc.Logger.InfowCtx(ctx, "MongoDB connected", "database", cfg.Database)
	return client, nil
}

// Close releases every connection in dbs and returns the errors.
func (dc *DatabaseConnector) Close(ctx context.Context, dbs Databases) []error {
	var errs []error
	if dbs.Redis != nil {
		if err := dbs.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if dbs.Postgres != nil {
		if err := dbs.Postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}
	if dbs.Mongo != nil {
		if err := dbs.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb disconnect: %w", err))
		}
	}
	return errs
}

// Package main provides the entry point for the incident tracking server
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sgisi-platform/go-core/internal/api/rest"
	"github.com/sgisi-platform/go-core/internal/audit"
	"github.com/sgisi-platform/go-core/internal/config"
	"github.com/sgisi-platform/go-core/internal/db"
	"github.com/sgisi-platform/go-core/internal/evidence"
	"github.com/sgisi-platform/go-core/internal/identity"
	"github.com/sgisi-platform/go-core/internal/mailer"
	"github.com/sgisi-platform/go-core/internal/metrics"
	"github.com/sgisi-platform/go-core/internal/policy"
	"github.com/sgisi-platform/go-core/internal/ratelimit"
	"github.com/sgisi-platform/go-core/internal/store"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file (env vars apply on top)")
		migrateOnly = flag.Bool("migrate-only", false, "Run database migrations and exit")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("sgisi-server %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting incident tracking server",
		zap.String("version", Version),
		zap.Int("port", cfg.Server.Port),
	)

	// Database
	database, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	database.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	database.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	database.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	defer database.Close()

	runner, err := db.NewMigrationRunner(database, logger)
	if err != nil {
		logger.Fatal("Failed to create migration runner", zap.Error(err))
	}
	if err := runner.Up(); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	if *migrateOnly {
		logger.Info("Migrations applied, exiting")
		return
	}

	// Redis (session revocation and sign-in throttling)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Metrics
	m := metrics.New("sgisi")

	// Audit sink
	auditWriter, err := buildAuditWriter(cfg, database)
	if err != nil {
		logger.Fatal("Failed to create audit writer", zap.Error(err))
	}
	auditLogger := audit.NewLogger(auditWriter, audit.DefaultConfig(), logger)
	defer auditLogger.Close()

	// Decision engine
	engine := policy.New(logger,
		policy.WithRecorder(auditLogger),
		policy.WithRecorder(m),
	)

	// Entity stores
	pg := store.NewPostgres(database, engine)
	profiles := store.PostgresProfiles{Postgres: pg}
	teams := store.PostgresTeams{Postgres: pg}
	incidents := store.PostgresIncidents{Postgres: pg}

	// Identity
	tokens, err := identity.NewTokens(identity.TokenConfig{
		Secret: []byte(cfg.Auth.JWTSecret),
		Issuer: "sgisi-core",
		TTL:    cfg.Auth.TokenTTL,
	}, redisClient)
	if err != nil {
		logger.Fatal("Failed to create token issuer", zap.Error(err))
	}

	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.Burst = cfg.Auth.SignInBurst
	limiterCfg.Rate = 1 / cfg.Auth.SignInRefill.Seconds()
	limiter := ratelimit.NewRedisLimiter(redisClient, limiterCfg)

	users := identity.NewPostgresUsers(database)
	idSvc := identity.NewService(users, profiles, tokens, limiter, logger)
	resolver := identity.NewResolver(tokens, profiles, logger)

	// Evidence proxy
	cipher, err := evidence.NewCipher([]byte(cfg.Evidence.Key))
	if err != nil {
		logger.Fatal("Failed to create evidence cipher", zap.Error(err))
	}
	blobs, err := evidence.NewFSStore(cfg.Evidence.Dir)
	if err != nil {
		logger.Fatal("Failed to create evidence store", zap.Error(err))
	}
	proxy := evidence.NewProxy(cipher, blobs)

	// Mail relay, optional
	var sender mailer.Sender
	if cfg.SMTP.Host != "" {
		sender, err = mailer.NewSMTPSender(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create mail sender", zap.Error(err))
		}
	}

	// REST server
	restCfg := rest.DefaultConfig()
	restCfg.Port = cfg.Server.Port
	restCfg.ReadTimeout = cfg.Server.ReadTimeout
	restCfg.WriteTimeout = cfg.Server.WriteTimeout
	restCfg.IdleTimeout = cfg.Server.IdleTimeout
	restCfg.CORSOrigins = cfg.Server.CORSOrigins
	restCfg.Version = Version

	srv, err := rest.New(restCfg, rest.Deps{
		Identity:  idSvc,
		Resolver:  resolver,
		Profiles:  profiles,
		Teams:     teams,
		Incidents: incidents,
		Evidence:  proxy,
		Mailer:    sender,
		Exporter:  policy.NewExporter(Version),
		Metrics:   m,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create REST server", zap.Error(err))
	}

	errChan := make(chan error, 1)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", zap.Error(err))
		}
	}

	logger.Info("Server stopped successfully")
}

// buildAuditWriter creates the configured decision audit sink
func buildAuditWriter(cfg *config.Config, database *sql.DB) (audit.Writer, error) {
	switch cfg.Audit.Sink {
	case "file":
		return audit.NewFileWriter(cfg.Audit.FilePath,
			cfg.Audit.MaxSizeMB, cfg.Audit.MaxAgeDays, cfg.Audit.MaxBackups)
	case "postgres":
		return audit.NewPostgresWriter(database), nil
	default:
		return audit.NewStdoutWriter(), nil
	}
}

// initLogger initializes the zap logger
func initLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var config zap.Config
	if format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	return config.Build()
}

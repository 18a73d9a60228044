package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fiskal/internal/adapters/archive/s3"
	"fiskal/internal/adapters/fiscal/fina"
	"fiskal/internal/adapters/http/health"
	"fiskal/internal/adapters/http/receipts"
	"fiskal/internal/adapters/http/webhook"
	"fiskal/internal/adapters/receipt/postgres"
	"fiskal/internal/application/fiscalization"
	"fiskal/internal/core/archive"
	"fiskal/internal/core/fiscal"
	"fiskal/internal/infrastructure/config"
	"fiskal/internal/infrastructure/http/server"
	"fiskal/internal/infrastructure/logger"
	"fiskal/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "service stopped: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.ConnString())
	if err != nil {
		return fmt.Errorf("open database pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	log.Info("Database connection established", "database", cfg.Database.Database)

	if err := migrate.Run(ctx, pool, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	creds, err := fina.LoadSigningContext(cfg.Fiscal.P12Path, cfg.Fiscal.P12Password)
	if err != nil {
		return fmt.Errorf("load signing credentials: %w", err)
	}
	log.Info("Signing certificate loaded", "subject", creds.Certificate().Subject.CommonName)

	client, err := fina.NewClient(cfg.Fiscal.Endpoint, cfg.Fiscal.CADir, creds, cfg.Fiscal.RequestTimeout, log)
	if err != nil {
		return fmt.Errorf("build fiscal client: %w", err)
	}

	provider := fina.NewProvider(fina.Options{
		Creds:  creds,
		Client: client,
		Identity: fina.Identity{
			CompanyOIB:  cfg.Fiscal.CompanyOIB,
			OperatorOIB: cfg.Fiscal.OperatorOIB,
			LocationID:  cfg.Fiscal.LocationID,
			RegisterID:  cfg.Fiscal.RegisterID,
		},
		Location: cfg.Fiscal.Location(),
		Logger:   log,
	})

	registry := fiscal.NewRegistry()
	if err := registry.Register(provider); err != nil {
		return fmt.Errorf("register fiscal provider: %w", err)
	}

	var archiver archive.Archiver = archive.Discard{}
	if cfg.Archive.Enabled {
		storage, err := s3.New(s3.Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		}, log)
		if err != nil {
			return fmt.Errorf("build archive storage: %w", err)
		}
		archiver = storage
		log.Info("Document archival enabled", "bucket", cfg.Archive.Bucket)
	} else {
		log.Warn("Document archival disabled, fiscal documents will not be retained")
	}

	repo := postgres.NewRepository(pool, log)
	service := fiscalization.NewService(fiscalization.Options{
		Repository: repo,
		Registry:   registry,
		Provider:   cfg.Fiscal.Provider,
		Archiver:   archiver,
		Currency:   cfg.Fiscal.Currency,
		LocationID: cfg.Fiscal.LocationID,
		RegisterID: cfg.Fiscal.RegisterID,
		Location:   cfg.Fiscal.Location(),
		Logger:     log,
	})

	srv, err := server.New(server.Options{
		Addr:   cfg.HTTP.Address(),
		Logger: log,
		Webhook: webhook.NewHandler(webhook.Options{
			Service:   service,
			Archiver:  archiver,
			Secret:    cfg.Webhook.SigningSecret,
			Tolerance: cfg.Webhook.Tolerance,
			Logger:    log,
		}),
		Receipts: receipts.NewHandler(service, log),
		Health:   health.NewHandler(pool, service, cfg.Cleanup.StaleAge, log),
	})
	if err != nil {
		return fmt.Errorf("build http server: %w", err)
	}

	return srv.Run(ctx)
}

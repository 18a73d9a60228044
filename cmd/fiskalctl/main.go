// fiskalctl is the operator's companion tool: manual receipt creation,
// retry of failed fiscalizations, the stale-record sweep, schema
// migrations and a TLS probe against the authority endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"fiskal/internal/adapters/archive/s3"
	"fiskal/internal/adapters/fiscal/fina"
	"fiskal/internal/adapters/receipt/postgres"
	"fiskal/internal/application/fiscalization"
	"fiskal/internal/core/archive"
	"fiskal/internal/core/fiscal"
	"fiskal/internal/core/receipt"
	"fiskal/internal/infrastructure/config"
	"fiskal/internal/infrastructure/logger"
	"fiskal/internal/migrate"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const paymentTimeLayout = "2006-01-02 15:04:05"

func main() {
	var (
		retryReceipt  = flag.Int64("retry-receipt", 0, "retry fiscalization for receipt number N")
		createReceipt = flag.Bool("create-receipt", false, "create and fiscalize a new receipt")
		amount        = flag.String("amount", "", "payment amount in EUR (required for -create-receipt)")
		paymentTime   = flag.String("payment-time", "", `payment timestamp "YYYY-MM-DD HH:MM:SS" (defaults to now)`)
		orderID       = flag.String("order-id", "", "order identifier (optional)")
		externalID    = flag.String("external-id", "", "payment identifier (auto-generated if omitted)")
		cleanupStale  = flag.Bool("cleanup-stale", false, "mark stale processing records as failed")
		checkTLS      = flag.Bool("check-tls", false, "probe the TLS handshake against the fiscal endpoint")
		runMigrate    = flag.Bool("migrate", false, "apply pending schema migrations")
		migrateStatus = flag.Bool("migrate-status", false, "list migrations and their state")
	)
	flag.Parse()

	if err := run(*retryReceipt, *createReceipt, *amount, *paymentTime, *orderID, *externalID,
		*cleanupStale, *checkTLS, *runMigrate, *migrateStatus); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(retryReceipt int64, createReceipt bool, amountRaw, paymentTimeRaw, orderID, externalID string,
	cleanupStale, checkTLS, runMigrate, migrateStatus bool) error {

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.App.Name+"-ctl", cfg.Log.Level, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case checkTLS:
		if err := fina.CheckTLS(ctx, cfg.Fiscal.Endpoint, cfg.Fiscal.CADir, cfg.Fiscal.RequestTimeout); err != nil {
			return fmt.Errorf("TLS probe failed: %w", err)
		}
		fmt.Printf("TLS handshake with %s succeeded\n", cfg.Fiscal.Endpoint)
		return nil

	case runMigrate:
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		return migrate.Run(ctx, pool, log)

	case migrateStatus:
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		statuses, err := migrate.List(ctx, pool)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			mark := "pending"
			if st.Applied {
				mark = "applied"
			}
			fmt.Printf("%-10s %s\n", mark, st.Version)
		}
		return nil

	case cleanupStale:
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		repo := postgres.NewRepository(pool, log)
		stale, err := repo.CleanupStale(ctx, cfg.Cleanup.StaleAge)
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			fmt.Println("no stale processing records")
			return nil
		}
		for _, rec := range stale {
			fmt.Printf("marked failed: receipt %d (payment %s)\n", rec.ReceiptNumber, rec.ExternalID)
		}
		return nil

	case retryReceipt > 0:
		service, pool, err := buildService(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer pool.Close()

		folder := fiscalization.ArchiveFolder("fina-manual-retry", strconv.FormatInt(retryReceipt, 10), time.Now())
		result, err := service.Retry(ctx, retryReceipt, folder)
		if err != nil {
			return err
		}
		return printResult(result)

	case createReceipt:
		if amountRaw == "" {
			return fmt.Errorf("-create-receipt requires -amount")
		}
		amt, err := decimal.NewFromString(amountRaw)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", amountRaw, err)
		}

		when := time.Now().In(cfg.Fiscal.Location())
		if paymentTimeRaw != "" {
			// Bare timestamps are read in the fiscal timezone.
			when, err = time.ParseInLocation(paymentTimeLayout, paymentTimeRaw, cfg.Fiscal.Location())
			if err != nil {
				return fmt.Errorf(`-payment-time must be "YYYY-MM-DD HH:MM:SS": %w`, err)
			}
		}

		if externalID == "" {
			externalID = "manual_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
			log.Info("Generated manual payment ID", "external_id", externalID)
		}

		service, pool, err := buildService(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer pool.Close()

		result, err := service.Fiscalize(ctx, fiscalization.PaymentInput{
			ExternalID:    externalID,
			OrderID:       orderID,
			Amount:        amt,
			Currency:      cfg.Fiscal.Currency,
			PaymentTime:   when,
			ArchiveFolder: fiscalization.ArchiveFolder("fina-manual", externalID, time.Now()),
		})
		if err != nil {
			return err
		}
		fmt.Printf("payment id: %s\n", externalID)
		return printResult(result)

	default:
		flag.Usage()
		return fmt.Errorf("no operation selected")
	}
}

func openPool(ctx context.Context, cfg config.AppConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.Database.ConnString())
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return pool, nil
}

func buildService(ctx context.Context, cfg config.AppConfig, log *slog.Logger) (*fiscalization.Service, *pgxpool.Pool, error) {
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	creds, err := fina.LoadSigningContext(cfg.Fiscal.P12Path, cfg.Fiscal.P12Password)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("load signing credentials: %w", err)
	}

	client, err := fina.NewClient(cfg.Fiscal.Endpoint, cfg.Fiscal.CADir, creds, cfg.Fiscal.RequestTimeout, log)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("build fiscal client: %w", err)
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
		pool.Close()
		return nil, nil, err
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
			pool.Close()
			return nil, nil, fmt.Errorf("build archive storage: %w", err)
		}
		archiver = storage
	}

	service := fiscalization.NewService(fiscalization.Options{
		Repository: postgres.NewRepository(pool, log),
		Registry:   registry,
		Provider:   cfg.Fiscal.Provider,
		Archiver:   archiver,
		Currency:   cfg.Fiscal.Currency,
		LocationID: cfg.Fiscal.LocationID,
		RegisterID: cfg.Fiscal.RegisterID,
		Location:   cfg.Fiscal.Location(),
		Logger:     log,
	})
	return service, pool, nil
}

func printResult(result fiscalization.Result) error {
	if result.Status == receipt.StatusCompleted {
		fmt.Printf("receipt %d completed\n", result.ReceiptNumber)
		fmt.Printf("  ZKI: %s\n", result.ZKI)
		fmt.Printf("  JIR: %s\n", result.JIR)
		return nil
	}
	fmt.Printf("receipt %d %s\n", result.ReceiptNumber, result.Status)
	if result.ZKI != "" {
		fmt.Printf("  ZKI: %s\n", result.ZKI)
	}
	if result.FaultClass != "" {
		fmt.Printf("  fault: %s\n", result.FaultClass)
	}
	if result.FaultCode != "" {
		fmt.Printf("  code: %s\n", result.FaultCode)
	}
	return fmt.Errorf("fiscalization did not complete")
}

// Package migrate applies the embedded schema migrations in filename
// order, tracking applied versions in schema_migrations.
package migrate

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Status describes one known migration.
type Status struct {
	Version string
	Applied bool
}

// Run applies every pending migration. Each migration runs in its own
// transaction together with its tracking row, so a failure leaves the
// schema at the last fully applied version.
func Run(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	if err := ensureTrackingTable(ctx, pool); err != nil {
		return err
	}

	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return err
	}

	versions, err := availableVersions()
	if err != nil {
		return err
	}

	pending := 0
	for _, version := range versions {
		if applied[version] {
			continue
		}
		if err := apply(ctx, pool, version); err != nil {
			return fmt.Errorf("applying migration %s: %w", version, err)
		}
		log.Info("Applied migration", "version", version)
		pending++
	}

	if pending == 0 {
		log.Info("No pending migrations")
	} else {
		log.Info("All migrations applied", "count", pending)
	}
	return nil
}

// List reports every known migration and whether it has been applied.
func List(ctx context.Context, pool *pgxpool.Pool) ([]Status, error) {
	if err := ensureTrackingTable(ctx, pool); err != nil {
		return nil, err
	}

	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return nil, err
	}

	versions, err := availableVersions()
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(versions))
	for _, version := range versions {
		statuses = append(statuses, Status{Version: version, Applied: applied[version]})
	}
	return statuses, nil
}

func ensureTrackingTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			version VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensuring schema_migrations table: %w", err)
	}
	return nil
}

func appliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func availableVersions() ([]string, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("reading embedded migrations: %w", err)
	}

	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}
		versions = append(versions, strings.TrimSuffix(name, ".sql"))
	}
	sort.Strings(versions)
	return versions, nil
}

func apply(ctx context.Context, pool *pgxpool.Pool, version string) error {
	sql, err := migrationFiles.ReadFile("migrations/" + version + ".sql")
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Migration files may hold several statements; the simple protocol
	// runs them in one round trip.
	if _, err := tx.Exec(ctx, string(sql), pgx.QueryExecModeSimpleProtocol); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

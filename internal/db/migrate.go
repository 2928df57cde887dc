package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/tern/v2/migrate"

	"github.com/onnwee/singme/internal/tracing"
)

const (
	// VersionTable records the last applied migration sequence.
	VersionTable = "public.schema_version"

	// migrationLockID is the advisory lock key held for a whole run.
	// Value: 0x73696e676d65 ("singme" in ASCII hex)
	migrationLockID             = int64(0x73696e676d65)
	migrationLockReleaseTimeout = 5 * time.Second
)

// MigrationResult reports the schema version before and after a run.
type MigrationResult struct {
	From int32
	To   int32
}

// Applied returns the number of migrations the run applied.
func (r MigrationResult) Applied() int {
	return int(r.To - r.From)
}

// LoadMigrations parses every migration in fsys without touching a database.
// It fails on gaps or duplicates in the numbering.
func LoadMigrations(fsys fs.FS) ([]*migrate.Migration, error) {
	m, err := newMigrator(context.Background(), nil, fsys)
	if err != nil {
		return nil, err
	}
	return m.Migrations, nil
}

// Migrate brings the schema at databaseURL up to the newest migration in fsys.
// The run holds a session advisory lock, so replicas starting together wait
// for each other and every migration is applied exactly once.
func Migrate(ctx context.Context, databaseURL string, fsys fs.FS, logger *slog.Logger) (res MigrationResult, err error) {
	if databaseURL == "" {
		return res, errors.New("database URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, VersionTable, tracing.DBOperationMigrate)
	defer func() { endSpan(err) }()

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return res, fmt.Errorf("failed to connect for migration: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), migrationLockReleaseTimeout)
		defer cancel()
		if err := conn.Close(closeCtx); err != nil {
			logger.Warn("failed to close migration connection", slog.String("error", err.Error()))
		}
	}()

	unlock, err := migrationLock(ctx, conn, logger)
	if err != nil {
		return res, err
	}
	defer unlock()

	migrator, err := newMigrator(ctx, conn, fsys)
	if err != nil {
		return res, err
	}
	migrator.OnStart = func(sequence int32, name, direction, _ string) {
		logger.Info("applying migration",
			slog.Int("sequence", int(sequence)),
			slog.String("name", name),
			slog.String("direction", direction))
	}

	if res.From, err = migrator.GetCurrentVersion(ctx); err != nil {
		logger.Debug("could not read schema version, assuming fresh database", slog.String("error", err.Error()))
		res.From = 0
	}

	if err = migrator.Migrate(ctx); err != nil {
		return res, fmt.Errorf("failed to migrate database: %w", err)
	}

	if res.To, err = migrator.GetCurrentVersion(ctx); err != nil {
		return res, fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("schema up to date",
		slog.Int("version", int(res.To)),
		slog.Int("applied", res.Applied()))
	return res, nil
}

// newMigrator loads fsys into a tern migrator. A nil conn yields a migrator
// that can only be inspected.
func newMigrator(ctx context.Context, conn *pgx.Conn, fsys fs.FS) (*migrate.Migrator, error) {
	m, err := migrate.NewMigrator(ctx, conn, VersionTable)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.LoadMigrations(fsys); err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	if len(m.Migrations) == 0 {
		return nil, errors.New("no migrations found")
	}
	return m, nil
}

func migrationLock(ctx context.Context, conn *pgx.Conn, logger *slog.Logger) (func(), error) {
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return nil, fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), migrationLockReleaseTimeout)
		defer cancel()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			logger.Warn("failed to release migration lock", slog.String("error", err.Error()))
		}
	}, nil
}

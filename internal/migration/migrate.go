package migration

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/elskow/assessgate/internal/config"
)

type Migrator struct {
	db  *sql.DB
	dir string
}

// NewMigrator opens a lazy connection; nothing touches the database until a
// command runs.
func NewMigrator(config *config.DatabaseConfig) (*Migrator, error) {
	dir, err := getMigrationsDir(config.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get migrations directory: %w", err)
	}

	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set dialect: %w", err)
	}

	return &Migrator{
		db:  db,
		dir: dir,
	}, nil
}

func (m *Migrator) Dir() string {
	return m.dir
}

func (m *Migrator) Up(ctx context.Context) error {
	if err := goose.UpContext(ctx, m.db, m.dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (m *Migrator) Down(ctx context.Context) error {
	if err := goose.DownContext(ctx, m.db, m.dir); err != nil {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	return nil
}

func (m *Migrator) Close() error {
	return m.db.Close()
}

// GetCurrentVersion returns the current migration version
func (m *Migrator) GetCurrentVersion(ctx context.Context) (int64, error) {
	return goose.GetDBVersionContext(ctx, m.db)
}

// GetLatestVersion returns the latest available migration version
func (m *Migrator) GetLatestVersion() (int64, error) {
	migrations, err := goose.CollectMigrations(m.dir, 0, goose.MaxVersion)
	if err != nil {
		return 0, err
	}

	if len(migrations) == 0 {
		return 0, nil
	}

	return migrations[len(migrations)-1].Version, nil
}

// DownTo migrates the database down to a specific version
func (m *Migrator) DownTo(ctx context.Context, version int64) error {
	if err := goose.DownToContext(ctx, m.db, m.dir, version); err != nil {
		return fmt.Errorf("failed to migrate down to version %d: %w", version, err)
	}
	return nil
}

func (m *Migrator) Status(ctx context.Context) error {
	if err := goose.StatusContext(ctx, m.db, m.dir); err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	return nil
}

func (m *Migrator) Reset(ctx context.Context) error {
	if err := goose.ResetContext(ctx, m.db, m.dir); err != nil {
		return fmt.Errorf("failed to reset migrations: %w", err)
	}
	return m.Up(ctx)
}

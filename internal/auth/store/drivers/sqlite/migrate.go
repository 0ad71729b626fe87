package sqlite

import (
	"errors"
	"fmt"

	"github.com/eduflowhub/eduflow/internal/auth/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// ErrDirtySchema means a previous migration failed halfway. The users table
// is in an unknown shape and needs manual repair before the service starts.
var ErrDirtySchema = errors.New("sqlite: schema is dirty")

// ApplyMigrations brings the users schema up to the latest embedded version.
// The postgres driver embeds its own goose migrations.
func (m *Store) ApplyMigrations() error {
	instance, err := m.migrator()
	if err != nil {
		return err
	}

	if _, dirty, err := instance.Version(); err == nil && dirty {
		return ErrDirtySchema
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: migrate up: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version, 0 before the first.
func (m *Store) SchemaVersion() (uint, error) {
	instance, err := m.migrator()
	if err != nil {
		return 0, err
	}
	v, dirty, err := instance.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, err
	case dirty:
		return v, ErrDirtySchema
	}
	return v, nil
}

func (m *Store) migrator() (*migrate.Migrate, error) {
	driver, err := sqlite.WithInstance(m.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("sqlite: migration driver: %w", err)
	}
	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("sqlite: migration source: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, "sqlite", driver)
}

package db

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"movebooking/pkg/config"
)

const DefaultMigrationsPath = "file://migrations"

// ErrDirty means an earlier run stopped halfway. Fix the schema by hand, then
// force the version with the migrate CLI.
var ErrDirty = errors.New("schema is dirty")

// SchemaState is the migration version recorded in schema_migrations.
type SchemaState struct {
	Version uint
	Dirty   bool
	// Empty is true when no migration has ever been applied.
	Empty bool
}

func (s SchemaState) String() string {
	switch {
	case s.Empty:
		return "no migrations applied"
	case s.Dirty:
		return fmt.Sprintf("version %d (dirty)", s.Version)
	default:
		return fmt.Sprintf("version %d", s.Version)
	}
}

// Migrate applies pending migrations from migrationsPath through DIRECT_URL
// when set. steps == 0 applies all pending ups; otherwise it moves that many
// versions, negative meaning down. A dirty schema is refused before any change.
func Migrate(migrationsPath string, cfg config.Config, steps int) (SchemaState, error) {
	if migrationsPath == "" {
		migrationsPath = DefaultMigrationsPath
	}
	m, err := migrate.New(migrationsPath, migrationConnString(cfg))
	if err != nil {
		return SchemaState{}, fmt.Errorf("init migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	before, err := schemaState(m.Version())
	if err != nil {
		return SchemaState{}, err
	}
	if before.Dirty {
		return before, fmt.Errorf("%w at version %d", ErrDirty, before.Version)
	}

	if steps == 0 {
		err = m.Up()
	} else {
		err = m.Steps(steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		// Report where the run stopped; a failed step leaves the schema dirty.
		after, _ := schemaState(m.Version())
		return after, err
	}
	return schemaState(m.Version())
}

func schemaState(version uint, dirty bool, err error) (SchemaState, error) {
	if errors.Is(err, migrate.ErrNilVersion) {
		return SchemaState{Empty: true}, nil
	}
	if err != nil {
		return SchemaState{}, fmt.Errorf("read schema version: %w", err)
	}
	return SchemaState{Version: version, Dirty: dirty}, nil
}

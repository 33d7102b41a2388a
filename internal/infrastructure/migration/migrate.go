// Package migration applies, inspects and scaffolds the versioned postgres
// schema of the ledger. sqlite deployments are built from the GORM models
// instead and never go through this package.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator drives golang-migrate over one database and one migration source
type Migrator struct {
	m      *migrate.Migrate
	src    fs.FS
	logger *zap.Logger
}

// Status compares the applied schema with the newest migration in the source
type Status struct {
	Applied uint
	Dirty   bool
	Latest  uint
}

// Pending reports whether the source has migrations the database lacks
func (s Status) Pending() bool { return s.Applied < s.Latest }

// New opens src (the embedded schema, or os.DirFS of a directory) against db
func New(db *sql.DB, src fs.FS, logger *zap.Logger) (*Migrator, error) {
	source, err := iofs.New(src, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return &Migrator{m: m, src: src, logger: logger}, nil
}

// apply runs one golang-migrate operation, treating ErrNoChange as success
func (mg *Migrator) apply(op string, fields []zap.Field, run func() error) error {
	log := mg.logger.With(append(fields, zap.String("op", op))...)
	log.Info("schema migration starting")
	err := run()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("schema already current")
		return nil
	case err != nil:
		return fmt.Errorf("migrate %s: %w", op, err)
	}
	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	log.Info("schema migration finished", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Up applies every pending migration
func (mg *Migrator) Up() error {
	return mg.apply("up", nil, mg.m.Up)
}

// Down rolls back every applied migration
func (mg *Migrator) Down() error {
	return mg.apply("down", nil, mg.m.Down)
}

// Steps moves n migrations forward, or back when n is negative
func (mg *Migrator) Steps(n int) error {
	return mg.apply("steps", []zap.Field{zap.Int("n", n)}, func() error { return mg.m.Steps(n) })
}

// GoTo migrates up or down to version
func (mg *Migrator) GoTo(version uint) error {
	return mg.apply("goto", []zap.Field{zap.Uint("target", version)}, func() error { return mg.m.Migrate(version) })
}

// Version returns the applied version; 0 when the schema is empty
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// Status reports the applied and latest available versions
func (mg *Migrator) Status() (Status, error) {
	applied, dirty, err := mg.Version()
	if err != nil {
		return Status{}, err
	}
	list, err := ListMigrations(mg.src)
	if err != nil {
		return Status{}, err
	}
	st := Status{Applied: applied, Dirty: dirty}
	if len(list) > 0 {
		latest, err := strconv.ParseUint(list[len(list)-1].Version, 10, 64)
		if err != nil {
			return Status{}, fmt.Errorf("migration %s: bad version: %w", list[len(list)-1].Base(), err)
		}
		st.Latest = uint(latest)
	}
	return st, nil
}

// Force records version as applied and clean without running anything.
// It is the repair step after a failed migration left the schema dirty.
func (mg *Migrator) Force(version int) error {
	mg.logger.Warn("forcing schema version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every table, ledger data included
func (mg *Migrator) Drop() error {
	mg.logger.Warn("dropping all ledger tables")
	if err := mg.m.Drop(); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}

// Close releases the source and the database driver
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

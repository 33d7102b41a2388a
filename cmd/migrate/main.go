// Command migrate manages the ledger's postgres schema: apply and roll back
// the embedded migrations, inspect the applied version, and scaffold new
// migration files.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/migration"
	"github.com/erp/ledger/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

var errUsage = errors.New("usage")

var dbCommands = []string{"up", "down", "step", "goto", "status", "version", "force", "drop"}

func main() {
	migrationsPath := flag.String("path", "", "read migrations from this directory instead of the embedded schema")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeLayout: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	err = run(log, *migrationsPath, flag.Arg(0), flag.Args()[1:])
	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, err)
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("migrate failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
}

func run(log *zap.Logger, dir, cmd string, args []string) error {
	var source fs.FS = migrations.FS
	if dir != "" {
		source = os.DirFS(dir)
	}

	// file-only commands need no database
	switch cmd {
	case "create":
		if len(args) == 0 {
			return fmt.Errorf("%w: migrate create <name> [description]", errUsage)
		}
		if dir == "" {
			dir = defaultMigrationsDir
		}
		var desc string
		if len(args) > 1 {
			desc = args[1]
		}
		mf, err := migration.CreateMigration(dir, args[0], desc)
		if err != nil {
			return err
		}
		log.Info("migration created", zap.String("up", mf.UpPath), zap.String("down", mf.DownPath))
		return nil
	case "list":
		list, err := migration.ListMigrations(source)
		if err != nil {
			return err
		}
		for _, m := range list {
			rollback := "no rollback"
			if m.HasDown {
				rollback = "reversible"
			}
			fmt.Printf("%s  %s  (%s)\n", m.Version, m.Name, rollback)
		}
		return nil
	case "validate":
		if err := migration.Validate(source); err != nil {
			return err
		}
		log.Info("migrations are consistent")
		return nil
	}

	if !slices.Contains(dbCommands, cmd) {
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	m, closeDB, err := open(source, log)
	if err != nil {
		return err
	}
	defer closeDB()

	switch cmd {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		n, err := intArg(args, "migrate step <n>")
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "goto":
		v, err := intArg(args, "migrate goto <version>")
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("%w: version must be positive", errUsage)
		}
		return m.GoTo(uint(v))
	case "status", "version":
		st, err := m.Status()
		if err != nil {
			return err
		}
		log.Info("schema status",
			zap.Uint("applied", st.Applied),
			zap.Uint("latest", st.Latest),
			zap.Bool("dirty", st.Dirty),
			zap.Bool("pending", st.Pending()),
		)
		return nil
	case "force":
		v, err := intArg(args, "migrate force <version>")
		if err != nil {
			return err
		}
		return m.Force(v)
	case "drop":
		if !slices.Contains(args, "-confirm") && !slices.Contains(args, "--confirm") {
			return fmt.Errorf("%w: drop needs -confirm", errUsage)
		}
		return m.Drop()
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

// open connects to the configured postgres database
func open(source fs.FS, log *zap.Logger) (*migration.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.Driver == "sqlite" {
		return nil, nil, errors.New("SQL migrations target postgres; sqlite databases are created from the models")
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	m, err := migration.New(db, source, log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, func() {
		_ = m.Close()
		_ = db.Close()
	}, nil
}

func intArg(args []string, usage string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: %s", errUsage, usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, args[0])
	}
	return n, nil
}

func printUsage() {
	fmt.Fprint(os.Stderr, `migrate manages the ledger postgres schema.

usage: migrate [-path dir] [-log-level level] <command> [args]

  up                     apply every pending migration
  down                   roll back every migration
  step <n>               apply n migrations; negative n rolls back
  goto <version>         migrate to version
  status                 show applied and latest versions
  force <version>        mark version as applied (repairs a dirty schema)
  drop -confirm          drop every table
  create <name> [desc]   scaffold an up/down pair in -path (default ./migrations)
  list                   list migrations in the source
  validate               check every migration has a rollback and a unique version

The database is read from LEDGER_DATABASE_* (host, port, user, password,
dbname, sslmode) or config.yaml.
`)
}

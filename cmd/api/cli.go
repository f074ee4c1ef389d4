package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/corvusHold/certmail/internal/config"
	"github.com/corvusHold/certmail/internal/version"
)

const (
	exitOK      = 0
	exitUsage   = 2
	exitConfig  = 3
	exitMigrate = 4
)

// migration is one parsed "api migrate ..." invocation.
type migration struct {
	op     string // up | down | status | redo | version | up-to
	target int64  // only for up-to
}

var migrateRunner func(m migration, databaseURL, dir string) error = gooseRunner

var (
	osExit           = os.Exit
	cliOut io.Writer = os.Stdout
)

func handleCLICommand(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "migrate":
		osExit(runMigrate(args[1:]))
		return true
	case "version", "--version":
		fmt.Fprintln(cliOut, version.String())
		osExit(exitOK)
		return true
	case "help", "-h", "--help":
		printHelp(cliOut)
		osExit(exitOK)
		return true
	default:
		return false
	}
}

func parseMigration(args []string) (migration, error) {
	if len(args) == 0 {
		return migration{}, fmt.Errorf("missing migrate subcommand (up|down|status|redo|version|up-to N)")
	}
	m := migration{op: args[0]}
	switch m.op {
	case "up", "down", "status", "redo", "version":
		if len(args) > 1 {
			return migration{}, fmt.Errorf("migrate %s takes no arguments", m.op)
		}
	case "up-to":
		if len(args) != 2 {
			return migration{}, fmt.Errorf("migrate up-to needs a target version")
		}
		v, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || v < 0 {
			return migration{}, fmt.Errorf("invalid target version %q", args[1])
		}
		m.target = v
	default:
		return migration{}, fmt.Errorf("unknown migrate subcommand: %s", m.op)
	}
	return m, nil
}

func runMigrate(args []string) int {
	m, err := parseMigration(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfig
	}

	if err := migrateRunner(m, cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", m.op, err)
		return exitMigrate
	}
	return exitOK
}

func gooseRunner(m migration, databaseURL, dir string) error {
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is empty")
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	switch m.op {
	case "up":
		return goose.Up(db, dir)
	case "up-to":
		return goose.UpTo(db, dir, m.target)
	case "down":
		return goose.Down(db, dir)
	case "redo":
		return goose.Redo(db, dir)
	case "status":
		return goose.Status(db, dir)
	case "version":
		return goose.Version(db, dir)
	default:
		return fmt.Errorf("unsupported migrate subcommand %q", m.op)
	}
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `certmail API

Usage:
  api                     Start the API server
  api version             Print the build version
  api migrate up          Apply all pending migrations
  api migrate up-to N     Apply migrations up to version N
  api migrate down        Roll back one migration
  api migrate redo        Roll back and re-apply the latest migration
  api migrate status      Show migration status
  api migrate version     Show the current schema version
`)
}

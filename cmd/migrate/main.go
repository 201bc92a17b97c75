// Package main applies the player_stats schema migrations to PostgreSQL.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	flag "github.com/spf13/pflag"

	"github.com/cory-johannsen/drawguess/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

// options are the parsed command-line settings.
type options struct {
	configPath string
	source     string
	direction  string
	steps      int
}

func parseOptions(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to YAML configuration file")
	fs.StringVar(&opts.source, "source", "file://migrations", "migration source URL")
	fs.StringVar(&opts.direction, "direction", "up", "migration direction: up or down")
	fs.IntVar(&opts.steps, "steps", 0, "number of steps (0 = all)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.direction != "up" && opts.direction != "down" {
		return options{}, fmt.Errorf("invalid direction %q: must be 'up' or 'down'", opts.direction)
	}
	if opts.steps < 0 {
		return options{}, fmt.Errorf("steps must not be negative, got %d", opts.steps)
	}
	return opts, nil
}

func run(args []string) error {
	start := time.Now()

	opts, err := parseOptions(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	m, err := migrate.New(opts.source, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	switch {
	case opts.direction == "up" && opts.steps > 0:
		err = m.Steps(opts.steps)
	case opts.direction == "up":
		err = m.Up()
	case opts.steps > 0:
		err = m.Steps(-opts.steps)
	default:
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, _ := m.Version()
	elapsed := time.Since(start)
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintf(os.Stdout, "no changes (version=%d dirty=%v) [%s]\n", version, dirty, elapsed)
	} else {
		fmt.Fprintf(os.Stdout, "migrated %s to version=%d dirty=%v [%s]\n", opts.direction, version, dirty, elapsed)
	}
	return nil
}

// Package main runs the two-player draw-and-guess TCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cory-johannsen/drawguess/internal/config"
	"github.com/cory-johannsen/drawguess/internal/frontend/tcp"
	"github.com/cory-johannsen/drawguess/internal/game/session"
	"github.com/cory-johannsen/drawguess/internal/game/words"
	"github.com/cory-johannsen/drawguess/internal/observability"
	"github.com/cory-johannsen/drawguess/internal/server"
	"github.com/cory-johannsen/drawguess/internal/stats"
	"github.com/cory-johannsen/drawguess/internal/stats/jsonfile"
	"github.com/cory-johannsen/drawguess/internal/storage/postgres"
	"github.com/cory-johannsen/drawguess/internal/storage/redis"
)

// version is overridable at link time:
//
//	go build -ldflags "-X main.version=1.1.0"
var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "drawserver: %v\n", err)
		os.Exit(1)
	}
}

// parseConfig resolves flags, the optional config file and DRAWGUESS_
// environment variables into a validated Config. Flags win over both.
func parseConfig(args []string) (cfg config.Config, showVersion bool, err error) {
	fs := flag.NewFlagSet("drawserver", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML configuration file")
	fs.Int("port", 8888, "TCP port to listen on")
	fs.String("stats-backend", config.StatsBackendFile, "stats backend: file, postgres or redis")
	fs.String("stats-path", "game_stats.json", "JSON stats file for the file backend")
	fs.String("words", "", "YAML word list file (default: built-in list)")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, false, err
	}
	if showVersion {
		return config.Config{}, true, nil
	}

	v := config.NewViper()
	if *configPath != "" {
		v.SetConfigFile(*configPath)
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, false, fmt.Errorf("reading config file: %w", err)
		}
	}
	if err := bindFlags(v, fs); err != nil {
		return config.Config{}, false, err
	}

	cfg, err = config.LoadFromViper(v)
	if err != nil {
		return config.Config{}, false, fmt.Errorf("loading config: %w", err)
	}
	return cfg, false, nil
}

// bindFlags lets explicitly set flags override file and environment values.
func bindFlags(v *viper.Viper, fs *flag.FlagSet) error {
	bindings := map[string]string{
		"port":          "listener.port",
		"stats-backend": "stats.backend",
		"stats-path":    "stats.path",
		"words":         "game.words_file",
	}
	for name, key := range bindings {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

func run(ctx context.Context, args []string) error {
	start := time.Now()

	cfg, showVersion, err := parseConfig(args)
	if err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("drawserver %s\n", version)
		return nil
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting drawguess server",
		zap.String("version", version),
		zap.String("listen_addr", cfg.Listener.Addr()),
		zap.String("stats_backend", cfg.Stats.Backend),
	)

	list, err := loadWords(cfg.Game)
	if err != nil {
		return err
	}
	logger.Info("word list loaded", zap.Int("words", list.Len()))

	lifecycle := server.NewLifecycle(logger)

	backend, err := openStatsBackend(ctx, cfg, logger, lifecycle)
	if err != nil {
		return err
	}
	store := stats.NewStore(backend, logger)
	logger.Info("stats store ready", zap.Int("records", len(store.Load(ctx))))

	sess := session.New(
		session.OptionsFromConfig(cfg.Game),
		words.NewPicker(list, words.NewCryptoSource()),
		store,
		logger,
	)
	acceptor := tcp.NewAcceptor(cfg.Listener, session.NewHandler(sess, logger), logger)

	lifecycle.Add("tcp", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	logger.Info("server initialized", zap.Duration("startup", time.Since(start)))
	return lifecycle.Run(ctx)
}

func loadWords(cfg config.GameConfig) (*words.List, error) {
	if cfg.WordsFile == "" {
		return words.Default(), nil
	}
	list, err := words.LoadFile(cfg.WordsFile)
	if err != nil {
		return nil, fmt.Errorf("loading word list: %w", err)
	}
	return list, nil
}

// openStatsBackend connects the configured backend. Connection-holding
// backends register a service so they are released on shutdown.
func openStatsBackend(ctx context.Context, cfg config.Config, logger *zap.Logger, lc *server.Lifecycle) (stats.Backend, error) {
	switch cfg.Stats.Backend {
	case config.StatsBackendPostgres:
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		lc.Add("postgres", healthService(logger, "database", func() error {
			return pool.Health(ctx, 5*time.Second)
		}, pool.Close))
		return pool.Stats(), nil

	case config.StatsBackendRedis:
		store, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		logger.Info("redis connected", zap.String("key", cfg.Redis.Key))
		lc.Add("redis", healthService(logger, "redis", func() error {
			_, err := store.Load(ctx)
			return err
		}, func() { _ = store.Close() }))
		return store, nil

	default:
		logger.Info("using stats file", zap.String("path", cfg.Stats.Path))
		return jsonfile.New(cfg.Stats.Path), nil
	}
}

// healthService probes check every 30s until stopped, then runs closeFn.
func healthService(logger *zap.Logger, name string, check func() error, closeFn func()) server.Service {
	quit := make(chan struct{})
	return &server.FuncService{
		StartFn: func() error {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-quit:
					return nil
				case <-ticker.C:
					if err := check(); err != nil {
						logger.Warn(name+" health check failed", zap.Error(err))
					}
				}
			}
		},
		StopFn: func() {
			close(quit)
			closeFn()
		},
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/avelkov/chlens/internal/api"
	"github.com/avelkov/chlens/internal/auth"
	"github.com/avelkov/chlens/internal/cache"
	"github.com/avelkov/chlens/internal/collector"
	"github.com/avelkov/chlens/internal/config"
	"github.com/avelkov/chlens/internal/scheduler"
	"github.com/avelkov/chlens/internal/store"
	"golang.org/x/sync/errgroup"
)

// @title chlens API
// @version 1.0
// @description ClickHouse introspection and monitoring dashboard API
// @host localhost:3900
// @BasePath /

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// buildInfo returns version, commit, build time, and VCS details from the
// embedded Go build info. ldflags-injected values take priority; VCS info
// from debug.ReadBuildInfo fills in anything left as default.
func buildInfo() (ver, sha, built, dirty string) {
	ver = version
	sha = commit
	built = buildTime
	dirty = "clean"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if sha == "none" {
				sha = s.Value
			}
		case "vcs.time":
			if built == "unknown" {
				built = s.Value
			}
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "dirty"
			}
		}
	}

	return
}

func main() {
	configPath := flag.String("config", "", "path to chlens.yml config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	ver, sha, built, dirty := buildInfo()

	if *showVersion {
		fmt.Printf("chlens %s\n  commit:    %s (%s)\n  built:     %s\n  go:        %s\n  platform:  %s/%s\n",
			ver, sha, dirty, built, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, config.ErrConfigFileNotFound) {
			fmt.Fprintf(os.Stderr, "error: %s\n\n", err)
			fmt.Fprintf(os.Stderr, "Copy the example config to get started:\n")
			fmt.Fprintf(os.Stderr, "  cp chlens.example.yml %s\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "error: loading config (%s): %s\n", *configPath, err)
		}
		os.Exit(1)
	}

	// Configure logging
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("starting chlens",
		"version", ver,
		"commit", sha,
		"built", built,
		"dirty", dirty,
		"go", runtime.Version(),
		"listen", cfg.Listen,
	)

	// The store is a required dependency: failure to open it is fatal.
	st, err := store.New(cfg.DBPath)
	if err != nil {
		slog.Error("opening snapshot store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	registry := config.NewConnectionManager(cfg.RegistryPath)
	users := auth.NewManager(cfg.Users)
	statusCache := cache.New()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	coll := collector.New(registry, collector.NewCHFetcher(), st)
	sched := scheduler.New(coll, st, scheduler.Options{
		Interval:      cfg.Monitoring.CollectInterval.Duration,
		RetentionDays: cfg.Monitoring.RetentionDays,
		Status:        statusCache,
	})
	sched.Start(ctx)
	defer sched.Stop()

	g, ctx := errgroup.WithContext(ctx)

	server := api.NewServer(cfg.Listen, statusCache, st, registry, users, api.NewLiveIntrospector())
	g.Go(func() error { return server.Run(ctx) })

	slog.Info("all components started",
		"connections", len(registry.List()),
		"users", len(cfg.Users),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal error", "error", err)
	}

	slog.Info("chlens stopped gracefully")
}

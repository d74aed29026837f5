package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/fpl-proxy/internal/server"
	"github.com/Sternrassler/fpl-proxy/pkg/cache"
	"github.com/Sternrassler/fpl-proxy/pkg/config"
	"github.com/Sternrassler/fpl-proxy/pkg/fallback"
	"github.com/Sternrassler/fpl-proxy/pkg/logging"
	"github.com/Sternrassler/fpl-proxy/pkg/pipeline"
	"github.com/Sternrassler/fpl-proxy/pkg/resource"
	"github.com/Sternrassler/fpl-proxy/pkg/snapshot"
	"github.com/Sternrassler/fpl-proxy/pkg/upstream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	shutdownTimeout = 10 * time.Second
	warmTimeout     = 2 * time.Minute
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", getEnv("FPL_PROXY_CONFIG", ""), "path to fpl-proxy.yaml")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Proxy stopped")
	}
}

// app holds everything the proxy serves with.
type app struct {
	pipeline *pipeline.Pipeline
	handler  http.Handler
	close    func() error
}

// newApp wires sources, chains, cache and router from the configuration.
func newApp(cfg config.Config) (*app, error) {
	snapStore, ready, closeSnap, err := openSnapshots(cfg.Snapshot)
	if err != nil {
		return nil, err
	}

	sources, err := buildSources(cfg, snapStore)
	if err != nil {
		closeSnap()
		return nil, err
	}

	routes, err := cfg.Routes(sources)
	if err != nil {
		closeSnap()
		return nil, err
	}

	store := cache.NewStore(cache.Config{MaxEntries: cfg.Cache.MaxEntries}, logging.NewLogger("cache"))
	fetcher := upstream.NewFetcher(cfg.Upstream.Timeout.Std(), logging.NewLogger("upstream"))
	orch := fallback.NewOrchestrator(fetcher, logging.NewLogger("fallback"))

	p, err := pipeline.New(store, orch, routes, logging.NewLogger("pipeline"))
	if err != nil {
		closeSnap()
		return nil, err
	}

	srv := server.New(p, server.Options{
		RequestTimeout: requestTimeout(cfg),
		Ready:          ready,
	}, logging.NewLogger("server"))

	return &app{
		pipeline: p,
		handler:  srv.Handler(),
		close:    closeSnap,
	}, nil
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	a, err := newApp(cfg)
	if err != nil {
		return fmt.Errorf("init proxy: %w", err)
	}
	defer a.close()

	for _, family := range resource.Families() {
		if policy, ok := a.pipeline.Policy(family); ok && policy.Cacheable() {
			logger.Debug().
				Str("family", string(family)).
				Dur("ttl", policy.TTL).
				Msg("Family cached")
		}
	}

	if cfg.Cache.Warm {
		go func() {
			warmCtx, cancel := context.WithTimeout(ctx, warmTimeout)
			defer cancel()
			if err := a.pipeline.Warm(warmCtx); err != nil {
				logger.Warn().Err(err).Msg("Cache warm-up incomplete")
			}
		}()
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", addr).
			Str("primary", cfg.Upstream.PrimaryURL).
			Str("secondary", cfg.Upstream.SecondaryURL).
			Str("snapshot_backend", cfg.Snapshot.Backend).
			Dur("upstream_timeout", cfg.Upstream.Timeout.Std()).
			Int("cache_max_entries", cfg.Cache.MaxEntries).
			Msg("Starting FPL proxy")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openSnapshots opens the configured snapshot backend. The returned pinger
// backs the readiness check.
func openSnapshots(cfg config.SnapshotConfig) (snapshot.Store, server.Pinger, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendDir:
		store := snapshot.NewDirStore(cfg.Dir)
		return snapshot.NewLayered(store, snapshot.Builtin()), store, noop, nil

	case config.BackendRedis:
		opts, err := redisOptions(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		client := redis.NewClient(opts)
		store := snapshot.NewRedisStore(client)

		// snapshots are a last resort; an unreachable Redis degrades readiness only
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("redis", opts.Addr).Msg("Snapshot Redis not reachable")
		}
		return snapshot.NewLayered(store, snapshot.Builtin()), store, client.Close, nil

	case config.BackendNone:
		return nil, nil, noop, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
}

// redisOptions accepts a redis:// URL or a plain host:port.
func redisOptions(raw string) (*redis.Options, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: raw}, nil
}

// buildSources creates every source the configuration enables, keyed by name.
func buildSources(cfg config.Config, snapStore snapshot.Store) (map[string]upstream.Source, error) {
	sources := make(map[string]upstream.Source)

	primary, err := upstream.NewHTTPSource(upstream.HTTPConfig{
		Name:      upstream.SourcePrimary,
		BaseURL:   cfg.Upstream.PrimaryURL,
		Path:      resource.PrimaryPath,
		UserAgent: cfg.Upstream.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	sources[upstream.SourcePrimary] = primary

	if cfg.Upstream.SecondaryURL != "" {
		secondary, err := upstream.NewHTTPSource(upstream.HTTPConfig{
			Name:      upstream.SourceSecondary,
			BaseURL:   cfg.Upstream.SecondaryURL,
			Path:      resource.SeasonArchivePath(cfg.Upstream.Season),
			UserAgent: cfg.Upstream.UserAgent,
		})
		if err != nil {
			return nil, err
		}
		sources[upstream.SourceSecondary] = secondary
	}

	if snapStore != nil {
		sources[upstream.SourceSnapshot] = upstream.NewSnapshotSource(snapStore)
	}

	return sources, nil
}

// requestTimeout leaves room for every attempt of the longest chain.
func requestTimeout(cfg config.Config) time.Duration {
	longest := 1
	for _, family := range resource.Families() {
		if _, chain := cfg.Family(family); len(chain) > longest {
			longest = len(chain)
		}
	}
	return time.Duration(longest)*cfg.Upstream.Timeout.Std() + 5*time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Package server wires the API service together: store, seed, snapshot
// cache, protocol service and HTTP router.
package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"cafe-system/internal/api"
	"cafe-system/internal/cache"
	"cafe-system/internal/common/config"
	"cafe-system/internal/common/db"
	"cafe-system/internal/common/httpx"
	"cafe-system/internal/common/logger"
	"cafe-system/internal/common/mq"
	"cafe-system/internal/metrics"
	"cafe-system/internal/pos"
	"cafe-system/internal/seed"
	"cafe-system/internal/store"
)

type Options struct {
	Port       int
	ConfigPath string
	// Memory runs against the in-process store, no Postgres or RabbitMQ.
	Memory bool
}

func Run(ctx context.Context, opts Options) error {
	lg := logger.New("cafe-api")
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	met := metrics.New(reg)

	var (
		st        store.Store
		subscribe func() (<-chan store.Event, error)
	)
	if opts.Memory {
		mem := store.NewMemory()
		st = mem
		subscribe = func() (<-chan store.Event, error) { return mem.Subscribe(), nil }
		lg.Info().Msg("running with in-memory store")
	} else {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			if errors.Is(err, config.ErrMissing) {
				lg.Error().Err(err).Str("cause", "config-missing").Msg("cannot load config")
			}
			return err
		}
		if opts.Port == 0 {
			opts.Port = cfg.HTTPPort
		}
		if err := db.Migrate(cfg.Database, cfg.Migrations); err != nil {
			return err
		}
		pool, err := db.Connect(ctx, cfg.Database)
		if err != nil {
			lg.Error().Err(err).Str("cause", db.Cause(err)).Msg("cannot reach database")
			return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		mqc, err := mq.Dial(cfg.Rabbit.URL())
		if err != nil {
			pool.Close()
			return fmt.Errorf("dial rabbitmq: %w", err)
		}
		if err := mqc.DeclareEvents(); err != nil {
			mqc.Close()
			pool.Close()
			return fmt.Errorf("declare exchange: %w", err)
		}
		defer mqc.Close()
		st = store.NewPostgres(pool, lg,
			store.WithNotifier(mqc),
			store.WithRetryCounter(met.TxRetries))
		subscribe = func() (<-chan store.Event, error) { return mqc.ConsumeEvents(ctx, lg) }
	}
	defer st.Close()

	// Seed before subscriptions attach and the API starts serving.
	if err := seed.Apply(ctx, st, lg); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	events, err := subscribe()
	if err != nil {
		return fmt.Errorf("subscribe to change events: %w", err)
	}

	snap := cache.New(st, lg)
	if err := snap.Load(ctx); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	go snap.Run(ctx, events)

	svc := pos.New(st, lg, pos.WithMetrics(met))
	h := api.NewHandler(svc, snap, st, lg)

	if opts.Port == 0 {
		opts.Port = 3000
	}
	srv := httpx.New(":"+strconv.Itoa(opts.Port), api.NewRouter(h, lg, reg))
	lg.Info().Int("port", opts.Port).Msg("api listening")
	return srv.Run(ctx)
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/wagerbook/config"
	"github.com/alejandrodnm/wagerbook/internal/adapters/clock"
	"github.com/alejandrodnm/wagerbook/internal/adapters/notify"
	"github.com/alejandrodnm/wagerbook/internal/adapters/pool"
	"github.com/alejandrodnm/wagerbook/internal/adapters/storage"
	"github.com/alejandrodnm/wagerbook/internal/application/arbiter"
	"github.com/alejandrodnm/wagerbook/internal/application/escrow"
	"github.com/alejandrodnm/wagerbook/internal/application/judges"
	"github.com/alejandrodnm/wagerbook/internal/ports"
)

// app agrupa los servicios cableados a partir de la configuración.
type app struct {
	store    ports.Store
	clock    ports.Clock
	console  *notify.Console
	escrow   *escrow.Service
	registry *judges.Registry
	arbiter  *arbiter.Arbiter
}

func build(cfg *config.Config) (*app, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
	}

	judgeCfg, err := cfg.JudgeConfig()
	if err != nil {
		store.Close()
		return nil, err
	}
	selector, ok := arbiter.SelectorByName(cfg.Arbiter.Selector)
	if !ok {
		store.Close()
		return nil, fmt.Errorf("unknown judge selector %q", cfg.Arbiter.Selector)
	}
	matcher, err := poolMatcher(cfg.Pools)
	if err != nil {
		store.Close()
		return nil, err
	}

	clk := clock.System{}
	console := notify.NewConsole()

	registry, err := judges.New(store, clk, judgeCfg, console)
	if err != nil {
		store.Close()
		return nil, err
	}
	arb := arbiter.New(store, clk, registry, selector, console, arbiter.Config{
		Seed:   cfg.Arbiter.SelectionSeed,
		Admins: cfg.AdminParties(),
	})
	esc := escrow.New(store, clk, matcher, arb, console, escrow.Config{
		DisputeWindow: cfg.Escrow.DisputeWindow,
		MaxRiskScore:  cfg.Escrow.MaxRiskScore,
	})

	return &app{
		store:    store,
		clock:    clk,
		console:  console,
		escrow:   esc,
		registry: registry,
		arbiter:  arb,
	}, nil
}

func poolMatcher(cfg config.PoolsConfig) (ports.PoolMatcher, error) {
	if cfg.APIBase != "" {
		slog.Info("house bets matched by pool service", "api", cfg.APIBase)
		return pool.NewClient(cfg.APIBase, cfg.RatePerSec), nil
	}
	c := config.Config{Pools: cfg}
	pools, err := c.StaticPools()
	if err != nil {
		return nil, err
	}
	if len(pools) == 0 {
		slog.Info("no pools configured, house bets disabled")
		return nil, nil
	}
	slog.Info("house bets matched against static pools", "pools", len(pools))
	return pool.NewStatic(pools), nil
}

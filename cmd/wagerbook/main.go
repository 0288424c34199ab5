package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/wagerbook/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	serve := flag.Bool("serve", false, "run the HTTP API")
	sweep := flag.Bool("sweep", false, "list bets whose dispute window elapsed and exit")
	report := flag.Bool("report", false, "print bets and judges tables and exit")
	party := flag.String("party", "", "with -report: only bets of this party")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("wagerbook starting",
		"config", *configPath,
		"dsn", cfg.Storage.DSN,
		"serve", *serve,
		"sweep", *sweep,
		"report", *report,
	)

	a, err := build(cfg)
	if err != nil {
		slog.Error("failed to build app", "err", err)
		os.Exit(1)
	}
	defer a.store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *sweep:
		err = runSweep(ctx, a)
	case *report:
		err = runReport(ctx, a, *party)
	case *serve:
		err = runServe(ctx, a, cfg.HTTP)
	default:
		flag.Usage()
		return
	}
	if err != nil {
		slog.Error("wagerbook exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("wagerbook stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

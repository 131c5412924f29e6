package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vuong2023/Rules/internal/config"
	"github.com/vuong2023/Rules/internal/generator"
)

func main() {
	configPath := flag.String("config", "config.yaml", "generator configuration file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall run timeout")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q\n", *logLevel)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "path", *configPath, "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	start := time.Now()
	if err := generator.New(cfg, nil, nil).Run(ctx); err != nil {
		slog.Error("generation failed", "err", err)
		os.Exit(1)
	}
	slog.Info("all rulesets generated", "dist", cfg.Paths.Dist, "elapsed", time.Since(start))
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cafe-system/internal/app/monitor"
	"cafe-system/internal/app/server"
	"cafe-system/internal/common/logger"
)

func main() {
	mode := flag.String("mode", "", "api | monitor")
	port := flag.Int("port", 0, "api: http port (default from config)")
	configPath := flag.String("config", "", "path to config.yaml")
	memory := flag.Bool("memory", false, "api: run against the in-memory store")
	flag.Parse()

	lg := logger.New("bootstrap")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "api":
		lg.Info().Int("port", *port).Bool("memory", *memory).Msg("service_started")
		if err := server.Run(ctx, server.Options{
			Port:       *port,
			ConfigPath: *configPath,
			Memory:     *memory,
		}); err != nil {
			lg.Error().Err(err).Msg("fatal")
			os.Exit(1)
		}
	case "monitor":
		lg.Info().Msg("service_started")
		if err := monitor.Run(ctx, *configPath); err != nil {
			lg.Error().Err(err).Msg("fatal")
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: api | monitor")
		os.Exit(2)
	}
}

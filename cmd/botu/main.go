package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/app"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/config"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/logger"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	flag.Parse()

	// .env is optional sugar for local runs; a real environment wins.
	_ = godotenv.Load()

	iniPath := filepath.Join(*configDir, "botu.ini")

	cfg := config.Default()
	if err := config.LoadIni(cfg, iniPath); err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Info().Msg("Signal received, shutting down...")
		cancel()
	}()

	a := app.New(cfg)
	if err := a.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Service failed")
	}
}

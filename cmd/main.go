package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/vyra/internal/shared"
)

func main() {
	_ = shared.LoadEnv()

	configPath := shared.GetEnv("VYRA_CONFIG", "config.toml")

	config := shared.DefaultConfig()
	var configErr error
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			configErr = err
		}
	}
	shared.ApplyEnv(config)

	logger := shared.NewLogger(shared.LogWriter(config.Log))
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))
	if configErr != nil {
		logger.Warn("ignoring config file", "path", configPath, "error", configErr)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "vyra",
		Usage:    "Resolve, proxy and download YouTube Music audio",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

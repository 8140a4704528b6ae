package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/dcae/internal/logger"
	"github.com/samcharles93/dcae/internal/model"
)

var (
	modelConfigPath string
	seed            int64
	useSlicing      bool
	logLevel        string
	logFormat       string
	debug           bool
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model-config",
			Aliases:     []string{"m"},
			Usage:       "path to a model architecture JSON (default: built-in f32c32)",
			Destination: &modelConfigPath,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "weight initialization seed",
			Value:       0,
			Destination: &seed,
		},
		&cli.BoolFlag{
			Name:        "slicing",
			Usage:       "process batch members one at a time to bound memory",
			Destination: &useSlicing,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func buildLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	default:
		return logger.Pretty(os.Stderr, level)
	}
}

// loadModel builds the autoencoder from the configured architecture and
// applies the shared runtime flags.
func loadModel() (*model.AutoencoderDC, error) {
	cfg := model.DefaultConfig()
	if modelConfigPath != "" {
		data, err := os.ReadFile(modelConfigPath)
		if err != nil {
			return nil, fmt.Errorf("read model config: %w", err)
		}
		if cfg, err = model.ParseConfig(data); err != nil {
			return nil, err
		}
	}
	m, err := model.New(cfg)
	if err != nil {
		return nil, err
	}
	m.InitRand(seed)
	if useSlicing {
		m.EnableSlicing()
	}
	return m, nil
}

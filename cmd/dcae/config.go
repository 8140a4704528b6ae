package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the dcae configuration file (~/.config/dcae/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	ModelConfig string `yaml:"model_config"`
	Seed        *int64 `yaml:"seed"`
	Slicing     *bool  `yaml:"slicing"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dcae", "config.yaml")
}

// applyCommonConfig applies config file defaults to shared command variables
// when the corresponding CLI flag was not explicitly set.
func applyCommonConfig(c *cli.Command, cfg Config) {
	if cfg.ModelConfig != "" && !c.IsSet("model-config") {
		modelConfigPath = cfg.ModelConfig
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		seed = *cfg.Seed
	}
	if cfg.Slicing != nil && !c.IsSet("slicing") {
		useSlicing = *cfg.Slicing
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyCommonConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/natefinch/atomic"
)

// envPrefix is prepended to every environment variable name in Config.
const envPrefix = "MARKOVC_"

// Config holds every setting of markovc. Values come from the JSON config
// file, then MARKOVC_* environment variables, then command-line flags.
type Config struct {
	LogLevel      string   `json:"log_level" env:"LOG_LEVEL"`
	OutputDir     string   `json:"output_dir" env:"OUTPUT_DIR"`
	MinOrder      int      `json:"min_order" env:"MIN_ORDER"`
	MaxOrder      int      `json:"max_order" env:"MAX_ORDER"`
	CountWidth    int      `json:"count_width" env:"COUNT_WIDTH"`
	ParodyWords   int      `json:"parody_words" env:"PARODY_WORDS"`
	Abbreviations []string `json:"abbreviations" env:"ABBREVIATIONS" envSeparator:","`
	Seed          uint64   `json:"seed" env:"SEED"` // 0 picks a random seed
	SQLite        bool     `json:"sqlite" env:"SQLITE"`
	ServeAddr     string   `json:"serve_addr" env:"SERVE_ADDR"`

	// Start is the space separated history a generate walk begins at. It is
	// only ever set from the command line.
	Start string `json:"-"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:      "info",
		OutputDir:     "./data",
		MinOrder:      1,
		MaxOrder:      4,
		CountWidth:    16,
		ParodyWords:   100,
		Abbreviations: []string{"Mr.", "Mrs.", "Ms."},
		Seed:          0,
		SQLite:        false,
		ServeAddr:     ":7280",
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable without a file on disk.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ParseConfig registers the markovc flags on fs, parses args and returns the
// merged configuration together with the remaining positional arguments.
func ParseConfig(fs *flag.FlagSet, args []string) (*Config, []string, error) {
	defaults := DefaultConfig()
	flagged := *defaults
	var abbreviations string

	configPath := fs.String("config", "markovc.json", "path to the JSON config file, created with defaults if missing")
	fs.StringVar(&flagged.LogLevel, "log-level", defaults.LogLevel, "log level (debug|info|warn|error)")
	fs.StringVar(&flagged.OutputDir, "output-dir", defaults.OutputDir, "directory for compiled graphs")
	fs.IntVar(&flagged.MinOrder, "min-order", defaults.MinOrder, "lowest order to compile")
	fs.IntVar(&flagged.MaxOrder, "max-order", defaults.MaxOrder, "highest order to compile")
	fs.IntVar(&flagged.CountWidth, "width", defaults.CountWidth, "bits per stored count (8 or 16)")
	fs.IntVar(&flagged.ParodyWords, "words", defaults.ParodyWords, "number of words to generate")
	fs.StringVar(&abbreviations, "abbreviations", strings.Join(defaults.Abbreviations, ","), "comma separated words whose trailing period is kept")
	fs.Uint64Var(&flagged.Seed, "seed", defaults.Seed, "random seed (0 = random)")
	fs.BoolVar(&flagged.SQLite, "sqlite", defaults.SQLite, "also write a SQLite copy of each compiled graph")
	fs.StringVar(&flagged.ServeAddr, "addr", defaults.ServeAddr, "listen address for serve")
	fs.StringVar(&flagged.Start, "start", "", "space separated words to start generating from")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return nil, nil, err
	}
	if err = env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, nil, fmt.Errorf("parse env: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.LogLevel = flagged.LogLevel
		case "output-dir":
			cfg.OutputDir = flagged.OutputDir
		case "min-order":
			cfg.MinOrder = flagged.MinOrder
		case "max-order":
			cfg.MaxOrder = flagged.MaxOrder
		case "width":
			cfg.CountWidth = flagged.CountWidth
		case "words":
			cfg.ParodyWords = flagged.ParodyWords
		case "abbreviations":
			cfg.Abbreviations = splitList(abbreviations)
		case "seed":
			cfg.Seed = flagged.Seed
		case "sqlite":
			cfg.SQLite = flagged.SQLite
		case "addr":
			cfg.ServeAddr = flagged.ServeAddr
		}
	})
	cfg.Start = flagged.Start

	if err = cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

// Validate checks the settings that have a restricted range.
func (c *Config) Validate() error {
	switch {
	case c.MinOrder < 1:
		return fmt.Errorf("min_order must be at least 1, got %d", c.MinOrder)
	case c.MaxOrder < c.MinOrder:
		return fmt.Errorf("max_order %d is below min_order %d", c.MaxOrder, c.MinOrder)
	case c.CountWidth != 8 && c.CountWidth != 16:
		return fmt.Errorf("count_width must be 8 or 16, got %d", c.CountWidth)
	case c.ParodyWords < 0:
		return fmt.Errorf("parody_words must not be negative, got %d", c.ParodyWords)
	}
	return nil
}

// Orders lists every order from MinOrder to MaxOrder.
func (c *Config) Orders() []int {
	orders := make([]int, 0, c.MaxOrder-c.MinOrder+1)
	for order := c.MinOrder; order <= c.MaxOrder; order++ {
		orders = append(orders, order)
	}
	return orders
}

func splitList(s string) []string {
	var items []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseLogLevel maps a config string to a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

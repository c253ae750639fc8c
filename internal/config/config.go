// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config builds the engine's runtime configuration from flags,
// environment variables, and defaults, following the BuildFlagSet/
// BuildViper/BuildConfig split used by cmd/simulator/main/main.go.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag and environment-variable keys.
const (
	StrategyKey    = "strategy"
	BatchSizeKey   = "batch-size"
	WorkersKey     = "workers"
	MetricsAddrKey = "metrics-addr"
	InputKey       = "input"
	OutputKey      = "output"
)

// EnvPrefix is prepended (with an underscore) to every flag's upper-cased
// name when binding environment variables, e.g. PAYMENTS_BATCH_SIZE.
const EnvPrefix = "PAYMENTS"

// Strategy selects which Executor processes the input stream.
type Strategy string

const (
	StrategySync  Strategy = "sync"
	StrategyAsync Strategy = "async"
)

// Config is the fully resolved set of runtime parameters for a single
// engine run.
type Config struct {
	Strategy    Strategy
	BatchSize   int
	Workers     int
	MetricsAddr string
	Input       string
	Output      string
}

// BuildFlagSet declares every flag this binary accepts. It does not parse
// os.Args; callers pass that to BuildViper.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("payments-engine", pflag.ContinueOnError)
	fs.String(StrategyKey, string(StrategyAsync), "execution strategy: sync or async")
	fs.Int(BatchSizeKey, 1000, "async strategy batch size")
	fs.Int(WorkersKey, 0, "async strategy worker ceiling (0 = unlimited)")
	fs.String(MetricsAddrKey, "", "address to serve Prometheus metrics on (empty disables)")
	fs.String(InputKey, "", "path to the input transactions CSV ('-' for stdin)")
	fs.String(OutputKey, "-", "path to write the output accounts CSV ('-' for stdout)")
	return fs
}

// BuildViper parses args against fs and layers in PAYMENTS_-prefixed
// environment variables, returning a Viper ready for BuildConfig.
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	return v, nil
}

// BuildConfig validates and materializes a Config from a populated Viper.
func BuildConfig(v *viper.Viper) (Config, error) {
	strategy := Strategy(v.GetString(StrategyKey))
	switch strategy {
	case StrategySync, StrategyAsync:
	default:
		return Config{}, fmt.Errorf("invalid %s %q: must be %q or %q", StrategyKey, strategy, StrategySync, StrategyAsync)
	}

	batchSize, err := cast.ToIntE(v.Get(BatchSizeKey))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", BatchSizeKey, err)
	}
	if batchSize <= 0 {
		return Config{}, fmt.Errorf("%s must be positive, got %d", BatchSizeKey, batchSize)
	}

	workers, err := cast.ToIntE(v.Get(WorkersKey))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", WorkersKey, err)
	}

	input := v.GetString(InputKey)
	if input == "" {
		return Config{}, fmt.Errorf("%s is required", InputKey)
	}

	return Config{
		Strategy:    strategy,
		BatchSize:   batchSize,
		Workers:     workers,
		MetricsAddr: v.GetString(MetricsAddrKey),
		Input:       input,
		Output:      v.GetString(OutputKey),
	}, nil
}

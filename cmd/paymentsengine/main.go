// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// payments-engine processes a client transactions CSV (§6) and writes the
// resulting account snapshots to stdout, choosing between the Sync and
// Async execution strategies (§4.7/§5).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"

	"github.com/luxfi/payments-engine/internal/account"
	"github.com/luxfi/payments-engine/internal/config"
	"github.com/luxfi/payments-engine/internal/engine"
	"github.com/luxfi/payments-engine/internal/executor"
	"github.com/luxfi/payments-engine/internal/ioformat"
	"github.com/luxfi/payments-engine/internal/log"
	"github.com/luxfi/payments-engine/internal/metrics"
	"github.com/luxfi/payments-engine/internal/txstore"
)

const clientIdentifier = "payments-engine"

var app = &cli.App{
	Name:    clientIdentifier,
	Usage:   "stream a client transactions CSV into final account balances",
	Version: "1.0.0",
}

func init() {
	app.Action = run
	app.Flags = cliFlags()
	app.Commands = []*cli.Command{
		benchCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		log.SetDefault(log.New("cli"))
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: config.InputKey, Usage: "path to the input transactions CSV ('-' for stdin)"},
		&cli.StringFlag{Name: config.OutputKey, Value: "-", Usage: "path to write the output accounts CSV ('-' for stdout)"},
		&cli.StringFlag{Name: config.StrategyKey, Value: string(config.StrategyAsync), Usage: "execution strategy: sync or async"},
		&cli.IntFlag{Name: config.BatchSizeKey, Value: executor.DefaultBatchSize, Usage: "async strategy batch size"},
		&cli.IntFlag{Name: config.WorkersKey, Value: 0, Usage: "async strategy worker ceiling (0 = unlimited)"},
		&cli.StringFlag{Name: config.MetricsAddrKey, Usage: "address to serve Prometheus metrics on (empty disables)"},
	}
}

// argsFromCliContext rebuilds the internal/config flag arguments from the
// urfave/cli context so the two flag surfaces (cli.App for the user-facing
// CLI, pflag/viper for config.BuildConfig's validation) stay in lockstep
// rather than duplicating validation logic.
func argsFromCliContext(ctx *cli.Context) []string {
	var args []string
	for _, name := range []string{config.InputKey, config.OutputKey, config.StrategyKey, config.MetricsAddrKey} {
		if ctx.IsSet(name) {
			args = append(args, "--"+name, ctx.String(name))
		}
	}
	for _, name := range []string{config.BatchSizeKey, config.WorkersKey} {
		if ctx.IsSet(name) {
			args = append(args, "--"+name, fmt.Sprintf("%d", ctx.Int(name)))
		}
	}
	if ctx.Args().Len() > 0 && !ctx.IsSet(config.InputKey) {
		args = append(args, "--"+config.InputKey, ctx.Args().First())
	}
	return args
}

func run(ctx *cli.Context) error {
	fs := config.BuildFlagSet()
	v, err := config.BuildViper(fs, argsFromCliContext(ctx))
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("building config: %w", err)
	}
	cfg, err := config.BuildConfig(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	input, closeInput, err := openInput(cfg.Input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer closeInput()

	output, closeOutput, err := openOutput(cfg.Output)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}
	defer closeOutput()

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: collector.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped", "err", err)
			}
		}()
		defer srv.Close()
	}

	accounts := account.NewManager()
	e := engine.New(accounts, txstore.New(), collector)
	reader := ioformat.NewReader(input)

	result, err := runExecutor(context.Background(), cfg, e, accounts, reader)
	if err != nil {
		return fmt.Errorf("processing rows: %w", err)
	}

	locked := 0
	for _, s := range result.Snapshots {
		if s.Locked {
			locked++
		}
	}
	collector.SetAccountCounts(len(result.Snapshots), locked)

	if err := ioformat.WriteSnapshots(output, result.Snapshots); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func runExecutor(ctx context.Context, cfg config.Config, e *engine.Engine, accounts *account.Manager, reader *ioformat.Reader) (executor.Result, error) {
	switch cfg.Strategy {
	case config.StrategyAsync:
		return executor.NewAsync(e, accounts, cfg.BatchSize, cfg.Workers).Run(ctx, reader)
	default:
		return executor.NewSync(e, accounts).Run(ctx, reader)
	}
}

func openInput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

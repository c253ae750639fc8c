// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/luxfi/payments-engine/internal/executor"
	"github.com/luxfi/payments-engine/internal/ioformat"
	"github.com/luxfi/payments-engine/internal/types"
)

var benchCommand = &cli.Command{
	Name:      "bench",
	Usage:     "load a transactions CSV fully into memory and time both execution strategies against it",
	ArgsUsage: "<input.csv>",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "batch-size", Value: executor.DefaultBatchSize, Usage: "async batch size to benchmark"},
		&cli.IntFlag{Name: "workers", Value: 0, Usage: "async worker ceiling to benchmark"},
	},
	Action: runBench,
}

func runBench(ctx *cli.Context) error {
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("bench requires an input CSV path")
	}

	f, err := os.Open(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	rows, err := loadAllRows(f)
	if err != nil {
		return fmt.Errorf("loading rows: %w", err)
	}

	result, err := executor.BenchmarkExecutors(rows, ctx.Int("batch-size"), ctx.Int("workers"))
	if err != nil {
		return fmt.Errorf("benchmark run: %w", err)
	}

	fmt.Printf("rows=%d sync=%s async=%s\n", result.Rows, result.SyncDuration, result.AsyncDuration)
	return nil
}

func loadAllRows(f *os.File) ([]types.Row, error) {
	reader := ioformat.NewReader(f)
	var rows []types.Row
	for {
		row, ok, err := reader.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package executor implements the two row-stream strategies described in
// spec.md §4.7/§5: a Sync strategy that applies rows to the Engine
// inline, and an Async strategy that batches, partitions by client, and
// fans out one task per client partition before advancing to the next
// batch.
package executor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/payments-engine/internal/account"
	"github.com/luxfi/payments-engine/internal/engine"
	"github.com/luxfi/payments-engine/internal/log"
	"github.com/luxfi/payments-engine/internal/partition"
	"github.com/luxfi/payments-engine/internal/txstore"
	"github.com/luxfi/payments-engine/internal/types"
)

// DefaultBatchSize is the Async strategy's default batch size (§4.7).
const DefaultBatchSize = 1000

// RowSource is a pull iterator over decoded rows, satisfied by
// *ioformat.Reader. ok is false once the stream is exhausted; err is
// non-nil only for an underlying I/O failure.
type RowSource interface {
	Next() (types.Row, bool, error)
}

// Result is the output of a completed (or cancelled) run.
type Result struct {
	Snapshots []account.Snapshot
}

func logRejection(logger log.Logger, row types.Row, reason engine.Reason) {
	logger.Warn("row rejected",
		"kind", row.Kind.String(),
		"client", row.Client,
		"tx", row.Tx,
		"reason", string(reason),
	)
}

// SyncExecutor applies each row to the Engine as it's pulled from the
// source, with no suspension points other than the source read itself.
type SyncExecutor struct {
	Engine   *engine.Engine
	Accounts *account.Manager
	Logger   log.Logger
}

// NewSync returns a SyncExecutor over the given Engine/Accounts.
func NewSync(e *engine.Engine, accounts *account.Manager) *SyncExecutor {
	return &SyncExecutor{Engine: e, Accounts: accounts, Logger: log.New("executor.sync")}
}

// Run drains src, applying every row in source order, and returns the
// final snapshot. ctx is checked between rows; a cancelled context stops
// the run with the well-defined partial state of everything applied so
// far.
func (s *SyncExecutor) Run(ctx context.Context, src RowSource) (Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			break
		}
		row, ok, err := src.Next()
		if err != nil {
			return Result{}, err
		}
		if !ok {
			break
		}
		if out := s.Engine.Apply(row); !out.Applied {
			logRejection(s.Logger, row, out.Reason)
		}
	}
	return Result{Snapshots: s.Accounts.DrainSnapshots()}, nil
}

// AsyncExecutor pulls rows in fixed-size batches; each batch is
// partitioned by client and applied with one goroutine per client
// partition, joined before the next batch is pulled (the batch barrier,
// §5.3).
type AsyncExecutor struct {
	Engine    *engine.Engine
	Accounts  *account.Manager
	Logger    log.Logger
	BatchSize int
	Workers   int
}

// NewAsync returns an AsyncExecutor with the given batch size and worker
// ceiling. A non-positive batchSize defaults to DefaultBatchSize; a
// non-positive workers disables the errgroup concurrency limit (run
// every partition's goroutine immediately).
func NewAsync(e *engine.Engine, accounts *account.Manager, batchSize, workers int) *AsyncExecutor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &AsyncExecutor{
		Engine:    e,
		Accounts:  accounts,
		Logger:    log.New("executor.async"),
		BatchSize: batchSize,
		Workers:   workers,
	}
}

// Run drains src in batches, honoring ctx cancellation at each batch
// boundary, and returns the final snapshot.
func (a *AsyncExecutor) Run(ctx context.Context, src RowSource) (Result, error) {
	batchSize := a.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	for {
		if err := ctx.Err(); err != nil {
			break
		}

		batch, eof, err := pullBatch(src, batchSize)
		if err != nil {
			return Result{}, err
		}
		if len(batch) > 0 {
			if err := a.applyBatch(ctx, batch); err != nil {
				return Result{}, err
			}
		}
		if eof {
			break
		}
	}
	return Result{Snapshots: a.Accounts.DrainSnapshots()}, nil
}

func (a *AsyncExecutor) applyBatch(ctx context.Context, batch []types.Row) error {
	byClient := partition.ByClient(batch)

	g, _ := errgroup.WithContext(ctx)
	if a.Workers > 0 {
		g.SetLimit(a.Workers)
	}

	for _, rows := range byClient {
		rows := rows
		g.Go(func() error {
			for _, row := range rows {
				if out := a.Engine.Apply(row); !out.Applied {
					logRejection(a.Logger, row, out.Reason)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func pullBatch(src RowSource, n int) (batch []types.Row, eof bool, err error) {
	batch = make([]types.Row, 0, n)
	for len(batch) < n {
		row, ok, err := src.Next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return batch, true, nil
		}
		batch = append(batch, row)
	}
	return batch, false, nil
}

// BenchResult reports the wall-clock duration each strategy took to
// process the same in-memory row slice.
type BenchResult struct {
	Rows          int
	SyncDuration  time.Duration
	AsyncDuration time.Duration
}

// sliceSource adapts an in-memory []types.Row to RowSource, for
// benchmarking and tests.
type sliceSource struct {
	rows []types.Row
	pos  int
}

// NewSliceSource returns a RowSource over an in-memory row slice.
func NewSliceSource(rows []types.Row) RowSource {
	return &sliceSource{rows: rows}
}

func (s *sliceSource) Next() (types.Row, bool, error) {
	if s.pos >= len(s.rows) {
		return types.Row{}, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

// BenchmarkExecutors runs both strategies over the same row slice, each
// against a fresh pair of stores, and reports how long each took. This
// is the "benchmark harness" spec.md §1 mentions as plumbing, not a
// testing-framework integration.
func BenchmarkExecutors(rows []types.Row, batchSize, workers int) (BenchResult, error) {
	result := BenchResult{Rows: len(rows)}

	syncAccounts := account.NewManager()
	syncEngine := engine.New(syncAccounts, txstore.New(), nil)
	syncStart := time.Now()
	if _, err := NewSync(syncEngine, syncAccounts).Run(context.Background(), NewSliceSource(rows)); err != nil {
		return BenchResult{}, err
	}
	result.SyncDuration = time.Since(syncStart)

	asyncAccounts := account.NewManager()
	asyncEngine := engine.New(asyncAccounts, txstore.New(), nil)
	asyncStart := time.Now()
	if _, err := NewAsync(asyncEngine, asyncAccounts, batchSize, workers).Run(context.Background(), NewSliceSource(rows)); err != nil {
		return BenchResult{}, err
	}
	result.AsyncDuration = time.Since(asyncStart)

	return result, nil
}

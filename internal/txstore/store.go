// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package txstore indexes the deposits and withdrawals the engine has
// seen so later dispute-family rows can reference them by transaction
// id.
package txstore

import (
	"errors"
	"runtime"
	"sync"

	"github.com/luxfi/payments-engine/internal/types"
)

// ErrDuplicateTx is returned by Insert when tx is already present.
var ErrDuplicateTx = errors.New("txstore: duplicate tx")

// Store is a sharded concurrent map from transaction id to Record. Each
// shard guards its own sub-map with its own RWMutex so operations on
// distinct tx ids proceed in parallel while operations on the same tx id
// serialize.
type Store struct {
	shards []*storeShard
	mask   uint32
}

type storeShard struct {
	mu      sync.RWMutex
	records map[uint32]*types.Record
}

// New returns a Store sharded to the host's CPU count.
func New() *Store {
	return NewShards(runtime.NumCPU())
}

// NewShards returns a Store with a shard count that is the next power of
// two at or above n (minimum 1).
func NewShards(n int) *Store {
	if n < 1 {
		n = 1
	}
	shardCount := 1
	for shardCount < n {
		shardCount <<= 1
	}
	s := &Store{
		shards: make([]*storeShard, shardCount),
		mask:   uint32(shardCount - 1),
	}
	for i := range s.shards {
		s.shards[i] = &storeShard{records: make(map[uint32]*types.Record)}
	}
	return s
}

func (s *Store) shardFor(tx uint32) *storeShard {
	return s.shards[tx&s.mask]
}

// Insert stores rec, failing with ErrDuplicateTx if rec.Tx is already
// present (in any state).
func (s *Store) Insert(rec *types.Record) error {
	shard := s.shardFor(rec.Tx)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if _, exists := shard.records[rec.Tx]; exists {
		return ErrDuplicateTx
	}
	shard.records[rec.Tx] = rec
	return nil
}

// Get returns the record for tx, or nil if none exists. The returned
// pointer is owned by the Store; callers must hold no assumption of
// exclusivity beyond the engine's single-row-at-a-time access pattern
// for a given client (see internal/engine).
func (s *Store) Get(tx uint32) *types.Record {
	shard := s.shardFor(tx)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	return shard.records[tx]
}

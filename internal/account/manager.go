// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package account

import (
	"runtime"
	"sync"
)

// Manager owns every Account for the run, created lazily on first
// mention of a client. It is a sharded concurrent map: each shard guards
// its own sub-map with its own RWMutex, so operations against distinct
// clients proceed without contending a single global lock while
// operations against the same client still serialize.
type Manager struct {
	shards []*managerShard
	mask   uint32
}

type managerShard struct {
	mu       sync.RWMutex
	accounts map[uint16]*Account
}

// NewManager returns a Manager sharded to the host's CPU count.
func NewManager() *Manager {
	return NewManagerShards(runtime.NumCPU())
}

// NewManagerShards returns a Manager with a shard count that is the next
// power of two at or above n (minimum 1).
func NewManagerShards(n int) *Manager {
	if n < 1 {
		n = 1
	}
	shardCount := 1
	for shardCount < n {
		shardCount <<= 1
	}
	m := &Manager{
		shards: make([]*managerShard, shardCount),
		mask:   uint32(shardCount - 1),
	}
	for i := range m.shards {
		m.shards[i] = &managerShard{accounts: make(map[uint16]*Account)}
	}
	return m
}

func (m *Manager) shardFor(client uint16) *managerShard {
	return m.shards[uint32(client)&m.mask]
}

// GetOrCreate returns the Account for client, creating a zero-balance
// one on first use.
func (m *Manager) GetOrCreate(client uint16) *Account {
	s := m.shardFor(client)

	s.mu.RLock()
	acc, ok := s.accounts[client]
	s.mu.RUnlock()
	if ok {
		return acc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[client]; ok {
		return acc
	}
	acc = New(client)
	s.accounts[client] = acc
	return acc
}

// DrainSnapshots returns a Snapshot of every account created so far, in
// unspecified order.
func (m *Manager) DrainSnapshots() []Snapshot {
	var out []Snapshot
	for _, s := range m.shards {
		s.mu.RLock()
		for _, acc := range s.accounts {
			out = append(out, acc.Snapshot())
		}
		s.mu.RUnlock()
	}
	return out
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package partition groups a batch of rows by client id while preserving
// the relative order of rows belonging to the same client, so the Async
// executor can fan out one goroutine per client without reordering any
// single client's history.
package partition

import "github.com/luxfi/payments-engine/internal/types"

// ByClient groups rows by Client in a single forward pass. Go's append
// preserves insertion order within each client's slice, which is all the
// ordering guarantee spec.md's Partitioner requires — rows for different
// clients may come out in any relative order across the returned map.
func ByClient(rows []types.Row) map[uint16][]types.Row {
	out := make(map[uint16][]types.Row)
	for _, r := range rows {
		out[r.Client] = append(out[r.Client], r)
	}
	return out
}

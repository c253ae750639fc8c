// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/payments-engine/internal/money"
	"github.com/luxfi/payments-engine/internal/types"
)

func TestInsertAndGet(t *testing.T) {
	s := NewShards(4)
	amt, _ := money.Parse("5.0000")
	rec := &types.Record{Tx: 1, Client: 1, Kind: types.Deposit, Amount: amt, State: types.Normal}
	require.NoError(t, s.Insert(rec))

	got := s.Get(1)
	require.NotNil(t, got)
	require.Equal(t, uint16(1), got.Client)
}

func TestInsertDuplicateRejected(t *testing.T) {
	s := NewShards(4)
	amt, _ := money.Parse("1.0000")
	rec := &types.Record{Tx: 1, Client: 1, Kind: types.Deposit, Amount: amt}
	require.NoError(t, s.Insert(rec))
	err := s.Insert(&types.Record{Tx: 1, Client: 2, Kind: types.Withdrawal, Amount: amt})
	require.ErrorIs(t, err, ErrDuplicateTx)
}

func TestDuplicateTxAcrossDifferentClientsStillRejected(t *testing.T) {
	s := NewShards(1)
	amt, _ := money.Parse("1.0000")
	require.NoError(t, s.Insert(&types.Record{Tx: 42, Client: 1, Kind: types.Deposit, Amount: amt}))
	err := s.Insert(&types.Record{Tx: 42, Client: 2, Kind: types.Deposit, Amount: amt})
	require.ErrorIs(t, err, ErrDuplicateTx)
}

func TestGetMissingReturnsNil(t *testing.T) {
	s := NewShards(4)
	require.Nil(t, s.Get(999))
}

func TestRecordMutationThroughPointer(t *testing.T) {
	s := NewShards(4)
	amt, _ := money.Parse("1.0000")
	rec := &types.Record{Tx: 5, Client: 1, Kind: types.Deposit, Amount: amt, State: types.Normal}
	require.NoError(t, s.Insert(rec))

	got := s.Get(5)
	got.State = types.Disputed

	require.Equal(t, types.Disputed, s.Get(5).State)
}

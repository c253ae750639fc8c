// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/payments-engine/internal/account"
	"github.com/luxfi/payments-engine/internal/money"
	"github.com/luxfi/payments-engine/internal/txstore"
	"github.com/luxfi/payments-engine/internal/types"
)

// genTxRecord mirrors enough of a generated deposit/withdrawal to pick
// plausible (and occasionally implausible) dispute-family targets.
type genTxRecord struct {
	tx     uint32
	client uint16
	amount money.Money
}

// generateRowSequence builds a pseudo-random sequence of valid-shaped rows
// across numClients clients, using rng for every choice so a fixed seed
// reproduces the exact same sequence. Roughly 40% of rows are
// dispute-family, deliberately including re-dispute/re-resolve/
// re-chargeback of the same tx (to exercise P5) and references to tx
// ids whose withdrawal was rejected and never stored (to exercise the
// rejection paths without ever corrupting an invariant). Dispute-family
// rows always carry the referenced tx's own client.
func generateRowSequence(rng *rand.Rand, numClients int, numEvents int) []types.Row {
	rows := make([]types.Row, 0, numEvents)
	var ledger []genTxRecord
	var nextTx uint32 = 1

	randomAmount := func() money.Money {
		whole := rng.Intn(1000)
		frac := rng.Intn(10000)
		m, err := money.Parse(fmt.Sprintf("%d.%04d", whole, frac))
		if err != nil {
			panic(err)
		}
		return m
	}

	for i := 0; i < numEvents; i++ {
		client := uint16(rng.Intn(numClients) + 1)

		roll := rng.Float64()
		switch {
		case roll < 0.35:
			tx := nextTx
			nextTx++
			amt := randomAmount()
			rows = append(rows, types.Row{Kind: types.Deposit, Client: client, Tx: tx, Amount: amt, HasAmt: true})
			ledger = append(ledger, genTxRecord{tx: tx, client: client, amount: amt})
		case roll < 0.60:
			tx := nextTx
			nextTx++
			amt := randomAmount()
			rows = append(rows, types.Row{Kind: types.Withdrawal, Client: client, Tx: tx, Amount: amt, HasAmt: true})
			ledger = append(ledger, genTxRecord{tx: tx, client: client, amount: amt})
		case len(ledger) == 0:
			// No tx exists yet to dispute; fall back to a deposit so the
			// ledger has something to reference on the next iteration.
			tx := nextTx
			nextTx++
			amt := randomAmount()
			rows = append(rows, types.Row{Kind: types.Deposit, Client: client, Tx: tx, Amount: amt, HasAmt: true})
			ledger = append(ledger, genTxRecord{tx: tx, client: client, amount: amt})
		case roll < 0.78:
			rec := ledger[rng.Intn(len(ledger))]
			rows = append(rows, types.Row{Kind: types.Dispute, Client: rec.client, Tx: rec.tx})
		case roll < 0.90:
			rec := ledger[rng.Intn(len(ledger))]
			rows = append(rows, types.Row{Kind: types.Resolve, Client: rec.client, Tx: rec.tx})
		default:
			rec := ledger[rng.Intn(len(ledger))]
			rows = append(rows, types.Row{Kind: types.Chargeback, Client: rec.client, Tx: rec.tx})
		}
	}
	return rows
}

// txAmounts indexes the amount each tx id was originally created with, so
// the conservation check (P3) can attribute a chargeback's effect without
// re-deriving it from engine-internal state.
func txAmounts(rows []types.Row) map[uint32]money.Money {
	out := make(map[uint32]money.Money)
	for _, r := range rows {
		if r.Kind == types.Deposit || r.Kind == types.Withdrawal {
			out[r.Tx] = r.Amount
		}
	}
	return out
}

// runSequenceCheckingInvariants applies every row in order to a fresh
// Engine, asserting P1 (held never negative) and P2 (locked is monotone)
// after every single row, and returns the running P3 conservation totals
// alongside the final snapshots.
func runSequenceCheckingInvariants(t *testing.T, rows []types.Row) (snapshots []account.Snapshot, depositSum, withdrawalSum, chargebackSum money.Money) {
	t.Helper()

	accounts := account.NewManagerShards(4)
	e := New(accounts, txstore.NewShards(4), nil)
	amounts := txAmounts(rows)

	depositSum = money.Zero()
	withdrawalSum = money.Zero()
	chargebackSum = money.Zero()
	wasLocked := make(map[uint16]bool)

	for i, row := range rows {
		out := e.Apply(row)

		snap := accounts.GetOrCreate(row.Client).Snapshot()
		require.Falsef(t, snap.Held.IsNegative(), "P1 violated at row %d (%+v): held=%s", i, row, snap.Held.FormatFixed4())

		if wasLocked[row.Client] {
			require.Truef(t, snap.Locked, "P2 violated at row %d (%+v): account unlocked after having been locked", i, row)
		}
		if snap.Locked {
			wasLocked[row.Client] = true
		}

		if !out.Applied {
			continue
		}
		switch row.Kind {
		case types.Deposit:
			sum, err := depositSum.CheckedAdd(row.Amount)
			require.NoError(t, err)
			depositSum = sum
		case types.Withdrawal:
			sum, err := withdrawalSum.CheckedAdd(row.Amount)
			require.NoError(t, err)
			withdrawalSum = sum
		case types.Chargeback:
			amt, ok := amounts[row.Tx]
			require.True(t, ok, "chargeback applied against a tx with no recorded amount")
			sum, err := chargebackSum.CheckedAdd(amt)
			require.NoError(t, err)
			chargebackSum = sum
		}
	}

	return accounts.DrainSnapshots(), depositSum, withdrawalSum, chargebackSum
}

func TestPropertiesHoldAcrossRandomSequences(t *testing.T) {
	const numSeeds = 25
	const numClients = 6
	const numEvents = 300

	for seed := int64(0); seed < numSeeds; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			rows := generateRowSequence(rng, numClients, numEvents)

			snapshots, depositSum, withdrawalSum, chargebackSum := runSequenceCheckingInvariants(t, rows)

			// P3: conservation. Total held across every account equals net
			// successful deposits minus net successful withdrawals minus
			// every successfully charged-back amount.
			want, err := depositSum.CheckedSub(withdrawalSum)
			require.NoError(t, err)
			want, err = want.CheckedSub(chargebackSum)
			require.NoError(t, err)

			got := money.Zero()
			for _, s := range snapshots {
				sum, err := got.CheckedAdd(s.Total)
				require.NoError(t, err)
				got = sum
			}
			require.Truef(t, want.Equal(got), "P3 violated: want total %s, got %s", want.FormatFixed4(), got.FormatFixed4())

			// P6: round-trip. Every snapshot's formatted values reparse to
			// the exact same Money.
			for _, s := range snapshots {
				for _, v := range []money.Money{s.Available, s.Held, s.Total} {
					reparsed, err := money.Parse(v.FormatFixed4())
					require.NoError(t, err)
					require.True(t, reparsed.Equal(v))
				}
			}
		})
	}
}

// TestResolveAndChargebackAreIdempotent targets P5 directly: once a
// disputed tx has been resolved or charged back, repeating that same
// Resolve/Chargeback row again is a no-op (rejected, no state change),
// across randomly generated sequences rather than the single literal
// example from spec.md.
func TestResolveAndChargebackAreIdempotent(t *testing.T) {
	const numSeeds = 10
	for seed := int64(100); seed < 100+numSeeds; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			rows := generateRowSequence(rng, 4, 150)

			accounts := account.NewManagerShards(2)
			e := New(accounts, txstore.NewShards(2), nil)

			// Keep, per tx, the last applied Resolve/Chargeback, dropping it
			// when a later Dispute re-opens that tx (re-disputing a resolved
			// record is allowed, and then a Resolve applies again).
			appliedResolvesAndChargebacks := make(map[uint32]types.Row)
			for _, row := range rows {
				out := e.Apply(row)
				if !out.Applied {
					continue
				}
				switch row.Kind {
				case types.Resolve, types.Chargeback:
					appliedResolvesAndChargebacks[row.Tx] = row
				case types.Dispute:
					delete(appliedResolvesAndChargebacks, row.Tx)
				}
			}
			before := snapshotByClient(accounts.DrainSnapshots())

			// Replay those Resolve/Chargeback rows; each is now against a
			// tx in Normal or ChargedBack state, so none may change any
			// account's externally observable state a second time.
			for _, row := range appliedResolvesAndChargebacks {
				out := e.Apply(row)
				require.False(t, out.Applied, "replayed %s on tx %d was re-applied instead of rejected", row.Kind, row.Tx)
			}
			after := snapshotByClient(accounts.DrainSnapshots())

			for client, want := range before {
				got, ok := after[client]
				require.True(t, ok)
				require.True(t, want.Available.Equal(got.Available), "client %d available drifted on replay", client)
				require.True(t, want.Held.Equal(got.Held), "client %d held drifted on replay", client)
				require.Equal(t, want.Locked, got.Locked, "client %d locked drifted on replay", client)
			}
		})
	}
}

func snapshotByClient(snaps []account.Snapshot) map[uint16]account.Snapshot {
	out := make(map[uint16]account.Snapshot, len(snaps))
	for _, s := range snaps {
		out[s.Client] = s
	}
	return out
}

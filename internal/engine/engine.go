// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package engine implements the per-row transaction state machine: the
// decision tree that turns one decoded Row into a mutation of an Account
// and, for deposits/withdrawals, a stored Record.
package engine

import (
	"github.com/luxfi/payments-engine/internal/account"
	"github.com/luxfi/payments-engine/internal/txstore"
	"github.com/luxfi/payments-engine/internal/types"
)

// Reason names why a row was rejected. The zero value is never used on a
// Rejected outcome.
type Reason string

const (
	ReasonBadAmount         Reason = "bad_amount"
	ReasonDuplicateTx       Reason = "duplicate_tx"
	ReasonInsufficientFunds Reason = "insufficient_funds"
	ReasonUnknownTx         Reason = "unknown_tx"
	ReasonClientMismatch    Reason = "client_mismatch"
	ReasonBadState          Reason = "bad_state"
	ReasonAccountLocked     Reason = "account_locked"
	ReasonOverflow          Reason = "overflow"
)

// Outcome is the total result of applying one Row: every row produces
// exactly one of Applied or Rejected, never an error that propagates
// upward.
type Outcome struct {
	Applied bool
	Reason  Reason
}

func applied() Outcome          { return Outcome{Applied: true} }
func rejected(r Reason) Outcome { return Outcome{Applied: false, Reason: r} }

// Metrics receives per-row outcome counts. Engine works with a nil
// Metrics (all calls become no-ops) so unit tests don't need to stand up
// a collector.
type Metrics interface {
	IncProcessed(kind types.Kind)
	IncRejected(kind types.Kind, reason Reason)
}

// Engine is the central arbiter applying rows to the shared Account and
// TransactionRecord stores.
type Engine struct {
	accounts *account.Manager
	txs      *txstore.Store
	metrics  Metrics
}

// New returns an Engine over the given stores. metrics may be nil.
func New(accounts *account.Manager, txs *txstore.Store, metrics Metrics) *Engine {
	return &Engine{accounts: accounts, txs: txs, metrics: metrics}
}

// Apply performs the full decision tree for one row and returns its
// outcome. It never panics or returns an error: every rejection is
// reported through Outcome.Reason for the caller to log.
func (e *Engine) Apply(row types.Row) Outcome {
	acc := e.accounts.GetOrCreate(row.Client)
	if acc.Locked() {
		return e.finish(row, rejected(ReasonAccountLocked))
	}

	switch row.Kind {
	case types.Deposit:
		return e.finish(row, e.applyDeposit(acc, row))
	case types.Withdrawal:
		return e.finish(row, e.applyWithdrawal(acc, row))
	case types.Dispute:
		return e.finish(row, e.applyDispute(acc, row))
	case types.Resolve:
		return e.finish(row, e.applyResolve(acc, row))
	case types.Chargeback:
		return e.finish(row, e.applyChargeback(acc, row))
	default:
		return e.finish(row, rejected(ReasonBadAmount))
	}
}

func (e *Engine) finish(row types.Row, o Outcome) Outcome {
	if e.metrics == nil {
		return o
	}
	if o.Applied {
		e.metrics.IncProcessed(row.Kind)
	} else {
		e.metrics.IncRejected(row.Kind, o.Reason)
	}
	return o
}

func (e *Engine) applyDeposit(acc *account.Account, row types.Row) Outcome {
	if !row.HasAmt || !row.Amount.IsPositive() {
		return rejected(ReasonBadAmount)
	}
	if e.txs.Get(row.Tx) != nil {
		return rejected(ReasonDuplicateTx)
	}
	if err := acc.Deposit(row.Amount); err != nil {
		return rejected(ReasonOverflow)
	}
	rec := &types.Record{Tx: row.Tx, Client: row.Client, Kind: types.Deposit, Amount: row.Amount, State: types.Normal}
	if err := e.txs.Insert(rec); err != nil {
		// Another row inserted tx between our Get and Insert checks; the
		// deposit already landed on the account but can't be recorded
		// against a colliding id. Take it back off the account and treat
		// the row as a duplicate-tx rejection. This client's rows are
		// applied one at a time, so available still covers the amount.
		_ = acc.Withdraw(row.Amount)
		return rejected(ReasonDuplicateTx)
	}
	return applied()
}

func (e *Engine) applyWithdrawal(acc *account.Account, row types.Row) Outcome {
	if !row.HasAmt || !row.Amount.IsPositive() {
		return rejected(ReasonBadAmount)
	}
	if e.txs.Get(row.Tx) != nil {
		return rejected(ReasonDuplicateTx)
	}
	if err := acc.Withdraw(row.Amount); err != nil {
		if err == account.ErrInsufficientFunds {
			return rejected(ReasonInsufficientFunds)
		}
		return rejected(ReasonOverflow)
	}
	rec := &types.Record{Tx: row.Tx, Client: row.Client, Kind: types.Withdrawal, Amount: row.Amount, State: types.Normal}
	if err := e.txs.Insert(rec); err != nil {
		// Same race as in applyDeposit: put the withdrawn amount back.
		_ = acc.Deposit(row.Amount)
		return rejected(ReasonDuplicateTx)
	}
	return applied()
}

func (e *Engine) applyDispute(acc *account.Account, row types.Row) Outcome {
	rec := e.txs.Get(row.Tx)
	if rec == nil {
		return rejected(ReasonUnknownTx)
	}
	if rec.Client != row.Client {
		return rejected(ReasonClientMismatch)
	}
	if rec.State != types.Normal {
		return rejected(ReasonBadState)
	}
	if err := acc.Hold(rec.Amount); err != nil {
		return rejected(ReasonOverflow)
	}
	rec.State = types.Disputed
	return applied()
}

func (e *Engine) applyResolve(acc *account.Account, row types.Row) Outcome {
	rec := e.txs.Get(row.Tx)
	if rec == nil {
		return rejected(ReasonUnknownTx)
	}
	if rec.Client != row.Client {
		return rejected(ReasonClientMismatch)
	}
	if rec.State != types.Disputed {
		return rejected(ReasonBadState)
	}
	if err := acc.Release(rec.Amount); err != nil {
		return rejected(ReasonOverflow)
	}
	rec.State = types.Normal
	return applied()
}

func (e *Engine) applyChargeback(acc *account.Account, row types.Row) Outcome {
	rec := e.txs.Get(row.Tx)
	if rec == nil {
		return rejected(ReasonUnknownTx)
	}
	if rec.Client != row.Client {
		return rejected(ReasonClientMismatch)
	}
	if rec.State != types.Disputed {
		return rejected(ReasonBadState)
	}
	if err := acc.ChargeOff(rec.Amount); err != nil {
		return rejected(ReasonOverflow)
	}
	rec.State = types.ChargedBack
	return applied()
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package types holds the shared vocabulary for decoded rows and stored
// transaction records, so internal/ioformat, internal/txstore, and
// internal/engine can all speak the same names without importing each
// other.
package types

import "github.com/luxfi/payments-engine/internal/money"

// Kind identifies the five row types the engine understands.
type Kind uint8

const (
	Deposit Kind = iota
	Withdrawal
	Dispute
	Resolve
	Chargeback
)

func (k Kind) String() string {
	switch k {
	case Deposit:
		return "deposit"
	case Withdrawal:
		return "withdrawal"
	case Dispute:
		return "dispute"
	case Resolve:
		return "resolve"
	case Chargeback:
		return "chargeback"
	default:
		return "unknown"
	}
}

// ParseKind decodes a type column value. It matches the lower-case names
// exactly; the CSV reader lower-cases and trims the column before calling
// it.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "deposit":
		return Deposit, true
	case "withdrawal":
		return Withdrawal, true
	case "dispute":
		return Dispute, true
	case "resolve":
		return Resolve, true
	case "chargeback":
		return Chargeback, true
	default:
		return 0, false
	}
}

// Row is one decoded input record. Amount is present (HasAmt) for
// Deposit/Withdrawal rows decoded by the reader; the Engine rejects a
// missing or non-positive amount. Amount is ignored for the three
// dispute-family kinds.
type Row struct {
	Kind   Kind
	Client uint16
	Tx     uint32
	Amount money.Money
	HasAmt bool
}

// RecordState is a TransactionRecord's position in the dispute
// lifecycle.
type RecordState uint8

const (
	Normal RecordState = iota
	Disputed
	ChargedBack
)

func (s RecordState) String() string {
	switch s {
	case Normal:
		return "normal"
	case Disputed:
		return "disputed"
	case ChargedBack:
		return "charged_back"
	default:
		return "unknown"
	}
}

// Record is stored for every successfully applied Deposit or Withdrawal
// so later dispute-family rows can reference it. Dispute-family rows are
// never themselves stored.
type Record struct {
	Tx     uint32
	Client uint16
	Kind   Kind // Deposit or Withdrawal
	Amount money.Money
	State  RecordState
}

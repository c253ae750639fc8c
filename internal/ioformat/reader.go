// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ioformat implements the header-first CSV row format (§6): one
// client/tx/amount movement per line, tolerant of malformed or
// semantically invalid rows, and the client,available,held,total,locked
// snapshot format written on completion.
package ioformat

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/luxfi/payments-engine/internal/log"
	"github.com/luxfi/payments-engine/internal/money"
	"github.com/luxfi/payments-engine/internal/types"
)

// ParseError describes why a single line failed to become a Row. It is
// always recovered by the Reader: the stream continues with the next
// line.
type ParseError struct {
	Line uint64
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ioformat: line %d: %v: %q", e.Line, e.Err, e.Raw)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errWrongColumnCount = errors.New("expected 4 columns")
	errUnknownType      = errors.New("unknown transaction type")
	errClientRange      = errors.New("client id out of range")
	errTxRange          = errors.New("tx id out of range")
	errAmountRequired   = errors.New("amount required")
)

// Reader pulls Row values from a header-first CSV stream. Lines that
// fail to tokenize or type-check are logged and skipped; only an
// underlying I/O failure on the source reader is returned as an error.
type Reader struct {
	scanner       *bufio.Scanner
	logger        log.Logger
	line          uint64
	headerSkipped bool
}

// NewReader wraps r. The header line is consumed lazily on the first
// call to Next.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		scanner: bufio.NewScanner(r),
		logger:  log.New("ioformat"),
	}
}

// Next returns the next valid Row. ok is false once the stream is
// exhausted; err is non-nil only for a read failure against the
// underlying source, never for a malformed or semantically invalid row
// (those are logged and skipped internally).
func (r *Reader) Next() (row types.Row, ok bool, err error) {
	if !r.headerSkipped {
		r.headerSkipped = true
		if r.scanner.Scan() {
			r.line++
		}
	}

	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, perr := decodeLine(line)
		if perr != nil {
			perr.Line = r.line
			r.logger.Warn("skipping malformed row", "line", perr.Line, "err", perr.Err)
			continue
		}
		return row, true, nil
	}
	if err := r.scanner.Err(); err != nil {
		return types.Row{}, false, err
	}
	return types.Row{}, false, nil
}

func decodeLine(line string) (types.Row, *ParseError) {
	fields, err := tokenize(line)
	if err != nil {
		return types.Row{}, &ParseError{Raw: line, Err: err}
	}
	if len(fields) != 4 {
		return types.Row{}, &ParseError{Raw: line, Err: errWrongColumnCount}
	}

	kindText := strings.ToLower(strings.TrimSpace(fields[0]))
	kind, ok := types.ParseKind(kindText)
	if !ok {
		return types.Row{}, &ParseError{Raw: line, Err: errUnknownType}
	}

	clientText := strings.TrimSpace(fields[1])
	client, err := strconv.ParseUint(clientText, 10, 16)
	if err != nil {
		return types.Row{}, &ParseError{Raw: line, Err: fmt.Errorf("%w: %v", errClientRange, err)}
	}

	txText := strings.TrimSpace(fields[2])
	tx, err := strconv.ParseUint(txText, 10, 32)
	if err != nil {
		return types.Row{}, &ParseError{Raw: line, Err: fmt.Errorf("%w: %v", errTxRange, err)}
	}

	row := types.Row{Kind: kind, Client: uint16(client), Tx: uint32(tx)}

	amountText := strings.TrimSpace(fields[3])
	switch kind {
	case types.Deposit, types.Withdrawal:
		if amountText == "" {
			return types.Row{}, &ParseError{Raw: line, Err: errAmountRequired}
		}
		amt, err := money.Parse(amountText)
		if err != nil {
			return types.Row{}, &ParseError{Raw: line, Err: err}
		}
		row.Amount = amt
		row.HasAmt = true
	default:
		// The amount column is ignored for dispute-family rows, whether
		// empty or stray, per spec.
	}
	return row, nil
}

// tokenize splits one line into its raw fields using encoding/csv so a
// quoted field (unlikely in this format, but valid CSV) is handled
// correctly; a malformed single line only fails that line, never the
// surrounding stream, since each call re-parses an independent string.
func tokenize(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr.Read()
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ioformat

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/luxfi/payments-engine/internal/account"
)

var header = []string{"client", "available", "held", "total", "locked"}

// WriteSnapshots writes the final account snapshot CSV (§6) to w, one
// row per account, in the order given. Row ordering is unspecified by
// spec.md, so callers are free to sort or not.
func WriteSnapshots(w io.Writer, snapshots []account.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range snapshots {
		record := []string{
			strconv.FormatUint(uint64(s.Client), 10),
			s.Available.FormatFixed4(),
			s.Held.FormatFixed4(),
			s.Total.FormatFixed4(),
			strconv.FormatBool(s.Locked),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/payments-engine/internal/engine"
	"github.com/luxfi/payments-engine/internal/types"
)

func TestCollectorCountsProcessedAndRejected(t *testing.T) {
	c := NewCollector()
	c.IncProcessed(types.Deposit)
	c.IncProcessed(types.Deposit)
	c.IncRejected(types.Withdrawal, engine.ReasonInsufficientFunds)
	c.SetAccountCounts(5, 1)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	require.Contains(t, body, `payments_rows_processed_total{kind="deposit"} 2`)
	require.Contains(t, body, `payments_rows_rejected_total{kind="withdrawal",reason="insufficient_funds"} 1`)
	require.Contains(t, body, "payments_accounts_total 5")
	require.Contains(t, body, "payments_accounts_locked 1")
}

func TestCollectorImplementsEngineMetrics(t *testing.T) {
	var _ engine.Metrics = NewCollector()
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	a.IncProcessed(types.Deposit)

	rr := httptest.NewRecorder()
	b.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.False(t, strings.Contains(rr.Body.String(), `payments_rows_processed_total{kind="deposit"} 1`))
}

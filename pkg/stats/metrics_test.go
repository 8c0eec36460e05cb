package stats_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentcore/escrowd/internal/core/ports"
	"github.com/agentcore/escrowd/pkg/stats"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := stats.NewMetrics()

	m.ObserveOperation("lock", nil)
	m.ObserveOperation("lock", nil)
	m.ObserveOperation("lock", errors.New("boom"))
	m.ObservePayout("preimage")
	m.ObserveWebhookDelivery(nil)
	m.SetEscrowedAmount(150)
	m.SetWsClients(3)

	count, err := testutil.GatherAndCount(
		m.Registry(), "escrowd_operations_total",
	)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(
		m.Registry(), "escrowd_escrowed_amount", "escrowd_ws_clients",
		"escrowd_payouts_total", "escrowd_webhook_deliveries_total",
	)
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func TestWebhookDeliveryMetrics(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
	}{
		{"delivered", nil, stats.ResultOk},
		{"unreachable", errors.New("connection refused"), stats.ResultError},
		{"rejected", &ports.DeliveryError{StatusCode: 500, Body: "boom"}, stats.ResultRejected},
		{"wrapped_rejected", fmt.Errorf("publish: %w", &ports.DeliveryError{StatusCode: 404}), stats.ResultRejected},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			m := stats.NewMetrics()
			m.ObserveWebhookDelivery(tt.err)

			expected := fmt.Sprintf(`
# HELP escrowd_webhook_deliveries_total Number of webhook publications by result.
# TYPE escrowd_webhook_deliveries_total counter
escrowd_webhook_deliveries_total{result="%s"} 1
`, tt.result)
			require.NoError(t, testutil.GatherAndCompare(
				m.Registry(), strings.NewReader(expected),
				"escrowd_webhook_deliveries_total",
			))
		})
	}
}

func TestDumpMetrics(t *testing.T) {
	m := stats.NewMetrics()
	m.SetEscrowedAmount(42)

	path := filepath.Join(t.TempDir(), "stats")
	require.NoError(t, stats.DumpMetrics(m.Registry(), path))

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(buf), "escrowd_escrowed_amount")
}

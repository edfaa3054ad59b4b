// file: internal/metrics/metrics_test.go
// version: 3.0.0
// guid: 7a8b9c0d-1e2f-3a4b-5c6d-7e8f9a0b1c2d

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestOperationLifecycle(t *testing.T) {
	opType := "test_lifecycle"
	completed := value(t, operations.WithLabelValues(opType, "completed"))

	OperationStarted(opType)
	OperationStarted(opType)
	assert.Equal(t, float64(2), value(t, operationsRunning.WithLabelValues(opType)))

	OperationFinished(opType, "completed", 10*time.Millisecond)
	OperationFinished(opType, "failed", time.Second)
	OperationDropped(opType, "canceled")

	assert.Zero(t, value(t, operationsRunning.WithLabelValues(opType)))
	assert.Equal(t, completed+1, value(t, operations.WithLabelValues(opType, "completed")))
	assert.Equal(t, float64(1), value(t, operations.WithLabelValues(opType, "canceled")))
}

func TestImportCounters(t *testing.T) {
	created := value(t, collections.WithLabelValues("created"))
	skipped := value(t, tracksSkipped.WithLabelValues("duplicate"))
	imported := value(t, tracksImported)

	IncCollection("created")
	IncTrackSkipped("duplicate")
	IncTrackSkipped("duplicate")
	IncTrackImported()
	IncDirectoryFailure("enumeration")
	ObserveImportDuration(time.Second)

	assert.Equal(t, created+1, value(t, collections.WithLabelValues("created")))
	assert.Equal(t, skipped+2, value(t, tracksSkipped.WithLabelValues("duplicate")))
	assert.Equal(t, imported+1, value(t, tracksImported))
}

func TestGauges(t *testing.T) {
	SetCollections(7)
	SetLedgerEntries(42)

	assert.Equal(t, float64(7), value(t, collectionsGauge))
	assert.Equal(t, float64(42), value(t, ledgerGauge))
}

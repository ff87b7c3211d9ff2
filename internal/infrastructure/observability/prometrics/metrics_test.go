package prometrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JulianR23/Vertex-Store/internal/observability"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) (float64, int) {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum, len(mf.GetMetric())
	}
	return 0, 0
}

func TestStandardRegistersEveryMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	in := Standard(New(reg, "vertex", ""))

	assert.Len(t, in.Counters, 5)
	assert.Len(t, in.Histograms, 3)

	c := in.Counters[observability.MStockAnomalies]
	require.NotNil(t, c)
	c.Add(1, observability.L("product_id", "p-1"))
	c.Bind(observability.L("product_id", "p-1")).Add(2)

	v, series := counterValue(t, reg, "vertex_stock_anomalies_total")
	assert.Equal(t, 1, series)
	assert.Equal(t, float64(3), v)
}

func TestRegistryIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "", "")

	a := r.Counter("dup_total", "dup", "k")
	b := r.Counter("dup_total", "dup", "k")
	a.Add(1, observability.L("k", "v"))
	b.Add(1, observability.L("k", "v"))

	v, series := counterValue(t, reg, "dup_total")
	assert.Equal(t, 1, series)
	assert.Equal(t, float64(2), v)
}

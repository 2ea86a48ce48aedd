package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xRadioAc7iv/go-kvs/internal/metrics"
)

func TestObserve(t *testing.T) {
	m := metrics.New(nil)

	m.Observe("set", nil)
	m.Observe("set", nil)
	m.Observe("remove", errors.New("key not found"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("set", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("remove", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Operations.WithLabelValues("get", "ok")))
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.Keys.Set(3)
	m.Compactions.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["kvs_store_keys"])
	assert.True(t, names["kvs_store_compactions_total"])

	// promauto panics on duplicate registration
	assert.Panics(t, func() { metrics.New(reg) })
}

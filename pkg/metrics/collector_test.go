package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"

	"github.com/filewarden/filewarden/pkg/modemgr"
)

func TestDelta_TracksMonotonicIncrease(t *testing.T) {
	var last int64
	assert.EqualValues(t, 3, delta(&last, 3))
	assert.EqualValues(t, 2, delta(&last, 5))
	assert.EqualValues(t, 0, delta(&last, 5))
}

func TestDelta_ClampsNegativeToZero(t *testing.T) {
	var last int64 = 10
	assert.EqualValues(t, 0, delta(&last, 4))
	assert.EqualValues(t, 4, last)
}

func TestDeltaU_ClampsOnCounterReset(t *testing.T) {
	var last uint64 = 100
	assert.EqualValues(t, 0, deltaU(&last, 40))
	assert.EqualValues(t, 40, last)
	assert.EqualValues(t, 10, deltaU(&last, 50))
}

func TestCollector_CollectMode_SetsExactlyOneModeGaugeHigh(t *testing.T) {
	mode := modemgr.New(modemgr.Config{PrivilegedCheck: func() bool { return true }})
	c := NewCollector(nil, mode, nil, nil)

	c.collectMode()

	gather := func(labelValue string) float64 {
		m := &dto.Metric{}
		_ = ModeCurrent.WithLabelValues(labelValue).Write(m)
		return m.GetGauge().GetValue()
	}

	assert.Equal(t, float64(1), gather(string(modemgr.Monitor)))
	assert.Equal(t, float64(0), gather(string(modemgr.Init)))
	assert.Equal(t, float64(0), gather(string(modemgr.Update)))
	assert.Equal(t, float64(0), gather(string(modemgr.Emergency)))
}

func TestCollector_NilSourcesDoNotPanic(t *testing.T) {
	c := NewCollector(nil, nil, nil, nil)
	assert.NotPanics(t, c.collect)
}

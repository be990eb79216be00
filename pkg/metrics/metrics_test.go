package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics_Idempotent(t *testing.T) {
	InitMetrics()
	first := StockMutationsTotal

	// 第二次调用不能重复注册（重复注册会panic）
	assert.NotPanics(t, InitMetrics)
	assert.Same(t, first, StockMutationsTotal)
}

func TestRecordStockMutation(t *testing.T) {
	InitMetrics()

	before := getCounterVecValue(t, StockMutationsTotal, "reserve", "failure")
	RecordStockMutation("reserve", errors.New("库存不足"))
	RecordStockMutation("reserve", errors.New("库存不足"))
	RecordStockMutation("reserve", nil)

	assert.Equal(t, before+2, getCounterVecValue(t, StockMutationsTotal, "reserve", "failure"))
}

func TestRecordOrderTransition(t *testing.T) {
	InitMetrics()

	before := getCounterVecValue(t, OrderTransitionsTotal, "paid")
	RecordOrderTransition("paid")
	assert.Equal(t, before+1, getCounterVecValue(t, OrderTransitionsTotal, "paid"))
}

func TestObserveHistogram(t *testing.T) {
	InitMetrics()

	var before dto.Metric
	require.NoError(t, OrderCreationDuration.Write(&before))

	ObserveHistogram(OrderCreationDuration, 0.05)
	ObserveHistogram(OrderCreationDuration, 0.5)

	var after dto.Metric
	require.NoError(t, OrderCreationDuration.Write(&after))
	assert.Equal(t, before.Histogram.GetSampleCount()+2, after.Histogram.GetSampleCount())
	assert.InDelta(t, before.Histogram.GetSampleSum()+0.55, after.Histogram.GetSampleSum(), 1e-9)
}

func TestHelpers_NilSafe(t *testing.T) {
	var c prometheus.Counter
	var h prometheus.Histogram
	assert.NotPanics(t, func() {
		IncCounter(c)
		AddCounter(c, 3)
		ObserveHistogram(h, 1)
	})
}

func TestResult(t *testing.T) {
	assert.Equal(t, "success", Result(nil))
	assert.Equal(t, "failure", Result(errors.New("x")))
}

func getCounterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, vec.WithLabelValues(labels...).Write(&metric))
	return metric.Counter.GetValue()
}

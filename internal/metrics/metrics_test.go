package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	m.MustRegister(reg)

	m.Fold(Success, 10*time.Millisecond)
	m.Fold(Success, 20*time.Millisecond)
	m.Fold(Failure, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.prometheus.Folds.WithLabelValues(Success)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.prometheus.Folds.WithLabelValues(Failure)))

	m.AUC("model", 0.8)
	m.AUC("model", 0.85)
	assert.Equal(t, 0.85, testutil.ToFloat64(m.prometheus.AUC.WithLabelValues("model")))
	auc, ok := m.LastAUC("model")
	assert.True(t, ok)
	assert.Equal(t, 0.85, auc)
	_, ok = m.LastAUC("baseline")
	assert.False(t, ok)

	// registering twice on the same registry is rejected
	assert.Panics(t, func() {
		m.MustRegister(reg)
	})
}

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Success marks a fold that produced predictions.
	Success = "success"
	// Failure marks a fold that could not be fit.
	Failure = "failure"
)

// Observer is the process wide metrics instance, registered with the default registry.
var Observer = NewMetrics()

func init() {
	Observer.MustRegister(prometheus.DefaultRegisterer)
}

type Metrics struct {
	mutex      *sync.RWMutex
	prometheus Prometheus
	last       map[string]float64
}

// NewMetrics creates a new unregistered metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		mutex:      new(sync.RWMutex),
		prometheus: NewPrometheusMetrics(),
		last:       make(map[string]float64),
	}
}

// MustRegister registers the collectors with the given registerer.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.prometheus.collectors()...)
}

// Fold tracks the outcome and duration of a fold.
func (m *Metrics) Fold(status string, duration time.Duration) {
	m.prometheus.Folds.WithLabelValues(status).Inc()
	m.prometheus.FoldDuration.Observe(duration.Seconds())
}

// AUC tracks the latest auc of the given predictor.
func (m *Metrics) AUC(predictor string, auc float64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.last[predictor] = auc
	m.prometheus.AUC.WithLabelValues(predictor).Set(auc)
}

// LastAUC returns the latest auc tracked for the predictor.
func (m *Metrics) LastAUC(predictor string) (float64, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	auc, ok := m.last[predictor]
	return auc, ok
}

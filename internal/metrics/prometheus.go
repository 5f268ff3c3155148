package metrics

import "github.com/prometheus/client_golang/prometheus"

type Prometheus struct {
	Folds        *prometheus.CounterVec
	FoldDuration prometheus.Histogram
	AUC          *prometheus.GaugeVec
}

func NewPrometheusMetrics() Prometheus {
	return Prometheus{
		Folds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cv",
				Name:      "folds_total",
				Help:      "cross validation folds by outcome",
			}, []string{"status"}),
		FoldDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "cv",
				Name:      "fold_duration_seconds",
				Help:      "time to normalise, fit and score a fold",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			}),
		AUC: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "cv",
				Name:      "auc",
				Help:      "last area under the roc curve by predictor",
			}, []string{"predictor"}),
	}
}

func (p Prometheus) collectors() []prometheus.Collector {
	return []prometheus.Collector{p.Folds, p.FoldDuration, p.AUC}
}

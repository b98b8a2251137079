package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics every method is safe on a nil receiver, so components can take an optional *Metrics.
type Metrics struct {
	FeeCalculations  *prometheus.CounterVec
	FeeErrors        prometheus.Counter
	FetchTotal       *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	FallbackTotal    *prometheus.CounterVec
	RiskComputations *prometheus.CounterVec
	TotalExposure    prometheus.Gauge
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		FeeCalculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fee_calculations_total",
				Help: "Total fee calculations.",
			},
			[]string{"side"},
		),
		FeeErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fee_calculation_errors_total",
				Help: "Fee calculations rejected for invalid input.",
			},
		),
		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_data_fetch_total",
				Help: "Market data fetches by source and status.",
			},
			[]string{"source", "status"},
		),
		FetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "market_data_fetch_duration_seconds",
				Help:    "Live market data fetch duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		FallbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_data_fallback_total",
				Help: "Price snapshots substituted for an unavailable live source.",
			},
			[]string{"source"},
		),
		RiskComputations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "risk_computations_total",
				Help: "Risk report computations by status.",
			},
			[]string{"status"},
		),
		TotalExposure: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "risk_total_exposure",
				Help: "Total exposure of the last computed risk report.",
			},
		),
	}

	registry.MustRegister(
		m.FeeCalculations,
		m.FeeErrors,
		m.FetchTotal,
		m.FetchDuration,
		m.FallbackTotal,
		m.RiskComputations,
		m.TotalExposure,
	)
	return m
}

func (m *Metrics) ObserveFee(side string) {
	if m == nil {
		return
	}
	m.FeeCalculations.WithLabelValues(side).Inc()
}

func (m *Metrics) IncFeeError() {
	if m == nil {
		return
	}
	m.FeeErrors.Inc()
}

func (m *Metrics) ObserveFetch(source, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(source, status).Inc()
	if d > 0 {
		m.FetchDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncFallback(source string) {
	if m == nil {
		return
	}
	m.FallbackTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveRisk(status string, totalExposure float64) {
	if m == nil {
		return
	}
	m.RiskComputations.WithLabelValues(status).Inc()
	if status == "ok" {
		m.TotalExposure.Set(totalExposure)
	}
}

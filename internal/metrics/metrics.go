package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cio-consistency/internal/analysis"
)

// Refresh results recorded by RefreshTotal.
const (
	ResultComputed = "computed"
	ResultCached   = "cached"
	ResultEmpty    = "empty"
	ResultError    = "error"
)

// Registry holds the Prometheus collectors describing the most recently refreshed day.
type Registry struct {
	registry *prometheus.Registry

	OverallScore      prometheus.Gauge
	MeanChangeCount   prometheus.Gauge
	RapidChangeAssets prometheus.Gauge
	TotalAssets       prometheus.Gauge
	DecisionCount     prometheus.Gauge

	AssetScore    *prometheus.GaugeVec
	AssetGapRatio *prometheus.GaugeVec

	RefreshTotal    *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
}

// NewRegistry creates and registers every collector on a private registry.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		OverallScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ciowatch_overall_consistency_score",
			Help: "Overall consistency score (0-100) of the latest refreshed day",
		}),
		MeanChangeCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ciowatch_mean_change_count",
			Help: "Mean number of decisions per asset on the latest refreshed day",
		}),
		RapidChangeAssets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ciowatch_rapid_change_assets",
			Help: "Number of assets flagged for rapid target weight changes",
		}),
		TotalAssets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ciowatch_assets_total",
			Help: "Number of distinct assets with decisions on the latest refreshed day",
		}),
		DecisionCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ciowatch_decisions",
			Help: "Number of decisions in the latest refreshed window",
		}),
		AssetScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ciowatch_asset_consistency_score",
			Help: "Per-asset consistency score (0-100)",
		}, []string{"asset"}),
		AssetGapRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ciowatch_asset_gap_ratio_pct",
			Help: "Per-asset weight gap relative to target, in percent",
		}, []string{"asset", "state"}),
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ciowatch_refresh_total",
			Help: "Refresh cycles by result",
		}, []string{"result"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ciowatch_refresh_duration_seconds",
			Help:    "Duration of refresh cycles in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	r.registry.MustRegister(
		r.OverallScore,
		r.MeanChangeCount,
		r.RapidChangeAssets,
		r.TotalAssets,
		r.DecisionCount,
		r.AssetScore,
		r.AssetGapRatio,
		r.RefreshTotal,
		r.RefreshDuration,
	)
	return r
}

// Observe replaces the day gauges with the values of report.
func (r *Registry) Observe(report analysis.Report) {
	if r == nil {
		return
	}

	r.AssetScore.Reset()
	r.AssetGapRatio.Reset()
	r.DecisionCount.Set(float64(report.DecisionCount))

	for _, gap := range report.WeightGaps {
		r.AssetGapRatio.WithLabelValues(gap.AssetID, string(gap.State)).Set(gap.GapRatio)
	}

	if report.Metrics == nil {
		r.OverallScore.Set(0)
		r.MeanChangeCount.Set(0)
		r.RapidChangeAssets.Set(0)
		r.TotalAssets.Set(0)
		return
	}

	m := report.Metrics
	r.OverallScore.Set(float64(m.OverallScore))
	r.MeanChangeCount.Set(m.MeanChangeCount)
	r.RapidChangeAssets.Set(float64(m.RapidChangeAssetCount))
	r.TotalAssets.Set(float64(m.TotalAssetCount))
	for _, info := range m.PerAsset {
		r.AssetScore.WithLabelValues(info.AssetID).Set(float64(info.ConsistencyScore))
	}
}

// RecordRefresh counts one refresh cycle and its duration.
func (r *Registry) RecordRefresh(result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.RefreshTotal.WithLabelValues(result).Inc()
	r.RefreshDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "ddd"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration  *prom.HistogramVec
	runDuration    prom.Histogram
	stageResults   *prom.CounterVec
	runOutcomes    *prom.CounterVec
	stageBytes     *prom.CounterVec
	lastReduction  prom.Gauge
	triggers       *prom.CounterVec
	filtersSkipped *prom.CounterVec
	busy           prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.ExponentialBuckets(0.05, 2, 14),
		}, []string{"stage"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.ExponentialBuckets(0.05, 2, 14),
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Pipeline runs by final status",
		}, []string{"outcome"}),
		stageBytes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_output_bytes_total",
			Help:      "Captured stage output in bytes, before and after filtering",
		}, []string{"stage", "kind"}),
		lastReduction: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_noise_reduction_percent",
			Help:      "Noise reduction of the most recent run",
		}),
		triggers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Trigger file events by debounce decision",
		}, []string{"decision"}),
		filtersSkipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "filters_skipped_total",
			Help:      "Filters skipped because they were unknown or failed",
		}, []string{"filter"}),
		busy: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "busy",
			Help:      "1 while a pipeline run is in progress",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.runDuration, pr.stageResults, pr.runOutcomes,
		pr.stageBytes, pr.lastReduction, pr.triggers, pr.filtersSkipped, pr.busy)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.runOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddStageBytes(stage string, raw, clean int) {
	if p == nil {
		return
	}
	p.stageBytes.WithLabelValues(stage, "raw").Add(float64(raw))
	p.stageBytes.WithLabelValues(stage, "clean").Add(float64(clean))
}

func (p *PrometheusRecorder) SetLastReduction(pct float64) {
	if p == nil {
		return
	}
	p.lastReduction.Set(pct)
}

func (p *PrometheusRecorder) IncTrigger(accepted bool) {
	if p == nil {
		return
	}
	decision := "debounced"
	if accepted {
		decision = "accepted"
	}
	p.triggers.WithLabelValues(decision).Inc()
}

func (p *PrometheusRecorder) IncFilterSkipped(filter string) {
	if p == nil {
		return
	}
	p.filtersSkipped.WithLabelValues(filter).Inc()
}

func (p *PrometheusRecorder) SetBusy(busy bool) {
	if p == nil {
		return
	}
	v := 0.0
	if busy {
		v = 1
	}
	p.busy.Set(v)
}

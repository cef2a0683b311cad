package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess    ResultLabel = "success"
	ResultFailed     ResultLabel = "failed"
	ResultOverridden ResultLabel = "overridden"
)

// OutcomeLabel enumerates whole-run outcomes.
type OutcomeLabel string

const (
	OutcomeSuccess     OutcomeLabel = "success"
	OutcomeFailed      OutcomeLabel = "failed"
	OutcomeConfigError OutcomeLabel = "config_error"
)

// Recorder defines observability hooks for runs, stages and triggers.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncRunOutcome(outcome OutcomeLabel)
	AddStageBytes(stage string, raw, clean int)
	SetLastReduction(pct float64)
	IncTrigger(accepted bool)
	IncFilterSkipped(filter string)
	SetBusy(busy bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncRunOutcome(OutcomeLabel)                 {}
func (NoopRecorder) AddStageBytes(string, int, int)             {}
func (NoopRecorder) SetLastReduction(float64)                   {}
func (NoopRecorder) IncTrigger(bool)                            {}
func (NoopRecorder) IncFilterSkipped(string)                    {}
func (NoopRecorder) SetBusy(bool)                               {}

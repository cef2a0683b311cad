package pipeline

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/stage"
)

// Metrics summarises how much the filters condensed the output.
type Metrics struct {
	RawBytes     int     `json:"raw_bytes"`
	CleanBytes   int     `json:"clean_bytes"`
	ReductionPct float64 `json:"reduction_pct"`
	EstTokens    int     `json:"est_tokens"`
}

// ComputeMetrics derives the reduction percentage and a rough token count
// (four bytes per token) from byte totals.
func ComputeMetrics(rawBytes, cleanBytes int) Metrics {
	m := Metrics{RawBytes: rawBytes, CleanBytes: cleanBytes, EstTokens: cleanBytes / 4}
	if rawBytes > 0 {
		pct := (1 - float64(cleanBytes)/float64(rawBytes)) * 100
		pct = math.Max(0, math.Min(100, pct))
		m.ReductionPct = math.Round(pct*100) / 100
	}
	return m
}

// StageOutcome is the persisted form of one executed stage.
type StageOutcome struct {
	Name            string   `json:"name"`
	Success         bool     `json:"success"`
	ExitCode        int      `json:"exit_code"`
	RawBytes        int      `json:"raw_bytes"`
	CleanBytes      int      `json:"clean_bytes"`
	DurationSeconds float64  `json:"duration_seconds"`
	Overridden      bool     `json:"overridden,omitempty"`
	SkippedFilters  []string `json:"skipped_filters,omitempty"`
}

func outcomeFrom(r stage.Result) StageOutcome {
	return StageOutcome{
		Name:            r.Name,
		Success:         r.Success,
		ExitCode:        r.ExitCode,
		RawBytes:        r.RawBytes,
		CleanBytes:      r.CleanBytes,
		DurationSeconds: roundSeconds(r.Duration),
		SkippedFilters:  r.SkippedFilters,
	}
}

// Result is the job_result.json artifact.
type Result struct {
	Success         bool           `json:"success"`
	ExitCode        int            `json:"exit_code"`
	DurationSeconds float64        `json:"duration_seconds"`
	Metrics         Metrics        `json:"metrics"`
	RunID           string         `json:"run_id"`
	Target          string         `json:"target"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	Revision        string         `json:"revision,omitempty"`
	Stages          []StageOutcome `json:"stages"`
}

// Stage returns the outcome for name, if that stage ran.
func (r *Result) Stage(name string) (StageOutcome, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageOutcome{}, false
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

// WriteArtifacts persists the result and the plain-text exit code. The JSON
// is replaced atomically so pollers never read a partial document.
func WriteArtifacts(resultPath, exitPath string, res *Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "encode result").Build()
	}
	if err := writeAtomic(resultPath, append(data, '\n')); err != nil {
		return err
	}
	return writeAtomic(exitPath, []byte(strconv.Itoa(res.ExitCode)))
}

// ReadResult loads a previously written job_result.json.
func ReadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.NotFoundError("no run result yet").WithContext("path", path).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read result").WithContext("path", path).Build()
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "decode result").WithContext("path", path).Build()
	}
	return &res, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ferrors.FileSystemError("write artifact").WithCause(err).WithContext("path", path).Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return ferrors.FileSystemError("replace artifact").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}

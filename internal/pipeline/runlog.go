package pipeline

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
)

// runLogs holds the raw and clean transcripts for one run. Both are truncated
// when opened.
type runLogs struct {
	raw   *os.File
	clean *os.File
}

func openRunLogs(rawPath, cleanPath, header string) (*runLogs, error) {
	raw, err := os.OpenFile(rawPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "open raw log").WithContext("path", rawPath).Build()
	}
	clean, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		_ = raw.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "open clean log").WithContext("path", cleanPath).Build()
	}
	logs := &runLogs{raw: raw, clean: clean}
	for _, w := range []io.Writer{raw, clean} {
		if _, err := io.WriteString(w, header); err != nil {
			_ = logs.Close()
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "write log header").Build()
		}
	}
	return logs, nil
}

func (l *runLogs) Close() error {
	err1 := l.raw.Close()
	err2 := l.clean.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func runHeader(runID, target, revision string, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== DDD RUN %s ===\n", at.Format(time.RFC3339))
	fmt.Fprintf(&b, "target: %s\n", target)
	fmt.Fprintf(&b, "run_id: %s\n", runID)
	if revision != "" {
		fmt.Fprintf(&b, "revision: %s\n", revision)
	}
	b.WriteString("\n")
	return b.String()
}

// StatsFooter is appended to the clean log after the last stage.
func StatsFooter(d time.Duration, m Metrics) string {
	var b strings.Builder
	b.WriteString("\n" + strings.Repeat("=", 30) + "\n")
	b.WriteString("📊 Build Stats\n")
	fmt.Fprintf(&b, "⏱ Duration: %.2fs\n", d.Seconds())
	fmt.Fprintf(&b, "📉 Noise Reduction: %.1f%%\n", m.ReductionPct)
	fmt.Fprintf(&b, "🪙 Est. Tokens: %d\n", m.EstTokens)
	return b.String()
}

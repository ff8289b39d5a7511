// Package tracing adapts pkg/condition.Tracer to the process's structured
// logging backend. The condition engine hands the sink exactly one
// pre-formatted line per predicate evaluation; this package is the only
// place that decides where those lines go and at what level.
package tracing

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/edr-filterd/filterd/pkg/condition"
)

// ZerologTracer emits one structured log event per predicate evaluation.
// Successes log at debug level (routine, high-volume); failures log at
// info level, since a failure is the more actionable signal to surface.
type ZerologTracer struct {
	log zerolog.Logger
}

// NewZerologTracer wraps an already-configured logger.
func NewZerologTracer(log zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{log: log.With().Str("component", "condition").Logger()}
}

func (t *ZerologTracer) Trace(line string) {
	ev := t.log.Debug()
	if strings.HasSuffix(line, "Condition Failure") {
		ev = t.log.Info()
	}
	ev.Str("trace", line).Msg("predicate evaluated")
}

var _ condition.Tracer = (*ZerologTracer)(nil)

// SliceTracer captures trace lines in order, for tests and for the
// httpapi's per-request evaluate-with-trace endpoint. Safe for concurrent
// use since a Ruleset may fan predicate evaluation out across goroutines
// in a future revision.
type SliceTracer struct {
	mu    sync.Mutex
	lines []string
}

func (t *SliceTracer) Trace(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
}

// Lines returns a copy of the captured trace lines.
func (t *SliceTracer) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

var _ condition.Tracer = (*SliceTracer)(nil)

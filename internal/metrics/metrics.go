// Package metrics records job-level counters and step timings for an export
// run. The default backend is a no-op, so callers never need to check whether
// metrics are configured.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes collected metrics, if the backend needs it.
	Flush() error
}

// Metric names.
const (
	StepTotal    = "export_step_total"
	StepDuration = "export_step_duration_seconds"
	RecordsTotal = "export_records_total"
)

// Record kinds counted per run.
const (
	KindRead       = "read"
	KindMatched    = "matched"
	KindUnmatched  = "unmatched"
	KindNoUserID   = "no_uid"
	KindDuplicates = "duplicate_rows"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

// Nop returns a backend that records nothing.
func Nop() Backend { return nopBackend{} }

// Recorder wraps a Backend with the export's naming conventions.
type Recorder struct {
	b Backend
}

// NewRecorder returns a Recorder over b; a nil b records nothing.
func NewRecorder(b Backend) *Recorder {
	if b == nil {
		b = nopBackend{}
	}
	return &Recorder{b: b}
}

// Step records the outcome and latency of one pipeline stage.
func (r *Recorder) Step(step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"step": step, "status": status}
	r.b.IncCounter(StepTotal, 1, lbls)
	r.b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// Records adds n to the counter for kind. Zero is ignored.
func (r *Recorder) Records(kind string, n int) {
	if n == 0 {
		return
	}
	r.b.IncCounter(RecordsTotal, float64(n), Labels{"kind": kind})
}

// Flush delegates to the backend.
func (r *Recorder) Flush() error {
	return r.b.Flush()
}

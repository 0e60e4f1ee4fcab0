package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Status is an experiment's position in its lifecycle:
// Pending -> Skipped, or Pending -> Running -> Succeeded | Failed.
type Status int

const (
	StatusPending Status = iota
	StatusSkipped
	StatusRunning
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSkipped:
		return "skipped"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome records what happened to one experiment.
type Outcome struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	// Reason explains a skip.
	Reason string `json:"reason,omitempty"`
	// Overwrote is true when an existing results directory was removed.
	Overwrote bool          `json:"overwrote,omitempty"`
	Failure   *Failure      `json:"failure,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// Report collects the outcome of every experiment in a run.
type Report struct {
	mu       sync.RWMutex
	runID    string
	order    []string
	outcomes map[string]*Outcome
	started  time.Time
	finished time.Time
}

func newReport(runID string, names []string) *Report {
	r := &Report{
		runID:    runID,
		order:    names,
		outcomes: make(map[string]*Outcome, len(names)),
	}
	for _, name := range names {
		r.outcomes[name] = &Outcome{Name: name, Status: StatusPending}
	}
	return r
}

// RunID returns the run identifier.
func (r *Report) RunID() string {
	return r.runID
}

// Outcomes returns a copy of every outcome, in table order.
func (r *Report) Outcomes() []Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Outcome, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.outcomes[name])
	}
	return out
}

// Outcome returns a copy of one experiment's outcome.
func (r *Report) Outcome(name string) (Outcome, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.outcomes[name]
	if !ok {
		return Outcome{}, false
	}
	return *o, true
}

// Count returns how many experiments are in the given status.
func (r *Report) Count(s Status) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, o := range r.outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Done reports whether the run has finished.
func (r *Report) Done() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.finished.IsZero()
}

// Err joins the errors of all failed experiments, or returns nil.
func (r *Report) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for _, name := range r.order {
		if o := r.outcomes[name]; o.Status == StatusFailed {
			errs = append(errs, fmt.Errorf("experiment '%s': %w", name, o.Err))
		}
	}
	return errors.Join(errs...)
}

// Snapshot is a serializable view of the report.
type Snapshot struct {
	RunID    string         `json:"run_id"`
	Started  time.Time      `json:"started"`
	Finished *time.Time     `json:"finished,omitempty"`
	Counts   map[string]int `json:"counts"`
	Outcomes []Outcome      `json:"outcomes"`
}

// Snapshot returns a point-in-time copy of the report.
func (r *Report) Snapshot() Snapshot {
	outcomes := r.Outcomes()

	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Snapshot{
		RunID:    r.runID,
		Started:  r.started,
		Counts:   make(map[string]int),
		Outcomes: outcomes,
	}
	if !r.finished.IsZero() {
		f := r.finished
		s.Finished = &f
	}
	for _, o := range outcomes {
		s.Counts[o.Status.String()]++
	}
	return s
}

func (r *Report) start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = time.Now()
}

func (r *Report) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = time.Now()
}

func (r *Report) skip(name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.outcomes[name]
	o.Status = StatusSkipped
	o.Reason = reason
}

func (r *Report) running(name string, overwrote bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.outcomes[name]
	o.Status = StatusRunning
	o.Overwrote = overwrote
}

func (r *Report) succeed(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.outcomes[name]
	o.Status = StatusSucceeded
	o.Duration = d
}

func (r *Report) fail(name string, err error, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := describe(err)
	o := r.outcomes[name]
	o.Status = StatusFailed
	o.Err = err
	o.Failure = &f
	o.Duration = d
}

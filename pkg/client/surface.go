package client

import (
	"context"
	"encoding/json"
	"sync"
)

// State is the lifecycle position of a Surface.
type State int

const (
	// StateIdle means no job is active. Initial state, and the resting
	// state after every completed, failed, or cancelled cycle.
	StateIdle State = iota
	// StateSubmitting means a submission request is in flight.
	StateSubmitting
	// StatePolling means a job is active and being watched.
	StatePolling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	default:
		return "unknown"
	}
}

// Surface owns one active moderation job at a time, the way a single UI
// panel would. A new submission supersedes and cancels any prior job; the
// terminal outcome of a job is consumed into surface state exactly once.
// After every cycle the surface holds a result or an error, never both.
type Surface struct {
	client *Client

	mu     sync.Mutex
	state  State
	jobID  string
	result json.RawMessage
	err    error
	watch  *Watch
}

// NewSurface creates an idle Surface backed by c.
func NewSurface(c *Client) *Surface {
	return &Surface{client: c}
}

// Submit starts a new job cycle. Any prior active job is cancelled first.
// On submission failure the surface returns to idle with the error stored;
// on success it transitions to polling and the returned job ID is watched
// until terminal.
func (s *Surface) Submit(ctx context.Context, req SubmitRequest) error {
	s.mu.Lock()
	if s.watch != nil {
		s.watch.Cancel()
		s.watch = nil
	}
	s.state = StateSubmitting
	s.jobID = ""
	s.result = nil
	s.err = nil
	s.mu.Unlock()

	jobID, err := s.client.Submit(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateIdle
		s.err = err
		return err
	}

	s.jobID = jobID
	s.state = StatePolling
	s.watch = s.client.Watch(jobID, OnTerminal(func(o Outcome) {
		s.consume(jobID, o)
	}))
	return nil
}

// Cancel stops the active job cycle, if any. No result or error is
// surfaced for a cancelled job.
func (s *Surface) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watch != nil {
		s.watch.Cancel()
		s.watch = nil
	}
	if s.state == StatePolling {
		s.jobID = ""
		s.state = StateIdle
	}
}

// consume applies a terminal outcome to surface state. It is a no-op when
// the job has already been consumed, cancelled, or superseded, which makes
// duplicate and stale deliveries harmless.
func (s *Surface) consume(jobID string, o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePolling || s.jobID != jobID {
		return
	}
	s.jobID = ""
	s.watch = nil
	s.state = StateIdle
	if o.Err != nil {
		s.err = o.Err
		s.result = nil
	} else {
		s.result = o.Result
		s.err = nil
	}
}

// State returns the current lifecycle state.
func (s *Surface) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// JobID returns the active job ID, or "" when no job is active.
func (s *Surface) JobID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobID
}

// Result returns the verdict payload of the last completed cycle, or nil.
func (s *Surface) Result() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the error of the last completed cycle, or nil.
func (s *Surface) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

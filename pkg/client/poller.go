package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Outcome is the terminal event of a watched job: exactly one of Result
// or Err is set.
type Outcome struct {
	Result json.RawMessage
	Err    error
}

// WatchOption configures a single Watch.
type WatchOption func(*Watch)

// OnProgress registers a callback invoked after each non-terminal poll
// with the reported status and progress text.
func OnProgress(fn func(status, progress string)) WatchOption {
	return func(w *Watch) { w.onProgress = fn }
}

// OnTerminal registers a callback invoked exactly once with the terminal
// outcome. It runs on the scheduler's callback path.
func OnTerminal(fn func(Outcome)) WatchOption {
	return func(w *Watch) { w.onTerminal = fn }
}

// Watch polls one job until it reaches a terminal status, the poll budget
// is exhausted, or the watch is cancelled. Delivery is exactly-once: after
// the first terminal outcome (or cancellation) all later poll responses
// are ignored, including ones already in flight.
type Watch struct {
	client *Client
	jobID  string

	onProgress func(status, progress string)
	onTerminal func(Outcome)
	outcome    chan Outcome

	mu        sync.Mutex
	cancelled bool
	delivered bool
	attempts  int
	failures  int
	handle    Handle
}

// Watch starts polling the job with the client's configured interval and
// budget. The first poll fires after one interval.
func (c *Client) Watch(jobID string, opts ...WatchOption) *Watch {
	w := &Watch{
		client:  c,
		jobID:   jobID,
		outcome: make(chan Outcome, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.scheduleNext()
	return w
}

// Cancel stops the watch. Future polls are not scheduled and any in-flight
// response is discarded without effect. Safe to call more than once.
func (w *Watch) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelled = true
	if w.handle != nil {
		w.handle.Stop()
		w.handle = nil
	}
}

// Wait blocks until the terminal outcome or ctx expiry. On a successful job
// it returns the verdict payload; a failed, timed-out, or transport-dead
// watch returns the corresponding Error.
func (w *Watch) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case o := <-w.outcome:
		return o.Result, o.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *Watch) scheduleNext() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelled || w.delivered {
		return
	}
	w.handle = w.client.scheduler.After(w.client.interval, w.poll)
}

func (w *Watch) poll() {
	w.mu.Lock()
	if w.cancelled || w.delivered {
		w.mu.Unlock()
		return
	}
	w.attempts++
	attempt := w.attempts
	w.mu.Unlock()

	st, err := w.client.Status(context.Background(), w.jobID)

	// The cancellation check must come after the request returns so a
	// response already in flight when Cancel ran has no effect.
	w.mu.Lock()
	if w.cancelled || w.delivered {
		w.mu.Unlock()
		return
	}

	if err != nil {
		w.failures++
		if w.failures >= w.client.failureThreshold {
			w.mu.Unlock()
			w.deliver(Outcome{Err: &Error{
				Kind:    KindTransport,
				Message: fmt.Sprintf("polling failed %d times in a row: %v", w.failures, err),
			}})
			return
		}
		w.mu.Unlock()
		// The poll budget binds failed attempts too, so a transient error
		// on the last attempt cannot extend the watch past maxPolls.
		if attempt >= w.client.maxPolls {
			w.deliver(Outcome{Err: &Error{
				Kind:    KindTimeout,
				Message: fmt.Sprintf("no terminal status after %d polls", attempt),
			}})
			return
		}
		w.client.logger.Warn("poll attempt failed, continuing",
			"job_id", w.jobID, "attempt", attempt, "error", err)
		w.scheduleNext()
		return
	}
	w.failures = 0
	w.mu.Unlock()

	switch st.Status {
	case "succeeded":
		w.deliver(Outcome{Result: st.Result})
		return
	case "failed":
		msg := st.Error
		if msg == "" {
			msg = "job failed"
		}
		w.deliver(Outcome{Err: &Error{Kind: KindBackend, Message: msg}})
		return
	}

	// Unrecognized statuses are treated as still running.
	if w.onProgress != nil {
		w.onProgress(st.Status, st.Progress)
	}

	if attempt >= w.client.maxPolls {
		w.deliver(Outcome{Err: &Error{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("no terminal status after %d polls", attempt),
		}})
		return
	}

	w.scheduleNext()
}

// deliver emits the terminal outcome exactly once.
func (w *Watch) deliver(o Outcome) {
	w.mu.Lock()
	if w.cancelled || w.delivered {
		w.mu.Unlock()
		return
	}
	w.delivered = true
	if w.handle != nil {
		w.handle.Stop()
		w.handle = nil
	}
	w.mu.Unlock()

	w.outcome <- o
	if w.onTerminal != nil {
		w.onTerminal(o)
	}
}

// JobStatus is one poll response: the backend-reported status plus, when
// terminal, the verdict payload or error message.
type JobStatus struct {
	Status   string          `json:"status"`
	Progress string          `json:"progress"`
	Result   json.RawMessage `json:"result"`
	Error    string          `json:"error"`
}

// Status fetches the current status of a job once, without polling.
func (c *Client) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	id, err := c.identity.Identity()
	if err != nil {
		return nil, fmt.Errorf("resolving identity: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+c.submitPath+"/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}
	c.setHeaders(req, id)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading status response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status endpoint returned %d: %s",
			resp.StatusCode, serverMessage(raw, "no detail"))
	}

	var st JobStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("malformed status response: %w", err)
	}
	return &st, nil
}

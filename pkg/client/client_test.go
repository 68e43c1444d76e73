package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── fake scheduler ──────────────────────────────────────────────────────────

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() { t.stopped = true }

// fakeScheduler queues callbacks and fires them only when the test says so,
// making the poll loop fully deterministic.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) After(_ time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// fire runs the oldest pending unstopped timer. Returns false when nothing
// was pending.
func (s *fakeScheduler) fire() bool {
	s.mu.Lock()
	var next *fakeTimer
	for len(s.timers) > 0 {
		t := s.timers[0]
		s.timers = s.timers[1:]
		if !t.stopped {
			next = t
			break
		}
	}
	s.mu.Unlock()
	if next == nil {
		return false
	}
	next.fn()
	return true
}

func (s *fakeScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// ─── fake transport ──────────────────────────────────────────────────────────

type fakeDoer struct {
	mu      sync.Mutex
	submits int
	polls   int

	submitFn func() (*http.Response, error)
	pollFn   func(n int) (*http.Response, error)
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	if req.Method == http.MethodPost {
		d.submits++
		fn := d.submitFn
		d.mu.Unlock()
		return fn()
	}
	d.polls++
	n := d.polls
	fn := d.pollFn
	d.mu.Unlock()
	return fn(n)
}

func (d *fakeDoer) totalCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submits + d.polls
}

func (d *fakeDoer) pollCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.polls
}

func jsonResponse(code int, body string) (*http.Response, error) {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}, nil
}

func acceptedJob(jobID string) func() (*http.Response, error) {
	return func() (*http.Response, error) {
		return jsonResponse(http.StatusAccepted, `{"job_id":"`+jobID+`"}`)
	}
}

func newFakeClient(d *fakeDoer, s *fakeScheduler, opts ...Option) *Client {
	base := []Option{WithHTTPClient(d), WithScheduler(s)}
	return New("http://backend.test", Static("user-1", "ct_testkey_123456789"),
		append(base, opts...)...)
}

// ─── submission ──────────────────────────────────────────────────────────────

func TestSubmit_EmptyContent_NoNetworkCalls(t *testing.T) {
	doer := &fakeDoer{}
	c := newFakeClient(doer, &fakeScheduler{})

	_, err := c.Submit(context.Background(), SubmitRequest{Content: "   "})

	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, 0, doer.totalCalls())
}

func TestSubmit_MissingIdentity_NoNetworkCalls(t *testing.T) {
	doer := &fakeDoer{}
	c := New("http://backend.test", Static("", ""),
		WithHTTPClient(doer), WithScheduler(&fakeScheduler{}))

	_, err := c.Submit(context.Background(), SubmitRequest{Content: "valid content"})

	require.Error(t, err)
	assert.Equal(t, KindAuthentication, KindOf(err))
	assert.Equal(t, 0, doer.totalCalls())
}

func TestSubmit_ReturnsJobID(t *testing.T) {
	doer := &fakeDoer{submitFn: acceptedJob("abc123")}
	c := newFakeClient(doer, &fakeScheduler{})

	jobID, err := c.Submit(context.Background(), SubmitRequest{
		Content:  "Great news about our product launch!",
		Language: "en",
	})

	require.NoError(t, err)
	assert.Equal(t, "abc123", jobID)
	assert.Equal(t, 1, doer.totalCalls())
}

func TestSubmit_SendsIdentityHeaders(t *testing.T) {
	var gotAuth, gotUser string
	c := New("http://backend.test", Static("user-9", "ct_key_abcdef"),
		WithScheduler(&fakeScheduler{}),
		WithHTTPClient(doerFunc(func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			gotUser = req.Header.Get("X-User-ID")
			return jsonResponse(http.StatusAccepted, `{"job_id":"j1"}`)
		})))

	_, err := c.Submit(context.Background(), SubmitRequest{Content: "hello"})

	require.NoError(t, err)
	assert.Equal(t, "Bearer ct_key_abcdef", gotAuth)
	assert.Equal(t, "user-9", gotUser)
}

type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestSubmit_RejectionCarriesDetail(t *testing.T) {
	doer := &fakeDoer{submitFn: func() (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"detail":"content must not be empty"}`)
	}}
	c := newFakeClient(doer, &fakeScheduler{})

	_, err := c.Submit(context.Background(), SubmitRequest{Content: "x"})

	require.Error(t, err)
	assert.Equal(t, KindSubmission, KindOf(err))
	assert.Contains(t, err.Error(), "content must not be empty")
}

func TestSubmit_RejectionEnvelopeFallback(t *testing.T) {
	doer := &fakeDoer{submitFn: func() (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"error":{"code":"INVALID_TOKEN","message":"Invalid API key"}}`)
	}}
	c := newFakeClient(doer, &fakeScheduler{})

	_, err := c.Submit(context.Background(), SubmitRequest{Content: "x"})

	require.Error(t, err)
	assert.Equal(t, KindSubmission, KindOf(err))
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestSubmit_MalformedResponse(t *testing.T) {
	doer := &fakeDoer{submitFn: func() (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"unexpected":"shape"}`)
	}}
	c := newFakeClient(doer, &fakeScheduler{})

	_, err := c.Submit(context.Background(), SubmitRequest{Content: "x"})

	require.Error(t, err)
	assert.Equal(t, KindSubmission, KindOf(err))
}

func TestSubmit_NetworkError(t *testing.T) {
	doer := &fakeDoer{submitFn: func() (*http.Response, error) {
		return nil, errors.New("connection refused")
	}}
	c := newFakeClient(doer, &fakeScheduler{})

	_, err := c.Submit(context.Background(), SubmitRequest{Content: "x"})

	require.Error(t, err)
	assert.Equal(t, KindSubmission, KindOf(err))
}

// ─── surface happy path ──────────────────────────────────────────────────────

func TestSurface_HappyPath(t *testing.T) {
	sched := &fakeScheduler{}
	doer := &fakeDoer{
		submitFn: acceptedJob("abc123"),
		pollFn: func(n int) (*http.Response, error) {
			if n < 3 {
				return jsonResponse(http.StatusOK, `{"status":"running","progress":"analyzing content"}`)
			}
			return jsonResponse(http.StatusOK, `{"status":"succeeded","result":{"score":92}}`)
		},
	}
	c := newFakeClient(doer, sched)
	s := NewSurface(c)

	err := s.Submit(context.Background(), SubmitRequest{
		Content:  "Great news about our product launch!",
		Language: "en",
	})
	require.NoError(t, err)
	assert.Equal(t, StatePolling, s.State())
	assert.Equal(t, "abc123", s.JobID())

	for s.State() == StatePolling {
		require.True(t, sched.fire(), "poll loop stalled before terminal state")
	}

	assert.Equal(t, StateIdle, s.State())
	assert.JSONEq(t, `{"score":92}`, string(s.Result()))
	assert.NoError(t, s.Err())
	assert.Empty(t, s.JobID())
	assert.Equal(t, 3, doer.pollCount())
	assert.Equal(t, 0, sched.pending())
}

func TestSurface_BackendFailure(t *testing.T) {
	sched := &fakeScheduler{}
	doer := &fakeDoer{
		submitFn: acceptedJob("abc123"),
		pollFn: func(_ int) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"status":"failed","error":"policy engine unavailable"}`)
		},
	}
	c := newFakeClient(doer, sched)
	s := NewSurface(c)

	require.NoError(t, s.Submit(context.Background(), SubmitRequest{Content: "valid"}))
	require.True(t, sched.fire())

	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.Result())
	require.Error(t, s.Err())
	assert.Equal(t, KindBackend, KindOf(s.Err()))
	assert.Contains(t, s.Err().Error(), "policy engine unavailable")
}

func TestSurface_SubmissionError_ReturnsToIdle(t *testing.T) {
	doer := &fakeDoer{submitFn: func() (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, `{"detail":"moderation queue is full, retry later"}`)
	}}
	c := newFakeClient(doer, &fakeScheduler{})
	s := NewSurface(c)

	err := s.Submit(context.Background(), SubmitRequest{Content: "valid"})

	require.Error(t, err)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, KindSubmission, KindOf(s.Err()))
	assert.Nil(t, s.Result())
}

// ─── timeout ─────────────────────────────────────────────────────────────────

func TestWatch_TimeoutAfterExactlyNPolls(t *testing.T) {
	const maxPolls = 5
	sched := &fakeScheduler{}
	doer := &fakeDoer{
		submitFn: acceptedJob("abc123"),
		pollFn: func(_ int) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"status":"running"}`)
		},
	}
	c := newFakeClient(doer, sched, WithMaxPolls(maxPolls))
	s := NewSurface(c)

	require.NoError(t, s.Submit(context.Background(), SubmitRequest{Content: "valid"}))

	fired := 0
	for sched.fire() {
		fired++
	}

	assert.Equal(t, maxPolls, fired)
	assert.Equal(t, maxPolls, doer.pollCount())
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, KindTimeout, KindOf(s.Err()))
}

func TestWatch_TransientFailureOnLastPollStillTimesOut(t *testing.T) {
	// A transient failure on the final budgeted attempt must not buy the
	// watch extra polls; the budget binds failed attempts too.
	const maxPolls = 4
	sched := &fakeScheduler{}
	doer := &fakeDoer{
		submitFn: acceptedJob("abc123"),
		pollFn: func(n int) (*http.Response, error) {
			if n == maxPolls {
				return nil, errors.New("connection reset")
			}
			return jsonResponse(http.StatusOK, `{"status":"running"}`)
		},
	}
	c := newFakeClient(doer, sched, WithMaxPolls(maxPolls))
	s := NewSurface(c)

	require.NoError(t, s.Submit(context.Background(), SubmitRequest{Content: "valid"}))

	fired := 0
	for sched.fire() {
		fired++
	}

	assert.Equal(t, maxPolls, fired)
	assert.Equal(t, maxPolls, doer.pollCount())
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, KindTimeout, KindOf(s.Err()))
}

// ─── transport failures ──────────────────────────────────────────────────────

func TestWatch_SingleTransientFailureContinues(t *testing.T) {
	sched := &fakeScheduler{}
	doer := &fakeDoer{
		submitFn: acceptedJob("abc123"),
		pollFn: func(n int) (*http.Response, error) {
			if n == 1 {
				return nil, errors.New("connection reset")
			}
			return jsonResponse(http.StatusOK, `{"status":"succeeded","result":{"score":88}}`)
		},
	}
	c := newFakeClient(doer, sched)
	s := NewSurface(c)

	require.NoError(t, s.Submit(context.Background(), SubmitRequest{Content: "valid"}))
	require.True(t, sched.fire()) // fails, loop continues
	require.True(t, sched.fire()) // succeeds

	assert.Equal(t, StateIdle, s.State())
	assert.JSONEq(t, `{"score":88}`, string(s.Result()))
	assert.NoError(t, s.Err())
}

func TestWatch_ConsecutiveFailuresExhaustTransport(t *testing.T) {
	sched := &fakeScheduler{}
	doer := &fakeDoer{
		submitFn: acceptedJob("abc123"),
		pollFn: func(_ int) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
	}
	c := newFakeClient(doer, sched, WithFailureThreshold(3))
	s := NewSurface(c)

	require.NoError(t, s.Submit(context.Background(), SubmitRequest{Content: "valid"}))

	fired := 0
	for sched.fire() {
		fired++
	}

	assert.Equal(t, 3, fired)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, KindTransport, KindOf(s.Err()))
}

func TestWatch_FailureCountResetsOnSuccess(t *testing.T) {
	sched := &fakeScheduler{}
	doer := &fakeDoer{
		submitFn: acceptedJob("abc123"),
		pollFn: func(n int) (*http.Response, error) {
			// Two failures, a success, two more failures: never three in a row
			switch n {
			case 1, 2, 4, 5:
				return nil, errors.New("flaky network")
			case 3:
				return jsonResponse(http.StatusOK, `{"status":"running"}`)
			default:
				return jsonResponse(http.StatusOK, `{"status":"succeeded","result":{"score":75}}`)
			}
		},
	}
	c := newFakeClient(doer, sched, WithFailureThreshold(3))
	s := NewSurface(c)

	require.NoError(t, s.Submit(context.Background(), SubmitRequest{Content: "valid"}))
	for s.State() == StatePolling {
		require.True(t, sched.fire())
	}

	assert.NoError(t, s.Err())
	assert.JSONEq(t, `{"score":75}`, string(s.Result()))
}

// ─── cancellation ────────────────────────────────────────────────────────────

func TestSurface_CancelStopsPolling(t *testing.T) {
	sched := &fakeScheduler{}
	doer := &fakeDoer{
		submitFn: acceptedJob("abc123"),
		pollFn: func(_ int) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"status":"running"}`)
		},
	}
	c := newFakeClient(doer, sched)
	s := NewSurface(c)

	require.NoError(t, s.Submit(context.Background(), SubmitRequest{Content: "valid"}))
	require.True(t, sched.fire())
	s.Cancel()

	assert.Equal(t, StateIdle, s.State())
	assert.False(t, sched.fire(), "no poll may run after cancel")
	assert.Nil(t, s.Result())
	assert.NoError(t, s.Err())
}

func TestSurface_CancelSuppressesInFlightResponse(t *testing.T) {
	sched := &fakeScheduler{}
	var s *Surface
	doer := &fakeDoer{
		submitFn: acceptedJob("abc123"),
		pollFn: func(_ int) (*http.Response, error) {
			// Cancel lands while this response is in flight; its terminal
			// payload must not reach surface state.
			s.Cancel()
			return jsonResponse(http.StatusOK, `{"status":"succeeded","result":{"score":99}}`)
		},
	}
	c := newFakeClient(doer, sched)
	s = NewSurface(c)

	require.NoError(t, s.Submit(context.Background(), SubmitRequest{Content: "valid"}))
	sched.fire()

	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.Result())
	assert.NoError(t, s.Err())
}

func TestSurface_NewSubmissionSupersedesOldJob(t *testing.T) {
	sched := &fakeScheduler{}
	jobCounter := 0
	doer := &fakeDoer{
		pollFn: func(_ int) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"status":"succeeded","result":{"job":"second"}}`)
		},
	}
	doer.submitFn = func() (*http.Response, error) {
		jobCounter++
		if jobCounter == 1 {
			return jsonResponse(http.StatusAccepted, `{"job_id":"job-one"}`)
		}
		return jsonResponse(http.StatusAccepted, `{"job_id":"job-two"}`)
	}
	c := newFakeClient(doer, sched)
	s := NewSurface(c)

	require.NoError(t, s.Submit(context.Background(), SubmitRequest{Content: "first"}))
	require.NoError(t, s.Submit(context.Background(), SubmitRequest{Content: "second"}))
	assert.Equal(t, "job-two", s.JobID())

	for s.State() == StatePolling {
		require.True(t, sched.fire())
	}

	// Only the second job's polls ran; the first watch was cancelled.
	assert.Equal(t, 1, doer.pollCount())
	assert.JSONEq(t, `{"job":"second"}`, string(s.Result()))
}

// ─── consume-once idempotence ────────────────────────────────────────────────

func TestSurface_ConsumeIsIdempotent(t *testing.T) {
	c := newFakeClient(&fakeDoer{}, &fakeScheduler{})
	s := NewSurface(c)
	s.state = StatePolling
	s.jobID = "job-1"

	s.consume("job-1", Outcome{Result: json.RawMessage(`{"score":92}`)})
	assert.JSONEq(t, `{"score":92}`, string(s.Result()))
	assert.Equal(t, StateIdle, s.State())

	// A duplicate delivery of the same terminal event is a no-op.
	s.consume("job-1", Outcome{Err: &Error{Kind: KindBackend, Message: "late duplicate"}})
	assert.JSONEq(t, `{"score":92}`, string(s.Result()))
	assert.NoError(t, s.Err())
}

func TestSurface_StaleJobOutcomeIgnored(t *testing.T) {
	c := newFakeClient(&fakeDoer{}, &fakeScheduler{})
	s := NewSurface(c)
	s.state = StatePolling
	s.jobID = "job-two"

	// Outcome for a superseded job id must not touch state.
	s.consume("job-one", Outcome{Result: json.RawMessage(`{"score":10}`)})

	assert.Equal(t, StatePolling, s.State())
	assert.Nil(t, s.Result())
}

// ─── unknown status ──────────────────────────────────────────────────────────

func TestWatch_UnknownStatusTreatedAsRunning(t *testing.T) {
	sched := &fakeScheduler{}
	var stages []string
	doer := &fakeDoer{
		submitFn: acceptedJob("abc123"),
		pollFn: func(n int) (*http.Response, error) {
			if n == 1 {
				return jsonResponse(http.StatusOK, `{"status":"reticulating","progress":"stage one"}`)
			}
			return jsonResponse(http.StatusOK, `{"status":"succeeded","result":{"score":50}}`)
		},
	}
	c := newFakeClient(doer, sched)

	jobID, err := c.Submit(context.Background(), SubmitRequest{Content: "valid"})
	require.NoError(t, err)

	w := c.Watch(jobID, OnProgress(func(status, progress string) {
		stages = append(stages, status+"/"+progress)
	}))
	require.True(t, sched.fire())
	require.True(t, sched.fire())

	result, werr := w.Wait(context.Background())
	require.NoError(t, werr)
	assert.JSONEq(t, `{"score":50}`, string(result))
	assert.Equal(t, []string{"reticulating/stage one"}, stages)
}

// ─── blocking convenience path ───────────────────────────────────────────────

func TestModerate_Blocking(t *testing.T) {
	doer := &fakeDoer{
		submitFn: acceptedJob("abc123"),
		pollFn: func(n int) (*http.Response, error) {
			if n < 2 {
				return jsonResponse(http.StatusOK, `{"status":"running"}`)
			}
			return jsonResponse(http.StatusOK, `{"status":"succeeded","result":{"score":64}}`)
		},
	}
	// Real timer scheduler with a short interval
	c := New("http://backend.test", Static("user-1", "ct_key"),
		WithHTTPClient(doer), WithInterval(time.Millisecond))

	result, err := c.Moderate(context.Background(), SubmitRequest{Content: "valid"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"score":64}`, string(result))
}

func TestModerate_ContextCancelled(t *testing.T) {
	doer := &fakeDoer{
		submitFn: acceptedJob("abc123"),
		pollFn: func(_ int) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"status":"running"}`)
		},
	}
	c := New("http://backend.test", Static("user-1", "ct_key"),
		WithHTTPClient(doer), WithInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Moderate(ctx, SubmitRequest{Content: "valid"})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ─── error taxonomy ──────────────────────────────────────────────────────────

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTimeout, KindOf(&Error{Kind: KindTimeout, Message: "x"}))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestError_MessageFormat(t *testing.T) {
	err := &Error{Kind: KindValidation, Message: "content must not be empty"}
	assert.True(t, strings.HasPrefix(err.Error(), "validation: "))
}

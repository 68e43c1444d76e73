// Package client is the Go SDK for the Contentry moderation API. It submits
// content for asynchronous analysis and polls job status until a terminal
// verdict, with injectable HTTP transport and scheduling for deterministic
// tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultSubmitPath = "/api/v1/moderate"
	defaultInterval   = 2 * time.Second
	defaultMaxPolls   = 150
	defaultFailures   = 3
)

// Doer issues a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the moderation API.
type Client struct {
	baseURL    string
	submitPath string

	httpClient Doer
	scheduler  Scheduler
	identity   IdentitySource
	logger     *slog.Logger

	interval         time.Duration
	maxPolls         int
	failureThreshold int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP transport.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.httpClient = d }
}

// WithScheduler replaces the poll scheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *Client) { c.scheduler = s }
}

// WithInterval sets the delay between status polls.
func WithInterval(d time.Duration) Option {
	return func(c *Client) { c.interval = d }
}

// WithMaxPolls caps how many status polls are issued before the watch
// fails with a timeout error.
func WithMaxPolls(n int) Option {
	return func(c *Client) { c.maxPolls = n }
}

// WithFailureThreshold sets how many consecutive transport failures are
// tolerated during polling before giving up.
func WithFailureThreshold(n int) Option {
	return func(c *Client) { c.failureThreshold = n }
}

// WithLogger sets the logger used for transient poll failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSubmitPath overrides the job-creation endpoint path. The status
// endpoint is derived as submitPath + "/{jobID}".
func WithSubmitPath(p string) Option {
	return func(c *Client) { c.submitPath = p }
}

// New creates a Client for the API at baseURL. Identity supplies the user
// record attached to every submission.
func New(baseURL string, identity IdentitySource, opts ...Option) *Client {
	c := &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		submitPath:       defaultSubmitPath,
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		scheduler:        NewTimerScheduler(),
		identity:         identity,
		logger:           slog.Default(),
		interval:         defaultInterval,
		maxPolls:         defaultMaxPolls,
		failureThreshold: defaultFailures,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitRequest is the payload for a moderation submission.
type SubmitRequest struct {
	Content         string
	Language        string
	ProfileID       string
	PlatformContext string
}

// Submit validates the request, resolves the user identity, and creates a
// moderation job. It returns the backend-assigned job ID. Validation and
// identity failures are reported before any network call is made.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if strings.TrimSpace(req.Content) == "" {
		return "", &Error{Kind: KindValidation, Message: "content must not be empty"}
	}

	id, err := c.identity.Identity()
	if err != nil || id.UserID == "" {
		return "", &Error{Kind: KindAuthentication, Message: "no user identity available"}
	}

	body := map[string]string{
		"content": req.Content,
	}
	if req.Language != "" {
		body["language"] = req.Language
	}
	if req.ProfileID != "" {
		body["profile_id"] = req.ProfileID
	}
	if req.PlatformContext != "" {
		body["platform_context"] = req.PlatformContext
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", &Error{Kind: KindSubmission, Message: "encoding request: " + err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+c.submitPath, bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: KindSubmission, Message: "building request: " + err.Error()}
	}
	c.setHeaders(httpReq, id)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &Error{Kind: KindSubmission, Message: "submission request failed: " + err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindSubmission, Message: "reading response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Kind: KindSubmission, Message: serverMessage(raw,
			fmt.Sprintf("submission rejected with status %d", resp.StatusCode))}
	}

	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.JobID == "" {
		return "", &Error{Kind: KindSubmission, Message: "malformed submission response"}
	}

	return out.JobID, nil
}

func (c *Client) setHeaders(req *http.Request, id Identity) {
	if id.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+id.APIKey)
	}
	req.Header.Set("X-User-ID", id.UserID)
}

// serverMessage extracts a human-readable error from a server body.
// It prefers the flat {"detail": ...} shape and falls back to the
// envelope {"error": {"message": ...}}.
func serverMessage(raw []byte, fallback string) string {
	var flat struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil && flat.Detail != "" {
		return flat.Detail
	}
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return fallback
}

// Moderate is the blocking convenience path: submit content, watch the job,
// and return the verdict payload once the job succeeds. The watch is
// cancelled if ctx expires first.
func (c *Client) Moderate(ctx context.Context, req SubmitRequest) (json.RawMessage, error) {
	jobID, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	w := c.Watch(jobID)
	defer w.Cancel()

	return w.Wait(ctx)
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matthewjhunter/visiondeck/internal/enhance"
	"github.com/tidwall/gjson"
)

const (
	configPath = "/config"
	userAgent  = "visiondeck/1.0"

	// maxErrBody caps how much of a failed response body ends up in an error.
	maxErrBody = 4096
)

// Options tunes a Client. The zero value means one attempt and no timeout.
type Options struct {
	HTTPClient *http.Client

	// RequestTimeout bounds each request. Zero leaves requests unbounded.
	RequestTimeout time.Duration

	// Attempts is the number of tries per PushConfig. Values below 1 mean 1.
	// FetchConfig always makes a single attempt.
	Attempts int
	// Backoff is the pause between attempts.
	Backoff time.Duration
}

// Client talks to the backend's configuration resource.
type Client struct {
	baseURL  string
	client   *http.Client
	timeout  time.Duration
	attempts int
	backoff  time.Duration
}

// NewClient creates a client for the backend at baseURL (scheme and host,
// optionally a path prefix).
func NewClient(baseURL string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   hc,
		timeout:  opts.RequestTimeout,
		attempts: attempts,
		backoff:  opts.Backoff,
	}
}

// BaseURL returns the backend origin the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchConfig reads the backend's current configuration. It is never
// retried; a failed load leaves the caller on its defaults.
func (c *Client) FetchConfig(ctx context.Context) (enhance.Config, error) {
	url := c.baseURL + configPath

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return enhance.Config{}, &FetchError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return enhance.Config{}, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return enhance.Config{}, &FetchError{URL: url, Status: resp.StatusCode, Err: errorBody(resp)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return enhance.Config{}, &FetchError{URL: url, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	cfg, err := decodeConfig(body)
	if err != nil {
		return enhance.Config{}, &FetchError{URL: url, Status: resp.StatusCode, Err: err}
	}
	return cfg, nil
}

// PushConfig writes the full configuration to the backend. The response body
// is ignored; only the transport outcome and status code matter.
func (c *Client) PushConfig(ctx context.Context, cfg enhance.Config) error {
	url := c.baseURL + configPath
	if err := cfg.Validate(); err != nil {
		return &PushError{URL: url, Err: err}
	}
	body, err := json.Marshal(cfg)
	if err != nil {
		return &PushError{URL: url, Err: fmt.Errorf("marshal config: %w", err)}
	}
	requestID := uuid.NewString()

	return c.retry(ctx, func() error {
		return c.pushOnce(ctx, url, requestID, body)
	})
}

func (c *Client) pushOnce(ctx context.Context, url, requestID string, body []byte) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &PushError{URL: url, RequestID: requestID, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return &PushError{URL: url, RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &PushError{URL: url, RequestID: requestID, Status: resp.StatusCode, Err: errorBody(resp)}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// retry runs a push up to c.attempts times, stopping early on success or when ctx ends.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == c.attempts || ctx.Err() != nil {
			break
		}
		log.Printf("remote: warning: push attempt %d/%d failed: %v", attempt, c.attempts, err)
		if c.backoff > 0 {
			timer := time.NewTimer(c.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
	}
	return err
}

// decodeConfig checks the body has exactly the expected field types before
// decoding, so a partial or mistyped document is treated as malformed rather
// than silently zero-filled.
func decodeConfig(body []byte) (enhance.Config, error) {
	if !gjson.ValidBytes(body) {
		return enhance.Config{}, fmt.Errorf("malformed config body: invalid JSON")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return enhance.Config{}, fmt.Errorf("malformed config body: expected object, got %s", doc.Type)
	}

	checks := []struct {
		field string
		ok    func(gjson.Result) bool
		want  string
	}{
		{"clahe", isBool, "boolean"},
		{"unsharp_amount", isNumber, "number"},
		{"denoise", isBool, "boolean"},
		{"source", isString, "string"},
	}
	for _, chk := range checks {
		v := doc.Get(chk.field)
		if !v.Exists() {
			return enhance.Config{}, fmt.Errorf("malformed config body: missing %q", chk.field)
		}
		if !chk.ok(v) {
			return enhance.Config{}, fmt.Errorf("malformed config body: %q is %s, want %s", chk.field, v.Type, chk.want)
		}
	}

	var cfg enhance.Config
	if err := json.Unmarshal(body, &cfg); err != nil {
		return enhance.Config{}, fmt.Errorf("malformed config body: %w", err)
	}
	return cfg, nil
}

func isBool(r gjson.Result) bool   { return r.Type == gjson.True || r.Type == gjson.False }
func isNumber(r gjson.Result) bool { return r.Type == gjson.Number }
func isString(r gjson.Result) bool { return r.Type == gjson.String }

func errorBody(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		return fmt.Errorf("%s", resp.Status)
	}
	return fmt.Errorf("%s: %s", resp.Status, msg)
}

package feed

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

const (
	feedPath = "/video_feed"

	// Placeholder is shown in place of the viewport while no stream is available.
	Placeholder = "Waiting for video stream... (ensure the backend is running)"
)

// UnavailableError reports that the live image resource could not be
// rendered. It is shown as a placeholder, never as a hard failure.
type UnavailableError struct {
	URL    string
	Status int // 0 when no response was received
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("feed %s unavailable: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("feed %s unavailable: %v", e.URL, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Relay passes the backend's continuous image resource through to a browser
// unchanged. It does not interpret frame boundaries and never retries; the
// browser reconnects by reloading the viewport.
type Relay struct {
	url    string
	client *http.Client
}

// NewRelay creates a relay for the backend at baseURL. client may be nil.
// The client should not carry an overall Timeout since streams are unbounded.
func NewRelay(baseURL string, client *http.Client) *Relay {
	if client == nil {
		client = &http.Client{}
	}
	return &Relay{
		url:    strings.TrimRight(baseURL, "/") + feedPath,
		client: client,
	}
}

// URL returns the upstream stream address.
func (r *Relay) URL() string {
	return r.url
}

// open starts the upstream stream. The caller closes the body.
func (r *Relay) open(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, &UnavailableError{URL: r.url, Err: err}
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &UnavailableError{URL: r.url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &UnavailableError{URL: r.url, Status: resp.StatusCode}
	}
	return resp, nil
}

// Probe checks that the stream answers. Only the response headers are read.
func (r *Relay) Probe(ctx context.Context) (contentType string, err error) {
	resp, err := r.open(ctx)
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	return resp.Header.Get("Content-Type"), nil
}

// ServeHTTP streams the upstream resource to w until either side goes away.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	resp, err := r.open(req.Context())
	if err != nil {
		log.Printf("feed: warning: %v", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, Placeholder)
		return
	}
	defer resp.Body.Close()

	for _, h := range []string{"Content-Type", "Content-Length"} {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(flushWriter{w: w, rc: http.NewResponseController(w)}, resp.Body)
	if err != nil && req.Context().Err() == nil {
		log.Printf("feed: warning: stream ended after %d bytes: %v", n, err)
	}
}

// flushWriter pushes each chunk to the client as soon as it is written.
type flushWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err == nil {
		f.rc.Flush()
	}
	return n, err
}

package main

import (
	"context"
	"log"
	"sync"
	"time"
)

// feedProber is the part of the feed relay the monitor needs.
type feedProber interface {
	URL() string
	Probe(ctx context.Context) (contentType string, err error)
}

// feedMonitor runs a background live feed health check and remembers the
// latest result.
type feedMonitor struct {
	feed     feedProber
	interval time.Duration

	mu     sync.Mutex
	status feedStatusOutput
	seen   bool
}

func newFeedMonitor(feed feedProber, interval time.Duration) *feedMonitor {
	return &feedMonitor{feed: feed, interval: interval}
}

// start launches the background loop. It checks immediately, then on each
// tick of the configured interval, until ctx ends.
func (m *feedMonitor) start(ctx context.Context) {
	go m.loop(ctx)
	log.Printf("monitor: started (interval=%s)", m.interval)
}

// check runs one probe, records it, and logs availability changes.
func (m *feedMonitor) check(ctx context.Context) feedStatusOutput {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()
	st := probeFeed(probeCtx, m.feed)

	m.mu.Lock()
	changed := !m.seen || m.status.Available != st.Available
	m.status = st
	m.seen = true
	m.mu.Unlock()

	if changed {
		if st.Available {
			log.Printf("monitor: live feed %s is streaming (%s)", st.URL, st.ContentType)
		} else {
			log.Printf("monitor: warning: live feed %s unavailable: %s", st.URL, st.Error)
		}
	}
	return st
}

// last returns the most recent result, if any check has completed.
func (m *feedMonitor) last() (feedStatusOutput, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.seen
}

func (m *feedMonitor) loop(ctx context.Context) {
	m.check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("monitor: stopped")
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func probeFeed(ctx context.Context, feed feedProber) feedStatusOutput {
	st := feedStatusOutput{URL: feed.URL(), CheckedAt: time.Now().UTC().Format(time.RFC3339)}
	contentType, err := feed.Probe(ctx)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Available = true
	st.ContentType = contentType
	return st
}

package visiondeck

import (
	"context"
	"log"

	"github.com/matthewjhunter/visiondeck/internal/feed"
	"github.com/matthewjhunter/visiondeck/internal/panel"
	"github.com/matthewjhunter/visiondeck/internal/remote"
	"github.com/matthewjhunter/visiondeck/internal/store"
)

// Session is one operator session against a backend. It owns the only
// EnhancementConfig the session reads and writes, the control panel that
// edits it, and the relay for the live feed.
type Session struct {
	client *remote.Client
	store  *store.Store
	panel  *panel.Panel
	relay  *feed.Relay
}

// NewSession wires the backend client, config store, control panel, and feed
// relay. Nothing touches the network until Start.
func NewSession(cfg SessionConfig) *Session {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	client := remote.NewClient(cfg.BaseURL, remote.Options{
		HTTPClient:     cfg.HTTPClient,
		RequestTimeout: cfg.RequestTimeout,
		Attempts:       cfg.PushAttempts,
		Backoff:        cfg.PushBackoff,
	})
	st := store.New(client)

	return &Session{
		client: client,
		store:  st,
		panel:  panel.New(st),
		relay:  feed.NewRelay(cfg.BaseURL, cfg.HTTPClient),
	}
}

// Start performs the one-time initial load. A failed load leaves the
// defaults in place; the error is returned so callers can report it, but the
// session stays usable.
func (s *Session) Start(ctx context.Context) error {
	if err := s.store.Initialize(ctx); err != nil {
		return err
	}
	log.Printf("visiondeck: session ready against %s", s.client.BaseURL())
	return nil
}

// Config returns the current configuration.
func (s *Session) Config() EnhancementConfig {
	return s.store.Current()
}

// Apply merges u into the configuration and writes the result through to the
// backend in the background.
func (s *Session) Apply(u Update) EnhancementConfig {
	return s.store.Apply(u)
}

// Subscribe registers fn for every configuration change. The returned func
// unsubscribes.
func (s *Session) Subscribe(fn func(EnhancementConfig)) func() {
	return s.store.Subscribe(fn)
}

// Stats reports sync progress.
func (s *Session) Stats() SyncStats {
	return s.store.Stats()
}

// Panel returns the control panel bound to this session's store.
func (s *Session) Panel() *panel.Panel {
	return s.panel
}

// Feed returns the live feed relay.
func (s *Session) Feed() *feed.Relay {
	return s.relay
}

// BaseURL returns the backend origin.
func (s *Session) BaseURL() string {
	return s.client.BaseURL()
}

// Wait blocks until no push is in flight.
func (s *Session) Wait() {
	s.store.Wait()
}

// WaitContext is Wait bounded by ctx.
func (s *Session) WaitContext(ctx context.Context) error {
	return s.store.WaitContext(ctx)
}

// Close ends the session. Pushes still in flight are abandoned.
func (s *Session) Close() {
	s.store.Close()
}

package store

import (
	"context"
	"log"
	"sync"

	"github.com/matthewjhunter/visiondeck/internal/enhance"
)

// Remote is the backend the store synchronizes with.
type Remote interface {
	FetchConfig(ctx context.Context) (enhance.Config, error)
	PushConfig(ctx context.Context, cfg enhance.Config) error
}

// Stats is a diagnostic snapshot of the store's synchronization state.
type Stats struct {
	Revision        uint64 `json:"revision"`
	Loaded          bool   `json:"loaded"`
	LoadError       string `json:"load_error,omitempty"`
	PushesIssued    int    `json:"pushes_issued"`
	PushesSucceeded int    `json:"pushes_succeeded"`
	PushesFailed    int    `json:"pushes_failed"`
	PushesAbandoned int    `json:"pushes_abandoned"`
	LastPushError   string `json:"last_push_error,omitempty"`
}

// Store owns the session's single enhancement configuration. Every read and
// write goes through it. Local changes are applied immediately and written
// through to the backend in the background; backend failures never roll a
// local change back.
type Store struct {
	remote Remote

	mu          sync.Mutex
	current     enhance.Config
	initStarted bool
	closed      bool
	listeners   map[int]func(enhance.Config)
	nextID      int
	stats       Stats

	// pending counts unsettled pushes; idle is closed whenever it is zero.
	pending int
	idle    chan struct{}

	// publishSeq numbers changes under mu. Delivery happens after mu is
	// released, in publishSeq order, tracked by delivered under notifyMu.
	publishSeq uint64
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	delivered  uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a store holding the client-side default configuration.
func New(remote Remote) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	s := &Store{
		remote:    remote,
		current:   enhance.Default(),
		listeners: make(map[int]func(enhance.Config)),
		idle:      idle,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.notifyCond = sync.NewCond(&s.notifyMu)
	return s
}

// Current returns the live configuration.
func (s *Store) Current() enhance.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Stats returns a snapshot of sync counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Subscribe registers fn to be called with every new configuration value.
// Callbacks run on the goroutine that made the change, one change at a time
// and in change order. They may read the store but must not call Apply. The
// returned func removes the subscription.
func (s *Store) Subscribe(fn func(enhance.Config)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Initialize loads the backend's configuration once per session and adopts
// it wholesale, replacing whatever the store holds. On failure the current
// value is kept and the error is logged and returned for diagnostics; there
// is no retry. Calls after the first are no-ops.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initStarted {
		s.mu.Unlock()
		return nil
	}
	s.initStarted = true
	s.mu.Unlock()

	cfg, err := s.remote.FetchConfig(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		log.Printf("store: session closed during initial load, result dropped")
		return nil
	}
	if err != nil {
		s.stats.LoadError = err.Error()
		kept := s.current
		s.mu.Unlock()
		log.Printf("store: warning: initial config load failed, keeping %v: %v", kept, err)
		return err
	}
	s.current = cfg
	s.stats.Revision++
	s.stats.Loaded = true
	s.stats.LoadError = ""
	rev := s.stats.Revision
	s.publishLocked(cfg)

	log.Printf("store: loaded backend config rev %d: %v", rev, cfg)
	return nil
}

// Apply merges p over the current value, makes the result visible to readers
// and subscribers, then pushes the full merged value to the backend in the
// background. It returns the new value without waiting on the network.
//
// Successive calls compose in call order. Their pushes are independent and
// may reach the backend in any order.
func (s *Store) Apply(p enhance.Partial) enhance.Config {
	s.mu.Lock()
	next := enhance.Merge(s.current, p)
	s.current = next
	s.stats.Revision++
	rev := s.stats.Revision
	closed := s.closed
	if !closed {
		s.stats.PushesIssued++
		if s.pending == 0 {
			s.idle = make(chan struct{})
		}
		s.pending++
	}
	s.publishLocked(next)

	if closed {
		log.Printf("store: rev %d applied after close, not pushed", rev)
		return next
	}

	go s.push(rev, next)
	return next
}

// publishLocked hands cfg to subscribers. Called with s.mu held; releases it
// before any callback runs, so callbacks can read the store.
func (s *Store) publishLocked(cfg enhance.Config) {
	fns := make([]func(enhance.Config), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.publishSeq++
	seq := s.publishSeq
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for s.delivered != seq-1 {
		s.notifyCond.Wait()
	}
	defer func() {
		s.delivered = seq
		s.notifyCond.Broadcast()
	}()
	for _, fn := range fns {
		fn(cfg)
	}
}

func (s *Store) push(rev uint64, cfg enhance.Config) {
	err := s.remote.PushConfig(s.ctx, cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
	switch {
	case err == nil:
		s.stats.PushesSucceeded++
	case s.ctx.Err() != nil:
		s.stats.PushesAbandoned++
		log.Printf("store: warning: push rev %d abandoned: %v", rev, err)
	default:
		s.stats.PushesFailed++
		s.stats.LastPushError = err.Error()
		log.Printf("store: warning: push rev %d failed, keeping local value: %v", rev, err)
	}
}

// Wait blocks until no push is in flight. Applies made while waiting extend
// the wait.
func (s *Store) Wait() {
	s.WaitContext(context.Background())
}

// WaitContext is Wait bounded by ctx. It returns ctx.Err() if ctx ends first.
func (s *Store) WaitContext(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.pending == 0 {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close ends the session. In-flight pushes are abandoned; the local value is
// left as it is.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matthewjhunter/visiondeck/internal/enhance"
)

// mockRemote records pushes and returns programmed results.
type mockRemote struct {
	mu sync.Mutex

	fetchCfg enhance.Config
	fetchErr error
	fetches  int

	pushErr error
	pushes  []enhance.Config

	// block, when non-nil, makes PushConfig wait for it to close or for ctx.
	block chan struct{}
	// fetchGate, when non-nil, makes FetchConfig wait for it to close.
	fetchGate chan struct{}
}

func (m *mockRemote) FetchConfig(ctx context.Context) (enhance.Config, error) {
	if m.fetchGate != nil {
		<-m.fetchGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	return m.fetchCfg, m.fetchErr
}

func (m *mockRemote) PushConfig(ctx context.Context, cfg enhance.Config) error {
	m.mu.Lock()
	m.pushes = append(m.pushes, cfg)
	block := m.block
	err := m.pushErr
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *mockRemote) pushed() []enhance.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]enhance.Config(nil), m.pushes...)
}

func TestNewStoreHoldsDefault(t *testing.T) {
	s := New(&mockRemote{})
	defer s.Close()
	if got := s.Current(); got != enhance.Default() {
		t.Errorf("Current() = %v, want default", got)
	}
}

func TestInitializeAdoptsBackendValue(t *testing.T) {
	backend := enhance.Config{Clahe: true, UnsharpAmount: 2.2, Denoise: true, Source: "/clips/a.mp4"}
	s := New(&mockRemote{fetchCfg: backend})
	defer s.Close()

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := s.Current(); got != backend {
		t.Errorf("Current() = %v, want %v", got, backend)
	}
	if st := s.Stats(); !st.Loaded || st.Revision != 1 {
		t.Errorf("Stats = %+v, want loaded at rev 1", st)
	}
}

func TestInitializeFailureKeepsDefault(t *testing.T) {
	s := New(&mockRemote{fetchErr: errors.New("connection refused")})
	defer s.Close()

	err := s.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected error to be reported")
	}
	want := enhance.Config{Clahe: false, UnsharpAmount: 0.0, Denoise: false, Source: "0"}
	if got := s.Current(); got != want {
		t.Errorf("Current() = %v, want %v", got, want)
	}
	st := s.Stats()
	if st.Loaded || st.LoadError == "" {
		t.Errorf("Stats = %+v, want not loaded with error", st)
	}

	// Still usable in degraded mode.
	if got := s.Apply(enhance.WithClahe(true)); !got.Clahe {
		t.Error("Apply should work after failed init")
	}
}

func TestInitializeFailureKeepsLocalChanges(t *testing.T) {
	gate := make(chan struct{})
	m := &mockRemote{fetchErr: errors.New("timeout"), fetchGate: gate}
	s := New(m)
	defer s.Close()

	done := make(chan error)
	go func() { done <- s.Initialize(context.Background()) }()

	applied := s.Apply(enhance.WithUnsharpAmount(1.5))
	close(gate)
	<-done

	if got := s.Current(); got != applied {
		t.Errorf("Current() = %v, want %v retained", got, applied)
	}
}

func TestInitializeSuccessReplacesLocalChanges(t *testing.T) {
	backend := enhance.Config{Clahe: false, UnsharpAmount: 0.4, Denoise: true, Source: "3"}
	gate := make(chan struct{})
	m := &mockRemote{fetchCfg: backend, fetchGate: gate}
	s := New(m)
	defer s.Close()

	done := make(chan error)
	go func() { done <- s.Initialize(context.Background()) }()

	s.Apply(enhance.WithClahe(true))
	s.Apply(enhance.WithSource("/tmp/x.mp4"))
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if got := s.Current(); got != backend {
		t.Errorf("Current() = %v, want backend value %v", got, backend)
	}
}

func TestInitializeOnlyOnce(t *testing.T) {
	m := &mockRemote{fetchCfg: enhance.Config{Source: "1"}}
	s := New(m)
	defer s.Close()

	s.Initialize(context.Background())
	s.Apply(enhance.WithSource("2"))
	s.Initialize(context.Background())

	if m.fetches != 1 {
		t.Errorf("fetches = %d, want 1", m.fetches)
	}
	if got := s.Current().Source; got != "2" {
		t.Errorf("second Initialize must not reload; source = %q", got)
	}
}

func TestApplyMergesAndPushesFullValue(t *testing.T) {
	m := &mockRemote{fetchCfg: enhance.Config{Clahe: false, UnsharpAmount: 1.2, Denoise: true, Source: "0"}}
	s := New(m)
	defer s.Close()
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	got := s.Apply(enhance.WithClahe(true))
	s.Wait()

	want := enhance.Config{Clahe: true, UnsharpAmount: 1.2, Denoise: true, Source: "0"}
	if got != want {
		t.Errorf("Apply() = %v, want %v", got, want)
	}
	if cur := s.Current(); cur != want {
		t.Errorf("Current() = %v, want %v", cur, want)
	}
	pushes := m.pushed()
	if len(pushes) != 1 {
		t.Fatalf("expected exactly 1 push, got %d", len(pushes))
	}
	if pushes[0] != want {
		t.Errorf("pushed %v, want %v", pushes[0], want)
	}
}

func TestApplyIsOptimistic(t *testing.T) {
	// Pushes never resolve on their own.
	m := &mockRemote{block: make(chan struct{})}
	s := New(m)

	var seen []enhance.Config
	s.Subscribe(func(c enhance.Config) { seen = append(seen, c) })

	returned := make(chan enhance.Config)
	go func() { returned <- s.Apply(enhance.WithDenoise(true)) }()

	select {
	case got := <-returned:
		if !got.Denoise {
			t.Errorf("Apply returned %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Apply blocked on the network")
	}

	if !s.Current().Denoise {
		t.Error("Current() does not reflect apply while push is pending")
	}
	if len(seen) != 1 || !seen[0].Denoise {
		t.Errorf("subscriber saw %v", seen)
	}

	s.Close()
	s.Wait()
	if st := s.Stats(); st.PushesAbandoned != 1 {
		t.Errorf("Stats = %+v, want 1 abandoned push", st)
	}
	if !s.Current().Denoise {
		t.Error("Close must not change the local value")
	}
}

func TestFailedPushDoesNotRollBack(t *testing.T) {
	m := &mockRemote{pushErr: errors.New("502 bad gateway")}
	s := New(m)
	defer s.Close()

	applied := s.Apply(enhance.WithUnsharpAmount(2.0))
	s.Wait()

	if got := s.Current(); got != applied {
		t.Errorf("Current() = %v, want post-apply value %v", got, applied)
	}
	st := s.Stats()
	if st.PushesFailed != 1 || st.LastPushError == "" {
		t.Errorf("Stats = %+v, want 1 failed push recorded", st)
	}
}

func TestRapidAppliesComposeInOrder(t *testing.T) {
	m := &mockRemote{block: make(chan struct{})}
	s := New(m)
	defer s.Close()

	s.Apply(enhance.WithUnsharpAmount(2.5))
	s.Apply(enhance.WithUnsharpAmount(2.7))

	if got := s.Current().UnsharpAmount; got != 2.7 {
		t.Errorf("UnsharpAmount = %v, want 2.7", got)
	}

	close(m.block)
	s.Wait()

	pushes := m.pushed()
	if len(pushes) != 2 {
		t.Fatalf("expected 2 independent pushes, got %d", len(pushes))
	}
	amounts := map[float64]bool{pushes[0].UnsharpAmount: true, pushes[1].UnsharpAmount: true}
	if !amounts[2.5] || !amounts[2.7] {
		t.Errorf("pushed amounts %v, want 2.5 and 2.7", amounts)
	}
	if st := s.Stats(); st.PushesIssued != 2 || st.PushesSucceeded != 2 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestAppliesEachSeePreviousResult(t *testing.T) {
	s := New(&mockRemote{})
	defer s.Close()

	s.Apply(enhance.WithClahe(true))
	s.Apply(enhance.WithSource("/v.mp4"))
	got := s.Apply(enhance.WithDenoise(true))
	s.Wait()

	want := enhance.Config{Clahe: true, Denoise: true, Source: "/v.mp4"}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	backend := enhance.Config{Source: "5"}
	s := New(&mockRemote{fetchCfg: backend})
	defer s.Close()

	var seen []enhance.Config
	unsub := s.Subscribe(func(c enhance.Config) { seen = append(seen, c) })

	s.Initialize(context.Background())
	s.Apply(enhance.WithClahe(true))
	unsub()
	s.Apply(enhance.WithClahe(false))
	s.Wait()

	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d: %v", len(seen), seen)
	}
	if seen[0] != backend {
		t.Errorf("first notification %v, want initial load %v", seen[0], backend)
	}
	if !seen[1].Clahe {
		t.Errorf("second notification %v, want clahe on", seen[1])
	}
}

func TestSubscriberCanReadCurrent(t *testing.T) {
	s := New(&mockRemote{})
	defer s.Close()

	var inside enhance.Config
	s.Subscribe(func(enhance.Config) { inside = s.Current() })
	s.Apply(enhance.WithSource("7"))
	s.Wait()

	if inside.Source != "7" {
		t.Errorf("Current() inside callback = %v", inside)
	}
}

func TestApplyAfterCloseIsLocalOnly(t *testing.T) {
	m := &mockRemote{}
	s := New(m)
	s.Close()

	got := s.Apply(enhance.WithClahe(true))
	s.Wait()
	if !got.Clahe || !s.Current().Clahe {
		t.Error("local value should still change after close")
	}
	if n := len(m.pushed()); n != 0 {
		t.Errorf("expected no pushes after close, got %d", n)
	}
}

func TestInitializeResultDroppedAfterClose(t *testing.T) {
	gate := make(chan struct{})
	s := New(&mockRemote{fetchCfg: enhance.Config{Source: "9"}, fetchGate: gate})

	done := make(chan error)
	go func() { done <- s.Initialize(context.Background()) }()
	s.Close()
	close(gate)
	<-done

	if got := s.Current(); got != enhance.Default() {
		t.Errorf("Current() = %v, want default after teardown", got)
	}
}

func TestConcurrentAppliesAreSerialized(t *testing.T) {
	s := New(&mockRemote{})
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Apply(enhance.WithClahe(true))
		}()
	}
	wg.Wait()
	s.Wait()

	st := s.Stats()
	if st.Revision != 50 || st.PushesIssued != 50 || st.PushesSucceeded != 50 {
		t.Errorf("Stats = %+v, want 50 of each", st)
	}
}

func TestWaitConcurrentWithApply(t *testing.T) {
	s := New(&mockRemote{})
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Apply(enhance.WithClahe(true))
		}()
		go func() {
			defer wg.Done()
			s.Wait()
		}()
	}
	wg.Wait()
	s.Wait()

	if st := s.Stats(); st.PushesSucceeded != 200 {
		t.Errorf("Stats = %+v, want 200 settled pushes", st)
	}
}

func TestWaitContextStopsAtDeadline(t *testing.T) {
	m := &mockRemote{block: make(chan struct{})}
	s := New(m)
	defer s.Close()

	s.Apply(enhance.WithDenoise(true))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.WaitContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitContext() = %v, want deadline exceeded", err)
	}

	close(m.block)
	if err := s.WaitContext(context.Background()); err != nil {
		t.Errorf("WaitContext() after release = %v", err)
	}
}

func TestSubscriberReadsCurrentDuringConcurrentApply(t *testing.T) {
	s := New(&mockRemote{})
	defer s.Close()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	var reads []enhance.Config

	s.Subscribe(func(c enhance.Config) {
		first := false
		once.Do(func() { first = true })
		if first {
			close(entered)
			<-release
		}
		cur := s.Current()
		mu.Lock()
		reads = append(reads, cur)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		s.Apply(enhance.WithClahe(true))
		close(done)
	}()
	<-entered

	// A second change arrives while the first callback is still running.
	second := make(chan struct{})
	go func() {
		s.Apply(enhance.WithDenoise(true))
		close(second)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	for _, ch := range []chan struct{}{done, second} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("store deadlocked with a subscriber reading Current")
		}
	}
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(reads) != 2 {
		t.Fatalf("callbacks ran %d times, want 2", len(reads))
	}
	if got := s.Current(); !got.Clahe || !got.Denoise {
		t.Errorf("Current() = %v, want both changes", got)
	}
}

func TestSubscribersSeeChangesInOrder(t *testing.T) {
	s := New(&mockRemote{})
	defer s.Close()

	var mu sync.Mutex
	var seen []float64
	s.Subscribe(func(c enhance.Config) {
		mu.Lock()
		seen = append(seen, c.UnsharpAmount)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 30; i++ {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			s.Apply(enhance.WithUnsharpAmount(v))
		}(float64(i) / 10)
	}
	wg.Wait()
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 30 {
		t.Fatalf("saw %d notifications, want 30", len(seen))
	}
	if last := seen[len(seen)-1]; last != s.Current().UnsharpAmount {
		t.Errorf("last notification %v, want current %v", last, s.Current().UnsharpAmount)
	}
}

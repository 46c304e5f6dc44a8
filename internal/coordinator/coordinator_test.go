package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hearth-home/hearth-core/internal/client"
)

type reading struct {
	Value float64
}

// mockClient is a controllable device client.
type mockClient struct {
	mu      sync.Mutex
	value   float64
	err     error
	fetches atomic.Int64
	block   chan struct{} // non-nil: Fetch blocks until closed
}

func (m *mockClient) Fetch(ctx context.Context) (reading, error) {
	m.fetches.Add(1)

	m.mu.Lock()
	block := m.block
	m.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return reading{}, client.Transient(ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return reading{}, m.err
	}
	return reading{Value: m.value}, nil
}

func (m *mockClient) Close() error { return nil }

func (m *mockClient) set(value float64, err error) {
	m.mu.Lock()
	m.value = value
	m.err = err
	m.mu.Unlock()
}

func newCoordinator(m *mockClient, opts ...func(*Config[reading])) *Coordinator[reading] {
	cfg := Config[reading]{Name: "test", Client: m}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}

func TestFirstRefresh_Success(t *testing.T) {
	m := &mockClient{value: 42}
	c := newCoordinator(m)

	if err := c.FirstRefresh(context.Background()); err != nil {
		t.Fatalf("FirstRefresh() error = %v", err)
	}

	data, ok := c.Data()
	if !ok || data.Value != 42 {
		t.Errorf("Data() = %+v, %v; want 42, true", data, ok)
	}
	if !c.LastSuccess() {
		t.Error("LastSuccess() = false after successful refresh")
	}
}

func TestFirstRefresh_TransientWrapsNotReady(t *testing.T) {
	m := &mockClient{err: client.Transientf("connection refused")}
	c := newCoordinator(m)

	err := c.FirstRefresh(context.Background())
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("FirstRefresh() error = %v, want ErrNotReady", err)
	}
	if _, ok := c.Data(); ok {
		t.Error("Data() present after failed first refresh")
	}
}

func TestFirstRefresh_AuthPassesThrough(t *testing.T) {
	m := &mockClient{err: client.Auth(fmt.Errorf("bad token"))}
	c := newCoordinator(m)

	err := c.FirstRefresh(context.Background())
	if errors.Is(err, ErrNotReady) {
		t.Fatal("auth failure must not be retryable at setup")
	}
	if client.KindOf(err) != client.KindAuth {
		t.Errorf("KindOf(err) = %v, want KindAuth", client.KindOf(err))
	}
}

func TestRefresh_FailurePreservesLastData(t *testing.T) {
	m := &mockClient{value: 42}
	c := newCoordinator(m)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	m.set(0, client.Transientf("device went away"))
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() expected error")
	}

	// Snapshot survives; success flag flips.
	data, ok := c.Data()
	if !ok || data.Value != 42 {
		t.Errorf("Data() = %+v, %v after failure; want last-known 42", data, ok)
	}
	if c.LastSuccess() {
		t.Error("LastSuccess() = true after failed refresh")
	}
	if c.LastError() == nil {
		t.Error("LastError() = nil after failed refresh")
	}

	// Recovery clears the failure.
	m.set(43, nil)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if !c.LastSuccess() {
		t.Error("LastSuccess() = false after recovery")
	}
}

func TestRefresh_ConcurrentCallsShareOneFetch(t *testing.T) {
	m := &mockClient{value: 1, block: make(chan struct{})}
	c := newCoordinator(m)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Refresh(context.Background())
		}(i)
	}

	// Let the goroutines pile onto the in-flight fetch, then release it.
	time.Sleep(50 * time.Millisecond)
	close(m.block)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d error = %v", i, err)
		}
	}
	if got := m.fetches.Load(); got != 1 {
		t.Errorf("fetch count = %d, want 1 (single-flight)", got)
	}
}

func TestRequestRefresh_Coalesces(t *testing.T) {
	m := &mockClient{value: 1}
	c := newCoordinator(m, func(cfg *Config[reading]) {
		cfg.Debounce = 30 * time.Millisecond
	})

	c.RequestRefresh()
	c.RequestRefresh()
	c.RequestRefresh()

	time.Sleep(150 * time.Millisecond)
	if got := m.fetches.Load(); got != 1 {
		t.Errorf("fetch count = %d, want 1 (debounced)", got)
	}
}

func TestListeners_NotifiedAfterSnapshotSwap(t *testing.T) {
	m := &mockClient{value: 7}
	c := newCoordinator(m)

	seen := make(chan float64, 1)
	remove := c.AddListener(func() {
		// The listener must observe the fully swapped snapshot.
		data, ok := c.Data()
		if ok {
			seen <- data.Value
		}
	})
	defer remove()

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	select {
	case v := <-seen:
		if v != 7 {
			t.Errorf("listener saw %v, want 7", v)
		}
	default:
		t.Fatal("listener not notified")
	}
}

func TestListeners_RemoveStopsNotifications(t *testing.T) {
	m := &mockClient{value: 7}
	c := newCoordinator(m)

	var calls atomic.Int64
	remove := c.AddListener(func() { calls.Add(1) })

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	remove()
	m.set(8, nil)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("listener calls = %d, want 1", got)
	}
}

func TestPublish_IdenticalDataKeepsLastUpdated(t *testing.T) {
	m := &mockClient{value: 7}
	c := newCoordinator(m)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	firstUpdated := c.LastUpdated()
	firstReported := c.LastReported()

	time.Sleep(5 * time.Millisecond)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if !c.LastUpdated().Equal(firstUpdated) {
		t.Error("LastUpdated moved for identical data")
	}
	if !c.LastReported().After(firstReported) {
		t.Error("LastReported did not move for republished data")
	}
}

func TestSetData_PushMode(t *testing.T) {
	m := &mockClient{}
	c := newCoordinator(m)

	var notified atomic.Int64
	remove := c.AddListener(func() { notified.Add(1) })
	defer remove()

	c.SetData(reading{Value: 3})

	data, ok := c.Data()
	if !ok || data.Value != 3 {
		t.Errorf("Data() = %+v, %v; want 3, true", data, ok)
	}
	if notified.Load() != 1 {
		t.Errorf("notifications = %d, want 1", notified.Load())
	}

	c.SetUnavailable(client.Transientf("offline"))
	if c.LastSuccess() {
		t.Error("LastSuccess() = true after SetUnavailable")
	}
	if data, ok := c.Data(); !ok || data.Value != 3 {
		t.Errorf("Data() = %+v, %v after SetUnavailable; want last-known 3", data, ok)
	}
}

func TestStart_PollsAtInterval(t *testing.T) {
	m := &mockClient{value: 1}
	c := newCoordinator(m, func(cfg *Config[reading]) {
		cfg.Interval = 20 * time.Millisecond
	})

	if err := c.FirstRefresh(context.Background()); err != nil {
		t.Fatalf("FirstRefresh() error = %v", err)
	}
	c.Start(context.Background())
	defer c.Shutdown()

	time.Sleep(110 * time.Millisecond)
	if got := m.fetches.Load(); got < 3 {
		t.Errorf("fetch count = %d after ~5 intervals, want >= 3", got)
	}
}

func TestPolling_AuthFailureStopsLoopAndFiresOnce(t *testing.T) {
	m := &mockClient{value: 1}
	var authCalls atomic.Int64
	c := newCoordinator(m, func(cfg *Config[reading]) {
		cfg.Interval = 10 * time.Millisecond
		cfg.OnAuthFailure = func(error) { authCalls.Add(1) }
	})

	if err := c.FirstRefresh(context.Background()); err != nil {
		t.Fatalf("FirstRefresh() error = %v", err)
	}
	c.Start(context.Background())
	defer c.Shutdown()

	m.set(0, client.Auth(fmt.Errorf("token expired")))
	time.Sleep(100 * time.Millisecond)

	fetchesWhenStopped := m.fetches.Load()
	time.Sleep(50 * time.Millisecond)

	if got := m.fetches.Load(); got != fetchesWhenStopped {
		t.Errorf("polling continued after auth failure: %d -> %d", fetchesWhenStopped, got)
	}
	if got := authCalls.Load(); got != 1 {
		t.Errorf("OnAuthFailure calls = %d, want 1", got)
	}
}

func TestShutdown_RejectsFurtherRefreshes(t *testing.T) {
	m := &mockClient{value: 1}
	c := newCoordinator(m, func(cfg *Config[reading]) {
		cfg.Interval = time.Hour
	})

	if err := c.FirstRefresh(context.Background()); err != nil {
		t.Fatalf("FirstRefresh() error = %v", err)
	}
	c.Start(context.Background())
	c.Shutdown()

	if err := c.Refresh(context.Background()); !errors.Is(err, ErrShutDown) {
		t.Errorf("Refresh() after Shutdown error = %v, want ErrShutDown", err)
	}
}

func TestShutdown_WithoutStart(t *testing.T) {
	m := &mockClient{value: 1}
	c := newCoordinator(m)

	// Must not block or panic.
	c.Shutdown()
}

func TestRequestRefresh_AfterShutdownDoesNothing(t *testing.T) {
	m := &mockClient{value: 1}
	c := newCoordinator(m, func(cfg *Config[reading]) {
		cfg.Debounce = 10 * time.Millisecond
	})

	c.Shutdown()
	c.RequestRefresh()

	time.Sleep(50 * time.Millisecond)
	if got := m.fetches.Load(); got != 0 {
		t.Errorf("fetch count = %d after shutdown, want 0", got)
	}
}

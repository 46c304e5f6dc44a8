package coordinator

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/hearth-home/hearth-core/internal/client"
)

// Logger defines the logging interface used by the Coordinator.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Default timing constants.
const (
	// defaultFetchTimeout bounds a single Fetch call.
	defaultFetchTimeout = 10 * time.Second

	// defaultDebounce is the window within which repeated RequestRefresh
	// calls collapse into one actual fetch.
	defaultDebounce = 500 * time.Millisecond
)

// Config holds coordinator construction parameters.
type Config[T any] struct {
	// Name identifies the coordinator in logs, typically the integration
	// domain plus an instance qualifier.
	Name string

	// Client performs the actual device I/O.
	Client client.Client[T]

	// Interval is the polling cadence. Zero or negative means push mode:
	// no timer runs and data arrives via SetData.
	Interval time.Duration

	// FetchTimeout bounds a single Fetch call. Defaults to 10s.
	FetchTimeout time.Duration

	// Debounce is the RequestRefresh coalescing window. Defaults to 500ms.
	Debounce time.Duration

	// Logger is optional; a no-op logger is used when nil.
	Logger Logger

	// OnAuthFailure is called at most once per auth failure episode, from
	// the refresh path, so the owning config entry can be flagged for
	// reauthentication. Optional.
	OnAuthFailure func(err error)
}

// Coordinator owns one refresh operation and its last published snapshot.
//
// The snapshot is single-writer (the coordinator), multi-reader (entities,
// the history recorder, the API). All public methods are safe for
// concurrent use.
type Coordinator[T any] struct {
	name          string
	client        client.Client[T]
	interval      time.Duration
	fetchTimeout  time.Duration
	debounce      time.Duration
	logger        Logger
	onAuthFailure func(error)

	mu           sync.RWMutex // guards snapshot state and listeners
	data         T
	hasData      bool
	lastErr      error
	success      bool
	authFlagged  bool
	lastUpdated  time.Time // last time the snapshot value changed
	lastReported time.Time // last time any snapshot was published
	listeners    map[int]func()
	nextListener int

	// flightMu guards the single-flight channel. While a refresh runs,
	// inFlight is non-nil; it is closed when the refresh completes.
	flightMu sync.Mutex
	inFlight chan struct{}

	// debounceMu guards the pending RequestRefresh timer.
	debounceMu    sync.Mutex
	debounceTimer *time.Timer

	cancel   context.CancelFunc
	done     chan struct{}
	shutdown bool
}

// New creates a coordinator from cfg. It does not fetch or start polling;
// call FirstRefresh then Start.
func New[T any](cfg Config[T]) *Coordinator[T] {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	return &Coordinator[T]{
		name:          cfg.Name,
		client:        cfg.Client,
		interval:      cfg.Interval,
		fetchTimeout:  cfg.FetchTimeout,
		debounce:      cfg.Debounce,
		logger:        cfg.Logger,
		onAuthFailure: cfg.OnAuthFailure,
		listeners:     make(map[int]func()),
		done:          make(chan struct{}),
	}
}

// Name returns the coordinator's log name.
func (c *Coordinator[T]) Name() string { return c.name }

// Interval returns the polling cadence; zero for push coordinators.
func (c *Coordinator[T]) Interval() time.Duration { return c.interval }

// Data returns the last published snapshot and whether one exists.
// The snapshot is shared; callers must treat it as read-only.
func (c *Coordinator[T]) Data() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data, c.hasData
}

// LastSuccess reports whether the most recent refresh succeeded.
func (c *Coordinator[T]) LastSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.success
}

// LastError returns the error recorded by the most recent failed refresh,
// or nil after a success.
func (c *Coordinator[T]) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// LastUpdated returns when the snapshot value last changed.
func (c *Coordinator[T]) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdated
}

// LastReported returns when any snapshot was last published, including
// re-publications of an identical value.
func (c *Coordinator[T]) LastReported() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastReported
}

// AddListener registers fn to be called after every publish (successful
// refresh, push update, or failure flipping availability). It returns a
// remove function. Listeners run synchronously on the publishing goroutine
// and must not block.
func (c *Coordinator[T]) AddListener(fn func()) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// FirstRefresh performs the initial blocking refresh during setup.
//
// A transient or malformed failure is wrapped in ErrNotReady so the caller
// schedules a setup retry. An auth failure is returned as-is: setup must
// fail hard and request reauthentication. Entities are only created after
// FirstRefresh succeeds, so they never start without a snapshot.
func (c *Coordinator[T]) FirstRefresh(ctx context.Context) error {
	err := c.Refresh(ctx)
	if err == nil {
		return nil
	}
	if client.KindOf(err) == client.KindAuth {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrNotReady, c.name, err)
}

// Refresh performs one fetch-and-publish cycle.
//
// If a refresh is already in flight the call joins it: it waits for the
// in-flight fetch and mirrors its outcome instead of starting a second one.
// On success the snapshot is replaced and listeners notified. On failure
// the snapshot is kept, the failure recorded, and listeners notified so
// entities flip unavailable.
func (c *Coordinator[T]) Refresh(ctx context.Context) error {
	c.flightMu.Lock()
	if c.shutdown {
		c.flightMu.Unlock()
		return ErrShutDown
	}
	if ch := c.inFlight; ch != nil {
		c.flightMu.Unlock()
		select {
		case <-ch:
			return c.LastError()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	ch := make(chan struct{})
	c.inFlight = ch
	c.flightMu.Unlock()

	defer func() {
		c.flightMu.Lock()
		c.inFlight = nil
		c.flightMu.Unlock()
		close(ch)
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	data, err := c.client.Fetch(fetchCtx)
	if err != nil {
		c.recordFailure(err)
		return err
	}

	c.publish(data)
	return nil
}

// RequestRefresh schedules a refresh after the debounce window. Calls made
// while one is already scheduled coalesce into it. The refresh runs on a
// background goroutine; callers that need the result use Refresh directly.
func (c *Coordinator[T]) RequestRefresh() {
	c.debounceMu.Lock()
	defer c.debounceMu.Unlock()
	if c.debounceTimer != nil {
		return
	}
	c.debounceTimer = time.AfterFunc(c.debounce, func() {
		c.debounceMu.Lock()
		c.debounceTimer = nil
		c.debounceMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
		defer cancel()
		if err := c.Refresh(ctx); err != nil {
			c.logger.Debug("requested refresh failed", "coordinator", c.name, "error", err)
		}
	})
}

// SetData publishes a snapshot directly, bypassing the device client.
// Push coordinators call this when their transport delivers a message.
func (c *Coordinator[T]) SetData(data T) {
	c.publish(data)
}

// SetUnavailable records a failure without a fetch, for push coordinators
// whose transport signals the device went offline.
func (c *Coordinator[T]) SetUnavailable(err error) {
	c.recordFailure(err)
}

// Start launches the polling loop. For push coordinators (zero interval)
// it only arms cancellation bookkeeping. ctx ending stops the loop;
// Shutdown does the same and waits for it.
func (c *Coordinator[T]) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if c.interval <= 0 {
		close(c.done)
		return
	}
	go c.loop(ctx)
}

// Shutdown stops the polling loop and any pending debounced refresh, then
// waits for the loop to exit. The device client is not closed here; the
// owning config entry closes it after Shutdown returns.
func (c *Coordinator[T]) Shutdown() {
	c.flightMu.Lock()
	c.shutdown = true
	c.flightMu.Unlock()

	c.debounceMu.Lock()
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	c.debounceMu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if c.interval > 0 && c.cancel != nil {
		<-c.done
	}
}

// loop is the polling goroutine.
func (c *Coordinator[T]) loop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.Refresh(ctx)
			if client.KindOf(err) == client.KindAuth {
				// No automatic retries on bad credentials; the entry
				// manager reloads us once the user reauthenticates.
				c.logger.Warn("polling stopped pending reauthentication",
					"coordinator", c.name, "error", err)
				return
			}
		}
	}
}

// publish atomically replaces the snapshot, then notifies listeners.
// Listeners always observe the fully swapped snapshot.
func (c *Coordinator[T]) publish(data T) {
	now := time.Now().UTC()

	c.mu.Lock()
	changed := !c.hasData || !reflect.DeepEqual(c.data, data)
	c.data = data
	c.hasData = true
	c.lastErr = nil
	c.success = true
	c.authFlagged = false
	c.lastReported = now
	if changed {
		c.lastUpdated = now
	}
	c.mu.Unlock()

	c.logger.Debug("data published", "coordinator", c.name, "changed", changed)
	c.notifyListeners()
}

// recordFailure keeps the previous snapshot, records the failure, and
// notifies listeners so dependent entities report unavailable.
func (c *Coordinator[T]) recordFailure(err error) {
	kind := client.KindOf(err)

	var fireAuth bool
	c.mu.Lock()
	c.lastErr = err
	c.success = false
	if kind == client.KindAuth && !c.authFlagged {
		c.authFlagged = true
		fireAuth = true
	}
	c.mu.Unlock()

	switch kind {
	case client.KindMalformed:
		c.logger.Warn("malformed device response", "coordinator", c.name, "error", err)
	case client.KindAuth:
		c.logger.Warn("authentication failed", "coordinator", c.name, "error", err)
	default:
		c.logger.Debug("refresh failed", "coordinator", c.name, "error", err)
	}

	if fireAuth && c.onAuthFailure != nil {
		c.onAuthFailure(err)
	}

	c.notifyListeners()
}

// notifyListeners calls every registered listener with no lock held, using
// a snapshot of the listener set so removal during notification is safe.
func (c *Coordinator[T]) notifyListeners() {
	c.mu.RLock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

package history

import (
	"context"
	"sync"
	"time"

	"github.com/hearth-home/hearth-core/internal/entity"
)

// insertTimeout bounds one history write so a busy database never stalls
// a coordinator's listener fan-out.
const insertTimeout = 5 * time.Second

// Logger defines the logging interface used by the Recorder.
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

// SeriesWriter forwards numeric states to long-term storage. The
// influxdb client satisfies it; a nil writer disables forwarding.
type SeriesWriter interface {
	WriteEntityState(entryID, entityID string, value float64)
	WriteEntityAvailability(entryID, entityID string, available bool)
}

// Config holds recorder construction parameters.
type Config struct {
	Store  *Store
	Series SeriesWriter // optional
	Logger Logger

	// Retention is how long recent rows are kept.
	Retention time.Duration

	// PruneInterval is how often expired rows are removed.
	PruneInterval time.Duration
}

// Recorder subscribes to entities and persists their state changes.
type Recorder struct {
	store         *Store
	series        SeriesWriter
	logger        Logger
	retention     time.Duration
	pruneInterval time.Duration

	mu      sync.Mutex
	tracked map[string]*trackedEntity

	cancel context.CancelFunc
	done   chan struct{}
}

// trackedEntity remembers what was last written so identical republished
// snapshots produce no duplicate rows.
type trackedEntity struct {
	handle    entity.Handle
	remove    func()
	lastState entity.Value
	lastAvail bool
}

// NewRecorder creates a recorder. Call Start to begin pruning and Track
// (typically from the entry manager's load hook) to follow entities.
func NewRecorder(cfg Config) *Recorder {
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 72 * time.Hour
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = 30 * time.Minute
	}
	return &Recorder{
		store:         cfg.Store,
		series:        cfg.Series,
		logger:        cfg.Logger,
		retention:     cfg.Retention,
		pruneInterval: cfg.PruneInterval,
		tracked:       make(map[string]*trackedEntity),
		done:          make(chan struct{}),
	}
}

// Track starts recording the given entities. Each gets an initial row so
// history never begins with a gap.
func (r *Recorder) Track(handles ...entity.Handle) {
	for _, h := range handles {
		h := h
		te := &trackedEntity{handle: h}
		te.remove = h.Subscribe(func() { r.onChange(h.ID()) })

		// The baseline is read only after the subscription exists: a publish
		// racing Track lands either in the baseline row or in onChange.
		r.mu.Lock()
		state := h.State()
		avail := h.Available()
		te.lastState = state
		te.lastAvail = avail
		r.tracked[h.ID()] = te
		r.mu.Unlock()

		r.write(Record{
			EntityID:   h.ID(),
			EntryID:    h.EntryID(),
			State:      state,
			Available:  avail,
			RecordedAt: time.Now(),
		})
	}
}

// Untrack stops recording the given entities, dropping their coordinator
// subscriptions.
func (r *Recorder) Untrack(handles ...entity.Handle) {
	for _, h := range handles {
		r.mu.Lock()
		te, ok := r.tracked[h.ID()]
		delete(r.tracked, h.ID())
		r.mu.Unlock()

		if ok {
			te.remove()
		}
	}
}

// onChange runs on every coordinator publish for a tracked entity.
func (r *Recorder) onChange(id string) {
	r.mu.Lock()
	te, ok := r.tracked[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	state := te.handle.State()
	avail := te.handle.Available()
	if state.Equal(te.lastState) && avail == te.lastAvail {
		r.mu.Unlock()
		return
	}
	te.lastState = state
	te.lastAvail = avail
	r.mu.Unlock()

	r.write(Record{
		EntityID:   te.handle.ID(),
		EntryID:    te.handle.EntryID(),
		State:      state,
		Available:  avail,
		RecordedAt: time.Now(),
	})
}

// write persists one record to the recent store and forwards numeric
// states to the long-term series.
func (r *Recorder) write(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	if err := r.store.Insert(ctx, rec); err != nil {
		r.logger.Error("history insert failed", "entity", rec.EntityID, "error", err)
	}

	if r.series == nil {
		return
	}
	if !rec.Available {
		r.series.WriteEntityAvailability(rec.EntryID, rec.EntityID, false)
		return
	}
	if f, ok := rec.State.AsFloat(); ok {
		r.series.WriteEntityState(rec.EntryID, rec.EntityID, f)
	} else if i, ok := rec.State.AsInt(); ok {
		r.series.WriteEntityState(rec.EntryID, rec.EntityID, float64(i))
	}
}

// Start launches the prune loop.
func (r *Recorder) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.pruneInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.prune(ctx)
			}
		}
	}()
}

// Stop untracks everything and waits for the prune loop to exit.
func (r *Recorder) Stop() {
	r.mu.Lock()
	for id, te := range r.tracked {
		te.remove()
		delete(r.tracked, id)
	}
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

// Recent returns an entity's newest recorded changes.
func (r *Recorder) Recent(ctx context.Context, entityID string, limit int) ([]Record, error) {
	return r.store.Recent(ctx, entityID, limit)
}

func (r *Recorder) prune(ctx context.Context) {
	removed, err := r.store.Prune(ctx, time.Now().Add(-r.retention))
	if err != nil {
		r.logger.Error("history prune failed", "error", err)
		return
	}
	if removed > 0 {
		r.logger.Debug("history pruned", "rows", removed)
	}
}

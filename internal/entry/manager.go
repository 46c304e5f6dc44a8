package entry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hearth-home/hearth-core/internal/client"
	"github.com/hearth-home/hearth-core/internal/coordinator"
	"github.com/hearth-home/hearth-core/internal/entity"
)

// Setup retry backoff bounds.
const (
	initialRetryDelay = 30 * time.Second
	maxRetryDelay     = 5 * time.Minute
)

// Manager owns the runtime lifecycle of all config entries.
//
// All public methods are thread-safe.
type Manager struct {
	repo   Repository
	logger Logger

	mu           sync.RWMutex
	integrations map[string]Integration
	loaded       map[string]*loadedEntry
	retries      map[string]context.CancelFunc // pending setup retries by entry ID

	onLoad   func(e *ConfigEntry, entities []entity.Handle)
	onUnload func(e *ConfigEntry, entities []entity.Handle)

	baseCtx context.Context
	wg      sync.WaitGroup
}

// loadedEntry pairs a persisted entry with its running instance.
type loadedEntry struct {
	entry    *ConfigEntry
	instance *Instance
}

// NewManager creates a manager over the given repository.
func NewManager(repo Repository, logger Logger) *Manager {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Manager{
		repo:         repo,
		logger:       logger,
		integrations: make(map[string]Integration),
		loaded:       make(map[string]*loadedEntry),
		retries:      make(map[string]context.CancelFunc),
	}
}

// SetHooks installs callbacks fired after an entry's instance is created
// or torn down. The history recorder uses these to follow entity
// lifetimes. Must be called before Start.
func (m *Manager) SetHooks(onLoad, onUnload func(e *ConfigEntry, entities []entity.Handle)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLoad = onLoad
	m.onUnload = onUnload
}

// Register adds an integration. Must be called before Start.
func (m *Manager) Register(i Integration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.integrations[i.Domain()] = i
}

// Domains returns the registered integration domains.
func (m *Manager) Domains() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	domains := make([]string, 0, len(m.integrations))
	for d := range m.integrations {
		domains = append(domains, d)
	}
	return domains
}

// Start loads all persisted entries and sets them up. Entries whose device
// is unreachable are scheduled for retry rather than failing startup; only
// repository access errors are fatal here.
func (m *Manager) Start(ctx context.Context) error {
	m.baseCtx = ctx

	entries, err := m.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading config entries: %w", err)
	}

	for i := range entries {
		e := entries[i].Clone()
		if err := m.setup(ctx, e); err != nil {
			m.logger.Warn("entry setup deferred", "entry", e.ID,
				"domain", e.Domain, "state", e.State, "error", err)
		}
	}

	m.logger.Info("config entries started", "total", len(entries), "loaded", m.LoadedCount())
	return nil
}

// Stop unloads every loaded entry and waits for retry goroutines.
func (m *Manager) Stop() {
	m.mu.Lock()
	for id, cancel := range m.retries {
		cancel()
		delete(m.retries, id)
	}
	ids := make([]string, 0, len(m.loaded))
	for id := range m.loaded {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Unload(context.Background(), id); err != nil {
			m.logger.Warn("entry unload failed", "entry", id, "error", err)
		}
	}
	m.wg.Wait()
}

// setup runs one entry's integration setup and records the outcome.
// Transient failures (coordinator.ErrNotReady) schedule a retry; auth
// failures park the entry in needs-reauth with no retry.
func (m *Manager) setup(ctx context.Context, e *ConfigEntry) error {
	m.mu.RLock()
	integ, ok := m.integrations[e.Domain]
	_, already := m.loaded[e.ID]
	m.mu.RUnlock()

	if already {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, e.ID)
	}
	if !ok {
		m.persistState(e, StateSetupError)
		return fmt.Errorf("%w: %s", ErrUnknownDomain, e.Domain)
	}

	env := Env{
		Logger:        m.logger,
		OnAuthFailure: func(err error) { m.flagReauth(e.ID, err) },
	}

	inst, err := integ.Setup(ctx, e.Clone(), env)
	switch {
	case err == nil:
		m.mu.Lock()
		m.loaded[e.ID] = &loadedEntry{entry: e, instance: inst}
		onLoad := m.onLoad
		m.mu.Unlock()
		m.persistState(e, StateLoaded)
		if onLoad != nil {
			onLoad(e, inst.Entities)
		}
		m.logger.Info("entry loaded", "entry", e.ID, "domain", e.Domain, "title", e.Title)
		return nil

	case errors.Is(err, coordinator.ErrNotReady):
		m.persistState(e, StateSetupRetry)
		m.scheduleRetry(e.ID, initialRetryDelay)
		return err

	case client.KindOf(err) == client.KindAuth:
		m.persistState(e, StateNeedsReauth)
		m.logger.Warn("entry needs reauthentication", "entry", e.ID,
			"domain", e.Domain, "error", err)
		return err

	default:
		m.persistState(e, StateSetupError)
		return err
	}
}

// scheduleRetry arms a one-shot setup retry with doubling delay.
func (m *Manager) scheduleRetry(id string, delay time.Duration) {
	if m.baseCtx == nil || m.baseCtx.Err() != nil {
		return
	}

	retryCtx, cancel := context.WithCancel(m.baseCtx)

	m.mu.Lock()
	if prev, ok := m.retries[id]; ok {
		prev()
	}
	m.retries[id] = cancel
	m.mu.Unlock()

	m.logger.Info("entry setup retry scheduled", "entry", id, "delay", delay)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-retryCtx.Done():
			return
		case <-timer.C:
		}

		m.mu.Lock()
		delete(m.retries, id)
		m.mu.Unlock()

		e, err := m.repo.GetByID(retryCtx, id)
		if err != nil {
			m.logger.Error("entry retry lookup failed", "entry", id, "error", err)
			return
		}

		if err := m.setup(retryCtx, e); errors.Is(err, coordinator.ErrNotReady) {
			next := delay * 2
			if next > maxRetryDelay {
				next = maxRetryDelay
			}
			m.scheduleRetry(id, next)
		}
	}()
}

// flagReauth marks a loaded entry as needing reauthentication. The
// coordinator has already stopped polling; the instance stays loaded so
// entities report unavailable with their last-known values intact.
func (m *Manager) flagReauth(id string, err error) {
	m.mu.RLock()
	le, ok := m.loaded[id]
	m.mu.RUnlock()
	if !ok {
		return
	}

	m.persistState(le.entry, StateNeedsReauth)
	m.logger.Warn("entry flagged for reauthentication", "entry", id, "error", err)
}

// Unload shuts an entry's instance down and marks it not loaded.
func (m *Manager) Unload(ctx context.Context, id string) error {
	m.mu.Lock()
	if cancel, ok := m.retries[id]; ok {
		cancel()
		delete(m.retries, id)
	}
	le, ok := m.loaded[id]
	delete(m.loaded, id)
	onUnload := m.onUnload
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, id)
	}

	if onUnload != nil {
		onUnload(le.entry, le.instance.Entities)
	}
	for _, h := range le.instance.Entities {
		h.Release()
	}
	if le.instance.Close != nil {
		if err := le.instance.Close(); err != nil {
			m.logger.Warn("instance close failed", "entry", id, "error", err)
		}
	}

	m.persistState(le.entry, StateNotLoaded)
	m.logger.Info("entry unloaded", "entry", id)
	return nil
}

// Reload unloads (if loaded) then sets the entry up again from its
// persisted record.
func (m *Manager) Reload(ctx context.Context, id string) error {
	if err := m.Unload(ctx, id); err != nil && !errors.Is(err, ErrNotLoaded) {
		return err
	}

	e, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return m.setup(ctx, e)
}

// Reauth replaces an entry's data (fresh credentials), persists it, and
// reloads the entry. This is the resolution path for needs-reauth.
func (m *Manager) Reauth(ctx context.Context, id string, data map[string]any) error {
	e, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	for k, v := range data {
		if e.Data == nil {
			e.Data = make(map[string]any, len(data))
		}
		e.Data[k] = v
	}
	e.State = StateNotLoaded
	if err := m.repo.Update(ctx, e); err != nil {
		return err
	}

	return m.Reload(ctx, id)
}

// Add persists a new entry and immediately sets it up.
func (m *Manager) Add(ctx context.Context, e *ConfigEntry) error {
	if e.ID == "" {
		e.ID = GenerateID()
	}

	m.mu.RLock()
	_, known := m.integrations[e.Domain]
	m.mu.RUnlock()
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownDomain, e.Domain)
	}

	if err := m.repo.Create(ctx, e); err != nil {
		return err
	}
	return m.setup(ctx, e)
}

// Remove unloads and deletes an entry.
func (m *Manager) Remove(ctx context.Context, id string) error {
	if err := m.Unload(ctx, id); err != nil && !errors.Is(err, ErrNotLoaded) {
		return err
	}
	return m.repo.Delete(ctx, id)
}

// Entries returns all persisted entries with their current states.
func (m *Manager) Entries(ctx context.Context) ([]ConfigEntry, error) {
	return m.repo.List(ctx)
}

// Entry returns one persisted entry.
func (m *Manager) Entry(ctx context.Context, id string) (*ConfigEntry, error) {
	return m.repo.GetByID(ctx, id)
}

// Entities returns the entities of every loaded entry.
func (m *Manager) Entities() []entity.Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var handles []entity.Handle
	for _, le := range m.loaded {
		handles = append(handles, le.instance.Entities...)
	}
	return handles
}

// Entity looks an entity up by its globally unique ID.
func (m *Manager) Entity(id string) (entity.Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, le := range m.loaded {
		for _, h := range le.instance.Entities {
			if h.ID() == id {
				return h, nil
			}
		}
	}
	return nil, entity.ErrEntityNotFound
}

// RequestRefresh asks a loaded entry's coordinators for a debounced
// refresh.
func (m *Manager) RequestRefresh(id string) error {
	m.mu.RLock()
	le, ok := m.loaded[id]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, id)
	}
	if le.instance.RequestRefresh != nil {
		le.instance.RequestRefresh()
	}
	return nil
}

// LoadedCount returns the number of running instances.
func (m *Manager) LoadedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.loaded)
}

// persistState updates the in-memory and persisted entry state, logging
// (not propagating) persistence failures: lifecycle decisions must not be
// blocked by a busy database.
//
// The in-memory write happens under the manager lock. A loaded entry is
// shared between API goroutines (Unload, Reload) and the coordinator's
// refresh goroutine (flagReauth via OnAuthFailure), which can race on the
// same ConfigEntry.
func (m *Manager) persistState(e *ConfigEntry, s State) {
	m.mu.Lock()
	e.State = s
	m.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.repo.UpdateState(ctx, e.ID, s); err != nil && !errors.Is(err, ErrEntryNotFound) {
		m.logger.Error("persisting entry state failed", "entry", e.ID, "state", s, "error", err)
	}
}

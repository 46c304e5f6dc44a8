package entry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hearth-home/hearth-core/internal/client"
	"github.com/hearth-home/hearth-core/internal/coordinator"
	"github.com/hearth-home/hearth-core/internal/entity"
)

// fakeIntegration drives setup outcomes from its setupErr field.
type fakeIntegration struct {
	domain   string
	setupErr error

	setups  int
	closed  int
	refresh int
}

func (f *fakeIntegration) Domain() string { return f.domain }

func (f *fakeIntegration) Setup(ctx context.Context, e *ConfigEntry, env Env) (*Instance, error) {
	f.setups++
	if f.setupErr != nil {
		return nil, f.setupErr
	}

	coord := coordinator.New(coordinator.Config[float64]{
		Name: f.domain + " " + e.ID,
		Client: client.FetchFunc[float64](func(ctx context.Context) (float64, error) {
			return 42, nil
		}),
		OnAuthFailure: env.OnAuthFailure,
	})
	if err := coord.FirstRefresh(ctx); err != nil {
		return nil, err
	}

	descs := []entity.Description[float64, struct{}]{{
		Key:  "value",
		Name: "Value",
		Kind: entity.KindSensor,
		Read: func(v float64) (entity.Value, bool) {
			return entity.FloatValue(v), true
		},
	}}

	return &Instance{
		Entities:       entity.Build(e.ID, descs, coord, struct{}{}),
		RequestRefresh: func() { f.refresh++ },
		Close: func() error {
			coord.Shutdown()
			f.closed++
			return nil
		},
	}, nil
}

func testManager(t *testing.T, integs ...Integration) *Manager {
	t.Helper()
	m := NewManager(testRepo(t), nil)
	for _, i := range integs {
		m.Register(i)
	}
	return m
}

func TestManager_AddLoadsEntry(t *testing.T) {
	integ := &fakeIntegration{domain: "powermeter"}
	m := testManager(t, integ)
	ctx := context.Background()

	e := meterEntry("", "Garage Meter")
	if err := m.Add(ctx, e); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if e.ID == "" {
		t.Error("Add did not assign an ID")
	}

	got, err := m.Entry(ctx, e.ID)
	if err != nil {
		t.Fatalf("Entry() error = %v", err)
	}
	if got.State != StateLoaded {
		t.Errorf("State = %q, want loaded", got.State)
	}
	if m.LoadedCount() != 1 {
		t.Errorf("LoadedCount() = %d, want 1", m.LoadedCount())
	}

	handles := m.Entities()
	if len(handles) != 1 || handles[0].ID() != e.ID+".value" {
		t.Errorf("Entities() = %v", handles)
	}
}

func TestManager_AddUnknownDomain(t *testing.T) {
	m := testManager(t)

	err := m.Add(context.Background(), meterEntry("", "Meter"))
	if !errors.Is(err, ErrUnknownDomain) {
		t.Errorf("Add() error = %v, want ErrUnknownDomain", err)
	}
}

func TestManager_SetupRetryOnUnreachableDevice(t *testing.T) {
	integ := &fakeIntegration{
		domain:   "powermeter",
		setupErr: coordinator.ErrNotReady,
	}
	m := testManager(t, integ)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.baseCtx = ctx

	e := meterEntry("", "Meter")
	if err := m.Add(ctx, e); !errors.Is(err, coordinator.ErrNotReady) {
		t.Fatalf("Add() error = %v, want ErrNotReady", err)
	}

	got, err := m.Entry(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateSetupRetry {
		t.Errorf("State = %q, want setup_retry", got.State)
	}
	if m.LoadedCount() != 0 {
		t.Errorf("LoadedCount() = %d, want 0", m.LoadedCount())
	}

	// A pending retry exists and Stop cancels it without hanging.
	m.mu.RLock()
	pending := len(m.retries)
	m.mu.RUnlock()
	if pending != 1 {
		t.Errorf("pending retries = %d, want 1", pending)
	}
	m.Stop()
}

func TestManager_SetupAuthFailureParksEntry(t *testing.T) {
	integ := &fakeIntegration{
		domain:   "powermeter",
		setupErr: client.Auth(errors.New("401")),
	}
	m := testManager(t, integ)
	ctx := context.Background()

	e := meterEntry("", "Meter")
	if err := m.Add(ctx, e); client.KindOf(err) != client.KindAuth {
		t.Fatalf("Add() error = %v, want auth kind", err)
	}

	got, err := m.Entry(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateNeedsReauth {
		t.Errorf("State = %q, want needs_reauth", got.State)
	}

	// Auth failures never schedule automatic retries.
	m.mu.RLock()
	pending := len(m.retries)
	m.mu.RUnlock()
	if pending != 0 {
		t.Errorf("pending retries = %d, want 0", pending)
	}
}

func TestManager_SetupHardErrorMarksSetupError(t *testing.T) {
	integ := &fakeIntegration{
		domain:   "powermeter",
		setupErr: errors.New("config invalid"),
	}
	m := testManager(t, integ)
	ctx := context.Background()

	e := meterEntry("", "Meter")
	if err := m.Add(ctx, e); err == nil {
		t.Fatal("Add() expected error")
	}

	got, err := m.Entry(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateSetupError {
		t.Errorf("State = %q, want setup_error", got.State)
	}
}

func TestManager_UnloadReleasesInstance(t *testing.T) {
	integ := &fakeIntegration{domain: "powermeter"}
	m := testManager(t, integ)
	ctx := context.Background()

	e := meterEntry("", "Meter")
	if err := m.Add(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := m.Unload(ctx, e.ID); err != nil {
		t.Fatalf("Unload() error = %v", err)
	}

	if integ.closed != 1 {
		t.Errorf("instance closes = %d, want 1", integ.closed)
	}
	if m.LoadedCount() != 0 {
		t.Errorf("LoadedCount() = %d, want 0", m.LoadedCount())
	}

	got, err := m.Entry(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateNotLoaded {
		t.Errorf("State = %q, want not_loaded", got.State)
	}

	if err := m.Unload(ctx, e.ID); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("second Unload() error = %v, want ErrNotLoaded", err)
	}
}

func TestManager_ReloadRoundTrips(t *testing.T) {
	integ := &fakeIntegration{domain: "powermeter"}
	m := testManager(t, integ)
	ctx := context.Background()

	e := meterEntry("", "Meter")
	if err := m.Add(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := m.Reload(ctx, e.ID); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if integ.setups != 2 || integ.closed != 1 {
		t.Errorf("setups = %d, closes = %d; want 2, 1", integ.setups, integ.closed)
	}
	if m.LoadedCount() != 1 {
		t.Errorf("LoadedCount() = %d, want 1", m.LoadedCount())
	}
}

func TestManager_ReauthMergesDataAndReloads(t *testing.T) {
	integ := &fakeIntegration{
		domain:   "powermeter",
		setupErr: client.Auth(errors.New("401")),
	}
	m := testManager(t, integ)
	ctx := context.Background()

	e := meterEntry("", "Meter")
	if err := m.Add(ctx, e); err == nil {
		t.Fatal("Add() expected auth error")
	}

	// New credentials fix the device.
	integ.setupErr = nil
	if err := m.Reauth(ctx, e.ID, map[string]any{"api_key": "fresh"}); err != nil {
		t.Fatalf("Reauth() error = %v", err)
	}

	got, err := m.Entry(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateLoaded {
		t.Errorf("State = %q, want loaded", got.State)
	}
	if got.Data["api_key"] != "fresh" {
		t.Errorf("api_key = %v, want merged credential", got.Data["api_key"])
	}
	if got.Data["host"] != "10.0.0.5" {
		t.Errorf("host = %v, want untouched original", got.Data["host"])
	}
}

func TestManager_RemoveDeletesEntry(t *testing.T) {
	integ := &fakeIntegration{domain: "powermeter"}
	m := testManager(t, integ)
	ctx := context.Background()

	e := meterEntry("", "Meter")
	if err := m.Add(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := m.Remove(ctx, e.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if integ.closed != 1 {
		t.Errorf("instance closes = %d, want 1", integ.closed)
	}
	if _, err := m.Entry(ctx, e.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Entry() after remove error = %v, want ErrEntryNotFound", err)
	}
}

func TestManager_StartLoadsPersistedEntries(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	for _, e := range []*ConfigEntry{
		meterEntry("e1", "Attic"),
		meterEntry("e2", "Kitchen"),
	} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	integ := &fakeIntegration{domain: "powermeter"}
	m := NewManager(repo, nil)
	m.Register(integ)

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop()

	if m.LoadedCount() != 2 {
		t.Errorf("LoadedCount() = %d, want 2", m.LoadedCount())
	}
	if integ.setups != 2 {
		t.Errorf("setups = %d, want 2", integ.setups)
	}
}

func TestManager_EntityLookup(t *testing.T) {
	integ := &fakeIntegration{domain: "powermeter"}
	m := testManager(t, integ)
	ctx := context.Background()

	e := meterEntry("", "Meter")
	if err := m.Add(ctx, e); err != nil {
		t.Fatal(err)
	}

	h, err := m.Entity(e.ID + ".value")
	if err != nil {
		t.Fatalf("Entity() error = %v", err)
	}
	if f, ok := h.State().AsFloat(); !ok || f != 42 {
		t.Errorf("State() = %v, want 42", h.State())
	}

	if _, err := m.Entity("missing.value"); !errors.Is(err, entity.ErrEntityNotFound) {
		t.Errorf("Entity(missing) error = %v, want ErrEntityNotFound", err)
	}
}

func TestManager_RequestRefresh(t *testing.T) {
	integ := &fakeIntegration{domain: "powermeter"}
	m := testManager(t, integ)
	ctx := context.Background()

	e := meterEntry("", "Meter")
	if err := m.Add(ctx, e); err != nil {
		t.Fatal(err)
	}

	if err := m.RequestRefresh(e.ID); err != nil {
		t.Fatalf("RequestRefresh() error = %v", err)
	}
	if integ.refresh != 1 {
		t.Errorf("refresh calls = %d, want 1", integ.refresh)
	}
	if err := m.RequestRefresh("missing"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("RequestRefresh(missing) error = %v, want ErrNotLoaded", err)
	}
}

func TestManager_AuthFailureDuringOperationFlagsReauth(t *testing.T) {
	integ := &fakeIntegration{domain: "powermeter"}
	m := testManager(t, integ)
	ctx := context.Background()

	e := meterEntry("", "Meter")
	if err := m.Add(ctx, e); err != nil {
		t.Fatal(err)
	}

	// Simulate the coordinator reporting expired credentials mid-run.
	m.flagReauth(e.ID, client.Auth(errors.New("token expired")))

	got, err := m.Entry(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateNeedsReauth {
		t.Errorf("State = %q, want needs_reauth", got.State)
	}
	// The instance stays loaded; entities keep last-known values.
	if m.LoadedCount() != 1 {
		t.Errorf("LoadedCount() = %d, want 1", m.LoadedCount())
	}
}

// Reauth flags arrive on coordinator goroutines while unloads come from
// API handlers; both touch the same loaded entry's state.
func TestManager_ConcurrentReauthFlagAndUnload(t *testing.T) {
	integ := &fakeIntegration{domain: "powermeter"}
	m := testManager(t, integ)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		e := meterEntry("", "Meter")
		if err := m.Add(ctx, e); err != nil {
			t.Fatalf("Add() error = %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.flagReauth(e.ID, client.Auth(errors.New("token expired")))
		}()
		go func() {
			defer wg.Done()
			if err := m.Unload(ctx, e.ID); err != nil {
				t.Errorf("Unload() error = %v", err)
			}
		}()
		wg.Wait()

		if err := m.Remove(ctx, e.ID); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
	}
}

func TestManager_HooksFollowEntityLifetimes(t *testing.T) {
	integ := &fakeIntegration{domain: "powermeter"}
	m := testManager(t, integ)
	ctx := context.Background()

	var loaded, unloaded []string
	m.SetHooks(
		func(e *ConfigEntry, entities []entity.Handle) {
			for _, h := range entities {
				loaded = append(loaded, h.ID())
			}
		},
		func(e *ConfigEntry, entities []entity.Handle) {
			for _, h := range entities {
				unloaded = append(unloaded, h.ID())
			}
		},
	)

	e := meterEntry("", "Meter")
	if err := m.Add(ctx, e); err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0] != e.ID+".value" {
		t.Errorf("onLoad saw %v", loaded)
	}

	if err := m.Unload(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if len(unloaded) != 1 || unloaded[0] != e.ID+".value" {
		t.Errorf("onUnload saw %v", unloaded)
	}
}

package mqttbridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hearth-home/hearth-core/internal/coordinator"
	"github.com/hearth-home/hearth-core/internal/entity"
	"github.com/hearth-home/hearth-core/internal/entry"
	"github.com/hearth-home/hearth-core/internal/infrastructure/mqtt"
)

// fakeBus is an in-memory broker: retained messages replay on subscribe,
// published messages are recorded.
type fakeBus struct {
	mu        sync.Mutex
	retained  map[string][]byte
	handlers  map[string]mqtt.MessageHandler
	published map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		retained:  make(map[string][]byte),
		handlers:  make(map[string]mqtt.MessageHandler),
		published: make(map[string][][]byte),
	}
}

func (b *fakeBus) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	b.handlers[topic] = handler
	payload, ok := b.retained[topic]
	b.mu.Unlock()

	if ok {
		handler(topic, payload)
	}
	return nil
}

func (b *fakeBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	delete(b.handlers, topic)
	b.mu.Unlock()
	return nil
}

func (b *fakeBus) Publish(topic string, payload []byte, qos byte, retained bool) error {
	b.mu.Lock()
	b.published[topic] = append(b.published[topic], payload)
	b.mu.Unlock()
	return nil
}

// deliver simulates an incoming broker message.
func (b *fakeBus) deliver(t *testing.T, topic string, payload string) {
	t.Helper()
	b.mu.Lock()
	handler, ok := b.handlers[topic]
	b.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for topic %s", topic)
	}
	if err := handler(topic, []byte(payload)); err != nil {
		t.Fatalf("handler(%s) error = %v", topic, err)
	}
}

func (b *fakeBus) retain(topic, payload string) {
	b.mu.Lock()
	b.retained[topic] = []byte(payload)
	b.mu.Unlock()
}

func nodeEntry(id, nodeID string) *entry.ConfigEntry {
	return &entry.ConfigEntry{
		ID:     id,
		Domain: Domain,
		Data:   map[string]any{"node_id": nodeID},
	}
}

func findEntity(t *testing.T, inst *entry.Instance, key string) entity.Handle {
	t.Helper()
	for _, h := range inst.Entities {
		if h.Key() == key {
			return h
		}
	}
	t.Fatalf("no entity with key %q", key)
	return nil
}

func TestSetup_RetainedState(t *testing.T) {
	bus := newFakeBus()
	bus.retain("hearth/node/attic/state",
		`{"temperature_c": 18.5, "battery_pct": 87.0, "motion": false}`)

	inst, err := New(bus).Setup(context.Background(), nodeEntry("nb1", "attic"), entry.Env{})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer inst.Close()

	if v, _ := findEntity(t, inst, "temperature").State().AsFloat(); v != 18.5 {
		t.Errorf("temperature = %v, want 18.5", v)
	}

	// No humidity or siren in the payload: those entities are
	// unavailable, their siblings are not.
	if findEntity(t, inst, "humidity").Available() {
		t.Error("humidity available despite absent field")
	}
	if !findEntity(t, inst, "motion").Available() {
		t.Error("motion unavailable despite present field")
	}
}

func TestSetup_SilentNodeReportsNotReady(t *testing.T) {
	bus := newFakeBus()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(bus).Setup(ctx, nodeEntry("nb2", "cellar"), entry.Env{})
	if err == nil {
		t.Fatal("Setup() expected error for silent node")
	}
	if !errors.Is(err, coordinator.ErrNotReady) {
		t.Errorf("Setup() error = %v, want ErrNotReady", err)
	}
}

func TestPushUpdates(t *testing.T) {
	bus := newFakeBus()
	bus.retain("hearth/node/attic/state", `{"temperature_c": 18.5}`)

	inst, err := New(bus).Setup(context.Background(), nodeEntry("nb3", "attic"), entry.Env{})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer inst.Close()

	temp := findEntity(t, inst, "temperature")

	notified := make(chan struct{}, 4)
	remove := temp.Subscribe(func() { notified <- struct{}{} })
	defer remove()

	bus.deliver(t, "hearth/node/attic/state", `{"temperature_c": 19.0}`)

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("no listener notification after pushed state")
	}
	if v, _ := temp.State().AsFloat(); v != 19.0 {
		t.Errorf("temperature = %v after push, want 19.0", v)
	}
}

func TestOfflineStatusMarksUnavailable(t *testing.T) {
	bus := newFakeBus()
	bus.retain("hearth/node/attic/state", `{"temperature_c": 18.5}`)

	inst, err := New(bus).Setup(context.Background(), nodeEntry("nb4", "attic"), entry.Env{})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer inst.Close()

	temp := findEntity(t, inst, "temperature")
	bus.deliver(t, "hearth/node/attic/status", "offline")

	if temp.Available() {
		t.Error("entity available after node went offline")
	}
	// Last-known value survives for display.
	if v, _ := temp.State().AsFloat(); v != 18.5 {
		t.Errorf("temperature = %v while offline, want last-known 18.5", v)
	}

	// The node coming back with fresh state restores availability.
	bus.deliver(t, "hearth/node/attic/state", `{"temperature_c": 18.0}`)
	if !temp.Available() {
		t.Error("entity unavailable after node recovered")
	}
}

func TestSirenCommand(t *testing.T) {
	bus := newFakeBus()
	bus.retain("hearth/node/attic/state", `{"temperature_c": 18.5, "siren": false}`)

	inst, err := New(bus).Setup(context.Background(), nodeEntry("nb5", "attic"), entry.Env{})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer inst.Close()

	siren := findEntity(t, inst, "siren")
	if err := siren.Set(context.Background(), entity.BoolValue(true)); err != nil {
		t.Fatalf("Set(true) error = %v", err)
	}

	bus.mu.Lock()
	cmds := bus.published["hearth/node/attic/command"]
	bus.mu.Unlock()
	if len(cmds) != 1 {
		t.Fatalf("published %d commands, want 1", len(cmds))
	}

	var cmd map[string]any
	if err := json.Unmarshal(cmds[0], &cmd); err != nil {
		t.Fatalf("command payload undecodable: %v", err)
	}
	if on, _ := cmd["siren"].(bool); !on {
		t.Errorf("command = %s, want siren true", cmds[0])
	}

	// Optimistic: shows on before the node echoes.
	if on, _ := siren.State().AsBool(); !on {
		t.Error("siren = false right after write, want optimistic true")
	}

	// Node echo clears the override and confirms.
	bus.deliver(t, "hearth/node/attic/state", `{"temperature_c": 18.5, "siren": true}`)
	if on, _ := siren.State().AsBool(); !on {
		t.Error("siren = false after node echo, want true")
	}
}

func TestClose_DropsSubscriptions(t *testing.T) {
	bus := newFakeBus()
	bus.retain("hearth/node/attic/state", `{"temperature_c": 18.5}`)

	inst, err := New(bus).Setup(context.Background(), nodeEntry("nb6", "attic"), entry.Env{})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := inst.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.handlers) != 0 {
		t.Errorf("%d subscriptions left after Close", len(bus.handlers))
	}
}

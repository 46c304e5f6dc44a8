package entity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hearth-home/hearth-core/internal/coordinator"
)

// Kind is the entity's platform domain.
type Kind string

// Entity kinds.
const (
	KindSensor       Kind = "sensor"
	KindBinarySensor Kind = "binary_sensor"
	KindSwitch       Kind = "switch"
	KindNumber       Kind = "number"
	KindSelect       Kind = "select"
	KindClimate      Kind = "climate"
)

// Description declares one entity of an integration: how to read its value
// out of the coordinator snapshot T, and optionally how to write through
// the device client C.
//
// Descriptions are plain data; integrations declare them in package-level
// read-only tables built at init.
type Description[T, C any] struct {
	// Key is unique within the integration and stable across restarts.
	Key string

	// Name is the human-readable entity name.
	Name string

	// Kind is the entity's platform domain.
	Kind Kind

	// Unit is the value's unit of measurement, if any.
	Unit string

	// Options lists accepted string values for select entities.
	Options []string

	// Read extracts this entity's value from a snapshot. It returns false
	// when the backing field is absent, which flips the entity unavailable
	// without touching its siblings.
	Read func(data T) (Value, bool)

	// Write sends a new value to the device. Nil for read-only entities.
	// Rejections must be returned as client.Rejected errors so the reason
	// reaches the caller verbatim.
	Write func(ctx context.Context, c C, v Value) error

	// Optimistic entities display the written value until the next
	// coordinator publish, for devices whose own reporting lags their
	// command handling.
	Optimistic bool
}

// Handle is the non-generic surface the API, WebSocket hub, and history
// recorder consume.
type Handle interface {
	ID() string
	EntryID() string
	Key() string
	Name() string
	Kind() Kind
	Unit() string
	Options() []string
	State() Value
	Available() bool
	Writable() bool
	Set(ctx context.Context, v Value) error
	Subscribe(fn func()) (remove func())
	LastUpdated() time.Time
	Release()
}

// Entity binds one Description to a coordinator and a device client.
// It is a pure projection: all state lives in the coordinator snapshot,
// except the short-lived optimistic override.
type Entity[T, C any] struct {
	id      string
	entryID string
	desc    Description[T, C]
	coord   *coordinator.Coordinator[T]
	client  C

	mu          sync.Mutex
	override    *Value
	unsubscribe func()
}

// New creates an entity for one description. The entity subscribes to the
// coordinator to clear its optimistic override on every publish; Release
// removes that subscription on unload.
func New[T, C any](entryID string, desc Description[T, C], coord *coordinator.Coordinator[T], c C) *Entity[T, C] {
	e := &Entity[T, C]{
		id:      entryID + "." + desc.Key,
		entryID: entryID,
		desc:    desc,
		coord:   coord,
		client:  c,
	}
	if desc.Optimistic {
		e.unsubscribe = coord.AddListener(e.clearOverride)
	}
	return e
}

// ID returns the globally unique entity ID (entry ID + key).
func (e *Entity[T, C]) ID() string { return e.id }

// EntryID returns the owning config entry's ID.
func (e *Entity[T, C]) EntryID() string { return e.entryID }

// Key returns the description key.
func (e *Entity[T, C]) Key() string { return e.desc.Key }

// Name returns the human-readable name.
func (e *Entity[T, C]) Name() string { return e.desc.Name }

// Kind returns the entity's platform domain.
func (e *Entity[T, C]) Kind() Kind { return e.desc.Kind }

// Unit returns the unit of measurement.
func (e *Entity[T, C]) Unit() string { return e.desc.Unit }

// Options returns accepted values for select entities.
func (e *Entity[T, C]) Options() []string { return e.desc.Options }

// State derives the displayed value from the coordinator snapshot. A
// missing snapshot or absent field yields None; State never panics.
func (e *Entity[T, C]) State() Value {
	e.mu.Lock()
	if e.override != nil {
		v := *e.override
		e.mu.Unlock()
		return v
	}
	e.mu.Unlock()

	data, ok := e.coord.Data()
	if !ok {
		return None()
	}
	v, ok := e.desc.Read(data)
	if !ok {
		return None()
	}
	return v
}

// Available reports whether the entity currently has a usable value: the
// last refresh succeeded and this entity's field is present in the
// snapshot. A field dropped from a multi-entity payload flips only this
// entity.
func (e *Entity[T, C]) Available() bool {
	if !e.coord.LastSuccess() {
		return false
	}
	data, ok := e.coord.Data()
	if !ok {
		return false
	}
	_, ok = e.desc.Read(data)
	return ok
}

// Writable reports whether the entity has a write path.
func (e *Entity[T, C]) Writable() bool { return e.desc.Write != nil }

// Set writes a value through the device client. On success the entity
// either displays the value optimistically or requests a coordinator
// refresh for the authoritative state. On failure the displayed value is
// unchanged and the error (including any device rejection reason) is
// returned to the caller.
func (e *Entity[T, C]) Set(ctx context.Context, v Value) error {
	if e.desc.Write == nil {
		return fmt.Errorf("%w: %s", ErrNotWritable, e.id)
	}
	if err := e.desc.Write(ctx, e.client, v); err != nil {
		return err
	}

	if e.desc.Optimistic {
		e.mu.Lock()
		e.override = &v
		e.mu.Unlock()
		return nil
	}
	e.coord.RequestRefresh()
	return nil
}

// Subscribe registers fn on the backing coordinator; fn fires after every
// publish. The returned function removes the subscription.
func (e *Entity[T, C]) Subscribe(fn func()) func() {
	return e.coord.AddListener(fn)
}

// LastUpdated returns when the backing snapshot last changed.
func (e *Entity[T, C]) LastUpdated() time.Time { return e.coord.LastUpdated() }

// Release drops the entity's own coordinator subscription. Called on
// config entry unload.
func (e *Entity[T, C]) Release() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// clearOverride drops the optimistic override once the coordinator
// publishes fresh data.
func (e *Entity[T, C]) clearOverride() {
	e.mu.Lock()
	e.override = nil
	e.mu.Unlock()
}

// Build creates entities for a whole description table.
func Build[T, C any](entryID string, descs []Description[T, C], coord *coordinator.Coordinator[T], c C) []Handle {
	handles := make([]Handle, 0, len(descs))
	for _, d := range descs {
		handles = append(handles, New(entryID, d, coord, c))
	}
	return handles
}

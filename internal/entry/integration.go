package entry

import (
	"context"

	"github.com/hearth-home/hearth-core/internal/entity"
)

// Logger defines the logging interface used by the Manager.
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

// Env carries the per-entry hooks the Manager hands to an integration's
// Setup. Integrations wire OnAuthFailure into their coordinators so expired
// credentials flag the entry for reauthentication.
type Env struct {
	Logger        Logger
	OnAuthFailure func(err error)
}

// Integration is one installable integration type, registered with the
// Manager by domain.
//
// Setup builds the runtime instance for one config entry: it creates the
// device client, performs the coordinator's first refresh (blocking, so an
// instance is never half-initialized), builds entities, and starts
// polling. A device that is temporarily unreachable must be reported by
// wrapping coordinator.ErrNotReady; invalid credentials must surface as an
// auth-kind client error.
type Integration interface {
	Domain() string
	Setup(ctx context.Context, e *ConfigEntry, env Env) (*Instance, error)
}

// Instance is the runtime side of a loaded config entry.
type Instance struct {
	// Entities are the entry's exposed data points and controls.
	Entities []entity.Handle

	// RequestRefresh asks all of the instance's coordinators for a
	// debounced refresh.
	RequestRefresh func()

	// Close shuts coordinators down (cancelling timers and in-flight
	// work), then closes device clients and any transports the instance
	// owns.
	Close func() error
}

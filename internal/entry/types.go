package entry

import (
	"time"

	"github.com/google/uuid"
)

// State is a config entry's lifecycle state.
type State string

// Config entry states.
const (
	// StateNotLoaded means the entry exists but no instance is running.
	StateNotLoaded State = "not_loaded"

	// StateLoaded means setup succeeded and the instance is running.
	StateLoaded State = "loaded"

	// StateSetupRetry means the device was unreachable at setup; a retry
	// is scheduled.
	StateSetupRetry State = "setup_retry"

	// StateSetupError means setup failed hard for a non-auth reason.
	StateSetupError State = "setup_error"

	// StateNeedsReauth means credentials were rejected; the entry waits
	// for the user to supply fresh ones. No automatic retries.
	StateNeedsReauth State = "needs_reauth"
)

// AllStates returns all valid entry states.
func AllStates() []State {
	return []State{
		StateNotLoaded, StateLoaded, StateSetupRetry,
		StateSetupError, StateNeedsReauth,
	}
}

// ConfigEntry is the persisted record of one configured integration
// instance.
type ConfigEntry struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
	Title  string `json:"title"`

	// Data holds connection settings and credentials (host, token, ...).
	Data map[string]any `json:"data"`

	// Options holds user tunables such as a poll interval override.
	Options map[string]any `json:"options,omitempty"`

	State State `json:"state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns an independent copy; map fields are cloned one level deep,
// which covers the flat data/options maps entries carry.
func (e *ConfigEntry) Clone() *ConfigEntry {
	if e == nil {
		return nil
	}
	cpy := *e
	cpy.Data = cloneMap(e.Data)
	cpy.Options = cloneMap(e.Options)
	return &cpy
}

// DataString returns a string field from Data, with ok reporting presence.
func (e *ConfigEntry) DataString(key string) (string, bool) {
	v, ok := e.Data[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// OptionDuration returns a duration option given in seconds, or def when
// absent or not numeric.
func (e *ConfigEntry) OptionDuration(key string, def time.Duration) time.Duration {
	v, ok := e.Options[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return time.Duration(n * float64(time.Second))
	case int:
		return time.Duration(n) * time.Second
	case int64:
		return time.Duration(n) * time.Second
	default:
		return def
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = v
	}
	return cpy
}

// GenerateID returns a new unique entry ID.
func GenerateID() string {
	return uuid.NewString()
}

// Package entry manages config entries: the persisted records of configured
// integration instances and their runtime lifecycle.
//
// A config entry stores what the user supplied to set up one integration
// instance (host, credentials, options). The Manager owns the runtime side:
// it registers integrations by domain, sets entries up on start, schedules
// retries when a device is not ready, flags entries for reauthentication
// when credentials expire, and unloads instances on shutdown or reload.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────┐
//	│                         Manager                            │
//	│                                                            │
//	│  ┌──────────────┐   ┌──────────────────┐   ┌────────────┐  │
//	│  │  Integration │   │    Repository    │   │  Instances │  │
//	│  │   registry   │   │ (config_entries) │   │ (runtime)  │  │
//	│  └──────────────┘   └──────────────────┘   └────────────┘  │
//	└────────────────────────────────────────────────────────────┘
//	       Setup() per entry            SQLite          entities +
//	                                                    coordinators
//
// # Setup outcomes
//
//   - success: entry state becomes loaded; its entities are queryable.
//   - coordinator.ErrNotReady (device unreachable): state setup-retry, a
//     retry is scheduled with growing delay, nothing is surfaced as fatal.
//   - auth failure: state needs-reauth, no automatic retry; the entry waits
//     for fresh credentials via Reauth.
//   - anything else: state setup-error.
//
// Unloading shuts the instance's coordinators down (cancelling timers and
// in-flight work) before closing its device clients.
package entry

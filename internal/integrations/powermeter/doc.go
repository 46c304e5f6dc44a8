// Package powermeter integrates HTTP energy meters into Hearth Core.
//
// The meter exposes a read-only JSON status endpoint. One polling
// coordinator fetches the full reading; sensor entities project individual
// fields out of it. Per-phase fields are optional in the firmware payload:
// single-phase meters omit them, and a phase sensor whose field is absent
// reports unavailable without affecting its siblings.
//
// Entry data:
//   - host: meter address, e.g. "192.168.1.40"
//   - api_key: token sent as X-API-Key (optional, firmware dependent)
//
// Entry options:
//   - scan_interval: polling cadence in seconds (default 30)
package powermeter

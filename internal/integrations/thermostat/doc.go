// Package thermostat integrates local HTTP thermostats into Hearth Core.
//
// The firmware exposes a read endpoint (/query/info) and a control
// endpoint (/control). Control responses carry a boolean "success" field;
// some firmware revisions return success:false with no reason when a
// command is out of range. The client converts both shapes into typed
// rejection errors at the boundary, so callers always see why a write
// failed instead of a silent no-op.
//
// Entities: current temperature and humidity sensors, a heating binary
// sensor, a target temperature number (range-checked before sending), and
// an operating mode select. The mode select is optimistic because the
// firmware reports the new mode only on its next internal cycle.
//
// Entry data:
//   - host: thermostat address
//   - pin: control PIN, sent with every write (optional)
//
// Entry options:
//   - scan_interval: polling cadence in seconds (default 60)
package thermostat

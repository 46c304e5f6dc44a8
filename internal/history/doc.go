// Package history records entity state changes.
//
// A Recorder follows entity lifetimes through the entry manager's load
// and unload hooks. Each tracked entity gets a coordinator subscription;
// on every publish the recorder compares the entity's state and
// availability against what it last wrote and appends a row only when
// something actually changed. Identical republished snapshots therefore
// produce no duplicate rows.
//
//	Manager ──load/unload──▶ Recorder ──change rows──▶ SQLite (recent, pruned)
//	                             │
//	                             └──numeric series──▶ InfluxDB (long-term)
//
// The SQLite store is the recent window serving API queries; rows older
// than the configured retention are pruned on a timer. Numeric states are
// additionally forwarded to InfluxDB when a client is configured.
package history

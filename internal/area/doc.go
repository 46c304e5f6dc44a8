// Package area provides the spatial registry for the hub.
//
// An Area is a named physical space (kitchen, garage, upstairs hallway)
// that config entries are assigned to, so clients can group a room's
// entities together. The registry is flat: nesting added nothing for the
// deployments this serves.
//
// The package provides a Repository interface with a SQLite implementation.
// SQLiteRepository is safe for concurrent use from multiple goroutines.
package area

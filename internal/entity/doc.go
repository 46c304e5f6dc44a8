// Package entity provides the read/write projections exposed over a
// coordinator's snapshot.
//
// An entity is one data point or control surface (a sensor, a switch, a
// number) backed by exactly one coordinator. It holds no state of its own:
// every read derives from the coordinator's last published snapshot through
// a Description, a small strategy object declared in an immutable
// per-integration table.
//
//	descs := []entity.Description[Data, *Client]{
//	    {Key: "power", Name: "Power", Kind: entity.KindSensor, Unit: "W",
//	        Read: func(d Data) (entity.Value, bool) { ... }},
//	    {Key: "target", Name: "Target temperature", Kind: entity.KindNumber,
//	        Read: ..., Write: func(ctx, c *Client, v entity.Value) error { ... }},
//	}
//
// Reads never panic: a field missing from the snapshot yields a none Value
// and flips only that entity unavailable, leaving siblings on the same
// coordinator untouched. Write paths call the device client directly and
// then request a coordinator refresh for the authoritative state, or, for
// optimistic entities whose devices lag their own reporting, display the
// written value until the next publish.
//
// The non-generic Handle interface is what the API, history recorder, and
// WebSocket hub consume, so none of them care which integration produced an
// entity.
package entity

// Package client defines the contract between Hearth Core and the device
// clients that talk to real hardware or vendor cloud APIs.
//
// A device client performs all network I/O for one configured device or
// account. The rest of the system never sees vendor errors directly: every
// failure a client returns is classified into one of four kinds at the
// client boundary, and the coordinator and entity layers act purely on the
// kind.
//
// # Error Kinds
//
//   - KindTransient: connectivity loss, timeouts. Retried on the normal
//     polling cadence; dependent entities report unavailable meanwhile.
//   - KindAuth: credentials invalid or expired. Never retried automatically;
//     the owning config entry is flagged for reauthentication.
//   - KindMalformed: the device answered with something unparseable. Logged
//     with the payload identifier and otherwise treated as transient.
//   - KindRejected: a command was refused by the device (write paths only).
//     Surfaced to the caller with the device's reason, never retried.
//
// # Usage
//
//	data, err := c.Fetch(ctx)
//	switch client.KindOf(err) {
//	case client.KindAuth:
//	    // flag entry for reauth
//	case client.KindTransient, client.KindMalformed:
//	    // keep last data, retry later
//	}
//
// Clients must signal failure by error, never by value. Adapters over
// firmware APIs that report failure as a boolean result convert that to a
// typed error here, at the boundary, so callers can rely on a strict
// error-vs-success contract.
package client

// Package coordinator implements the update coordinator: the single source
// of truth for one device's or account's state within Hearth Core.
//
// A coordinator owns one logical refresh operation. Polling coordinators run
// it on a fixed interval; push coordinators skip the timer and publish data
// directly when their transport delivers a message. Either way, entities
// read the coordinator's last published snapshot and are notified after
// every publish.
//
// # Architecture
//
//	Device Client ──Fetch──▶ Coordinator ──notify──▶ Entities / Recorder / API hub
//	        ▲                     ▲
//	        └──── write paths ────┘ (RequestRefresh after a successful command)
//
// # Guarantees
//
//   - last data is replaced only by a successful refresh; failures keep the
//     previous snapshot and flip the success flag instead.
//   - At most one fetch is in flight per coordinator. Concurrent refresh
//     requests join the in-flight fetch rather than starting another, and
//     RequestRefresh coalesces bursts through a debounce window.
//   - Listeners are notified only after the snapshot swap is complete; all
//     listeners of one publish observe the same snapshot.
//   - Publishing data identical to the current snapshot is not an error: it
//     refreshes the last-reported timestamp and still notifies listeners.
//
// # Failure policy
//
// Fetch errors are dispatched on their client.Kind. Transient and malformed
// failures are logged, keep the old data, and retry on the normal cadence.
// An auth failure stops the polling loop and fires the OnAuthFailure
// callback so the owning config entry can be flagged for reauthentication;
// no further fetches happen until the entry is reloaded with fresh
// credentials.
//
// # Usage
//
//	coord := coordinator.New(coordinator.Config[powermeter.Data]{
//	    Name:     "powermeter",
//	    Client:   pmClient,
//	    Interval: 30 * time.Second,
//	    Logger:   log,
//	})
//	if err := coord.FirstRefresh(ctx); err != nil {
//	    return err // ErrNotReady for transient failure, auth error otherwise
//	}
//	coord.Start(ctx)
//	defer coord.Shutdown()
package coordinator

package client

import "context"

// Client is the fetch contract a coordinator polls.
//
// Fetch returns the device's complete current state as one value. Failures
// must be classified with this package's constructors; a Fetch that returns
// an unclassified error is treated as transient.
//
// Close releases the client's network resources. It is called exactly once,
// after the owning coordinator has shut down.
type Client[T any] interface {
	Fetch(ctx context.Context) (T, error)
	Close() error
}

// FetchFunc adapts a function to the Client interface for clients with no
// connection state to close.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Fetch calls f.
func (f FetchFunc[T]) Fetch(ctx context.Context) (T, error) { return f(ctx) }

// Close is a no-op.
func (FetchFunc[T]) Close() error { return nil }

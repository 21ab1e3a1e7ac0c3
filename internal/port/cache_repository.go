package port

import "context"

type IdempotencyStore interface {
	// Reserve claims a key for an in-flight request, returns false if already claimed
	Reserve(ctx context.Context, key string) (bool, error)

	// Lookup returns the stored result for a key; completed is false while the
	// first request is still running
	Lookup(ctx context.Context, key string) (result []byte, completed bool, err error)

	// Complete stores the result of the request that holds the reservation
	Complete(ctx context.Context, key string, result []byte) error

	// Release drops a reservation after a failed request
	Release(ctx context.Context, key string) error
}

package profile

import "context"

// Store is a key-value store from identity key to profile. Implementations
// must serialize Update calls per key so concurrent saves never lose data,
// without one global lock across unrelated keys.
type Store interface {
	// Get returns nil, nil when no profile exists.
	Get(ctx context.Context, identityKey string) (*Profile, error)

	// Ensure inserts p unless a profile already exists for its key.
	Ensure(ctx context.Context, p Profile) error

	// Update reads the current record (nil when absent), applies fn and
	// writes the result, all atomically for the key.
	Update(ctx context.Context, identityKey string, fn func(current *Profile) Profile) (Profile, error)
}

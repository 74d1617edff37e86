package record

import "context"

// Store is the key-value collaborator records are persisted in.
//
// Get returns the record stored under key, already resolved to its variant.
// Implementations signal an absent key and structural misuse (such as an
// empty key) with distinct errors; callers of Fetch receive them unchanged.
type Store interface {
	Get(ctx context.Context, key string) (Variant, error)
	Set(ctx context.Context, key string, v Variant) error
	Has(ctx context.Context, key string) (bool, error)
	Close() error
}

// Deleter is implemented by stores that can remove keys.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

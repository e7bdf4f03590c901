package domain

import "context"

type ListingRepository interface {
	Create(ctx context.Context, listing *Listing) error
	FindByID(ctx context.Context, id string) (*Listing, error)
	// FindByFilter runs a fresh query on every call; results are ordered by
	// spec.Sort with ties in insertion order, then offset, then limit.
	FindByFilter(ctx context.Context, spec FilterSpec) ([]*Listing, error)
}

type TagRepository interface {
	FindAll(ctx context.Context) ([]*Tag, error)
}

// Storage persists image bytes under a name. Write must be atomic: readers see
// either the complete object or nothing.
type Storage interface {
	Write(ctx context.Context, name string, data []byte) error
}

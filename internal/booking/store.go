package booking

import (
	"context"

	"movebooking/internal/events"
	"movebooking/internal/listing"
)

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// Store persists bookings. Every write also records a timeline event and an
// audit row in the same transaction.
type Store interface {
	Create(ctx context.Context, b Booking, actor Actor) (*Booking, error)
	Get(ctx context.Context, scope Scope, id string) (*Booking, error)
	List(ctx context.Context, q *listing.Query) ([]Booking, int, error)
	// Mutate locks the row, runs fn against it and persists the result.
	Mutate(ctx context.Context, scope Scope, id string, actor Actor, fn MutateFunc) (*Booking, error)
	Delete(ctx context.Context, scope Scope, id string, actor Actor) error
	Events(ctx context.Context, id string) ([]events.Event, error)
}

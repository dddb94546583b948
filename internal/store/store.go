package store

import "context"

// Collection names used by the core. Each one is persisted as a full
// snapshot: every mutation rewrites the whole collection.
const (
	CollectionUsers       = "users"
	CollectionMessages    = "messages"
	CollectionActiveUsers = "active_users"
)

// Store is the durable snapshot capability the core writes through to.
// Load decodes the current snapshot of a collection into out; a collection
// that has never been saved decodes to the zero value and is not an error.
// Save overwrites the collection with the given value.
type Store interface {
	Load(ctx context.Context, collection string, out interface{}) error
	Save(ctx context.Context, collection string, v interface{}) error
}

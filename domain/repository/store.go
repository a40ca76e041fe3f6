package repository

import (
	"context"
	"time"
)

// Filter narrows a document Query. Equals matches top-level fields exactly, Missing
// keeps documents where the fields are absent or null, and Since keeps documents
// whose SinceField is at or after the given instant.
type Filter struct {
	Equals     map[string]interface{}
	Missing    []string
	SinceField string
	Since      *time.Time
	SortField  string
	Descending bool
	Limit      int
}

// IStore is a generic document store keyed by (collection, key).
// Get returns model.ErrNotFound when the key is absent.
type IStore interface {
	Get(ctx context.Context, collection, key string, out interface{}) error
	Set(ctx context.Context, collection, key string, doc interface{}) error
	Delete(ctx context.Context, collection, key string) error
	// Query decodes matching documents into out, which must be a pointer to a slice.
	Query(ctx context.Context, collection string, filter Filter, out interface{}) error
}

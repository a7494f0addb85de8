// Package directory exposes the marketplace's user and listing
// directories to the chat core as narrow read-only lookups.
package directory

import (
	"context"

	"github.com/rentora/chatd/internal/chaterr"
	"github.com/rentora/chatd/internal/models"
	"github.com/rentora/chatd/internal/store"
)

// IdentityLookup resolves a user id to its directory record.
type IdentityLookup interface {
	User(ctx context.Context, id int64) (*models.User, error)
}

// ResourceLookup resolves a listing id to its owner and display data.
type ResourceLookup interface {
	Listing(ctx context.Context, id int64) (*models.Listing, error)
}

// StoreDirectory serves both lookups from the durable store.
type StoreDirectory struct {
	store store.DataStore
}

// New creates a StoreDirectory backed by the given store.
func New(s store.DataStore) *StoreDirectory {
	return &StoreDirectory{store: s}
}

// User resolves a user id, returning a not-found error when the account
// no longer exists.
func (d *StoreDirectory) User(ctx context.Context, id int64) (*models.User, error) {
	user, err := d.store.GetUser(ctx, id)
	if err != nil {
		return nil, chaterr.Persistence(err, "user lookup failed")
	}
	if user == nil {
		return nil, chaterr.NotFound("user %d does not exist", id)
	}
	return user, nil
}

// Listing resolves a listing id, returning a not-found error when the
// listing no longer exists.
func (d *StoreDirectory) Listing(ctx context.Context, id int64) (*models.Listing, error) {
	listing, err := d.store.GetListing(ctx, id)
	if err != nil {
		return nil, chaterr.Persistence(err, "listing lookup failed")
	}
	if listing == nil {
		return nil, chaterr.NotFound("listing %d does not exist", id)
	}
	return listing, nil
}

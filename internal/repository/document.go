package repository

import (
	"context"

	"entityapi/internal/model"
)

// EntityGateway is the contract between the request layer and a document
// store. Identifiers cross this boundary in their display (string) form; each
// implementation converts them to its native form and returns
// ErrInvalidIdentifier when that fails.
//
// Every document returned carries its identifier under model.IDField as a
// string. Store failures are reported as *StoreError.
type EntityGateway interface {
	// Insert stores doc as a new document in collection and returns its
	// identifier. The collection is created on first insert.
	Insert(ctx context.Context, collection string, doc model.Document) (string, error)

	// Find returns every document matching filter, reduced to proj.
	// Ordering is store-defined.
	Find(ctx context.Context, collection string, filter model.Filter, proj model.Projection) ([]model.Document, error)

	// FindPage is Find with a skip/limit window applied.
	FindPage(ctx context.Context, collection string, filter model.Filter, proj model.Projection, page model.PageSpec) ([]model.Document, error)

	// FindByIdentifier returns a single document or ErrNotFound.
	FindByIdentifier(ctx context.Context, collection, id string) (model.Document, error)

	// UpdateByIdentifier merges the fields of patch into the document and
	// reports whether a document with that identifier existed.
	UpdateByIdentifier(ctx context.Context, collection, id string, patch model.Document) (bool, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// Package mongo implements repository.EntityGateway on MongoDB.
package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"entityapi/internal/model"
	"entityapi/internal/repository"
)

// EntityMongo maps each API collection onto a MongoDB collection of the same
// name inside one database.
type EntityMongo struct {
	db *mongo.Database
}

// NewEntityMongo creates a gateway over db. The caller owns the client's
// lifecycle.
func NewEntityMongo(db *mongo.Database) *EntityMongo {
	return &EntityMongo{db: db}
}

var _ repository.EntityGateway = (*EntityMongo)(nil)

// Insert stores doc with a freshly generated ObjectID.
func (g *EntityMongo) Insert(ctx context.Context, coll string, doc model.Document) (string, error) {
	id := repository.NewIdentifier()
	oid, err := repository.ParseIdentifier(id)
	if err != nil {
		return "", err
	}

	body := make(bson.D, 0, len(doc)+1)
	body = append(body, bson.E{Key: model.IDField, Value: oid})
	for _, k := range doc.Keys() {
		if k == model.IDField {
			continue
		}
		body = append(body, bson.E{Key: k, Value: toBSON(doc[k])})
	}

	if _, err := g.db.Collection(coll).InsertOne(ctx, body); err != nil {
		return "", repository.WrapStoreError("insert", err)
	}
	return id, nil
}

func (g *EntityMongo) Find(ctx context.Context, coll string, filter model.Filter, proj model.Projection) ([]model.Document, error) {
	opts := options.Find()
	if p := projectionToBSON(proj); p != nil {
		opts.SetProjection(p)
	}
	return g.find(ctx, coll, filter, opts)
}

func (g *EntityMongo) FindPage(ctx context.Context, coll string, filter model.Filter, proj model.Projection, page model.PageSpec) ([]model.Document, error) {
	opts := options.Find().SetSkip(page.Skip).SetLimit(page.Limit)
	if p := projectionToBSON(proj); p != nil {
		opts.SetProjection(p)
	}
	return g.find(ctx, coll, filter, opts)
}

func (g *EntityMongo) find(ctx context.Context, coll string, filter model.Filter, opts *options.FindOptions) ([]model.Document, error) {
	cursor, err := g.db.Collection(coll).Find(ctx, filterToBSON(filter), opts)
	if err != nil {
		return nil, repository.WrapStoreError("find", err)
	}
	defer cursor.Close(ctx)

	out := make([]model.Document, 0)
	for cursor.Next(ctx) {
		var raw bson.D
		if err := cursor.Decode(&raw); err != nil {
			return nil, repository.WrapStoreError("decode", err)
		}
		doc, err := documentFromD(raw)
		if err != nil {
			return nil, repository.WrapStoreError("decode", err)
		}
		out = append(out, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, repository.WrapStoreError("find", err)
	}
	return out, nil
}

func (g *EntityMongo) FindByIdentifier(ctx context.Context, coll, id string) (model.Document, error) {
	oid, err := repository.ParseIdentifier(id)
	if err != nil {
		return nil, err
	}

	var raw bson.D
	err = g.db.Collection(coll).FindOne(ctx, bson.D{{Key: model.IDField, Value: oid}}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, repository.WrapStoreError("find one", err)
	}

	doc, err := documentFromD(raw)
	if err != nil {
		return nil, repository.WrapStoreError("decode", err)
	}
	return doc, nil
}

// UpdateByIdentifier applies patch with $set so fields not named in patch
// keep their values.
func (g *EntityMongo) UpdateByIdentifier(ctx context.Context, coll, id string, patch model.Document) (bool, error) {
	oid, err := repository.ParseIdentifier(id)
	if err != nil {
		return false, err
	}

	update := bson.D{{Key: "$set", Value: documentToBSON(patch)}}
	res, err := g.db.Collection(coll).UpdateOne(ctx, bson.D{{Key: model.IDField, Value: oid}}, update)
	if err != nil {
		return false, repository.WrapStoreError("update", err)
	}
	return res.MatchedCount > 0, nil
}

func (g *EntityMongo) Ping(ctx context.Context) error {
	if err := g.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return repository.WrapStoreError("ping", err)
	}
	return nil
}

// Package memory implements repository.EntityGateway in process memory.
// Data is lost on restart.
package memory

import (
	"context"
	"sync"

	"entityapi/internal/model"
	"entityapi/internal/query"
	"entityapi/internal/repository"
)

type collection struct {
	order []string
	docs  map[string]model.Document
}

// EntityMemory keeps collections in memory, in insertion order.
// Safe for concurrent use.
type EntityMemory struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewEntityMemory returns an empty in-memory gateway.
func NewEntityMemory() *EntityMemory {
	return &EntityMemory{collections: make(map[string]*collection)}
}

var _ repository.EntityGateway = (*EntityMemory)(nil)

func (g *EntityMemory) Insert(_ context.Context, coll string, doc model.Document) (string, error) {
	id := repository.NewIdentifier()
	stored := doc.Clone()
	if stored == nil {
		stored = model.Document{}
	}
	stored[model.IDField] = model.String(id)

	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.collections[coll]
	if !ok {
		c = &collection{docs: make(map[string]model.Document)}
		g.collections[coll] = c
	}
	c.order = append(c.order, id)
	c.docs[id] = stored
	return id, nil
}

func (g *EntityMemory) Find(ctx context.Context, coll string, filter model.Filter, proj model.Projection) ([]model.Document, error) {
	return g.find(coll, filter, proj, 0, -1), nil
}

func (g *EntityMemory) FindPage(ctx context.Context, coll string, filter model.Filter, proj model.Projection, page model.PageSpec) ([]model.Document, error) {
	return g.find(coll, filter, proj, page.Skip, page.Limit), nil
}

// find scans in insertion order. A negative limit means no limit.
func (g *EntityMemory) find(coll string, filter model.Filter, proj model.Projection, skip, limit int64) []model.Document {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]model.Document, 0)
	c, ok := g.collections[coll]
	if !ok {
		return out
	}
	for _, id := range c.order {
		if limit >= 0 && int64(len(out)) >= limit {
			break
		}
		doc := c.docs[id]
		if !query.Match(filter, doc) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, proj.Apply(doc.Clone()))
	}
	return out
}

func (g *EntityMemory) FindByIdentifier(_ context.Context, coll, id string) (model.Document, error) {
	key, err := repository.CanonicalIdentifier(id)
	if err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.collections[coll]
	if !ok {
		return nil, repository.ErrNotFound
	}
	doc, ok := c.docs[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return doc.Clone(), nil
}

func (g *EntityMemory) UpdateByIdentifier(_ context.Context, coll, id string, patch model.Document) (bool, error) {
	key, err := repository.CanonicalIdentifier(id)
	if err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.collections[coll]
	if !ok {
		return false, nil
	}
	doc, ok := c.docs[key]
	if !ok {
		return false, nil
	}
	doc.Merge(patch)
	doc[model.IDField] = model.String(key)
	return true, nil
}

func (g *EntityMemory) Ping(context.Context) error { return nil }

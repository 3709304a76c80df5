// Package objectstore implements repository.EntityGateway on an S3-compatible
// bucket. Each document is one JSON object stored at <collection>/<id>.json;
// filters are evaluated after the objects are read back.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"entityapi/internal/model"
	"entityapi/internal/query"
	"entityapi/internal/repository"
	"entityapi/internal/storage"
)

const objectSuffix = ".json"

// EntityObjectStore stores documents as objects in a bucket.
type EntityObjectStore struct {
	st storage.Storage
}

// NewEntityObjectStore creates a gateway on top of st.
func NewEntityObjectStore(st storage.Storage) *EntityObjectStore {
	return &EntityObjectStore{st: st}
}

var _ repository.EntityGateway = (*EntityObjectStore)(nil)

func objectKey(coll, id string) string {
	return coll + "/" + id + objectSuffix
}

func checkCollection(coll string) error {
	if coll == "" || strings.Contains(coll, "/") {
		return &repository.StoreError{Op: "collection", Err: fmt.Errorf("collection name %q cannot be used as a key prefix", coll)}
	}
	return nil
}

// Insert writes doc as a new object.
func (r *EntityObjectStore) Insert(ctx context.Context, coll string, doc model.Document) (string, error) {
	if err := checkCollection(coll); err != nil {
		return "", err
	}
	id := repository.NewIdentifier()
	if err := r.write(ctx, coll, id, doc); err != nil {
		return "", repository.WrapStoreError("insert", err)
	}
	return id, nil
}

// Find returns every matching document in key order.
func (r *EntityObjectStore) Find(ctx context.Context, coll string, filter model.Filter, proj model.Projection) ([]model.Document, error) {
	return r.scan(ctx, coll, filter, proj, 0, -1)
}

// FindPage returns one skip/limit window of the matching documents.
func (r *EntityObjectStore) FindPage(ctx context.Context, coll string, filter model.Filter, proj model.Projection, page model.PageSpec) ([]model.Document, error) {
	return r.scan(ctx, coll, filter, proj, page.Skip, page.Limit)
}

// scan reads the collection prefix object by object. A negative limit means
// no limit.
func (r *EntityObjectStore) scan(ctx context.Context, coll string, filter model.Filter, proj model.Projection, skip, limit int64) ([]model.Document, error) {
	if err := checkCollection(coll); err != nil {
		return nil, err
	}
	objects, err := r.st.List(ctx, coll+"/")
	if err != nil {
		return nil, repository.WrapStoreError("find", err)
	}

	out := make([]model.Document, 0)
	for _, obj := range objects {
		if limit >= 0 && int64(len(out)) >= limit {
			break
		}
		id, ok := idFromKey(coll, obj.Key)
		if !ok {
			continue
		}
		doc, err := r.read(ctx, obj.Key, id)
		if errors.Is(err, repository.ErrNotFound) {
			// removed between listing and reading
			continue
		}
		if err != nil {
			return nil, err
		}
		if !query.Match(filter, doc) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, proj.Apply(doc))
	}
	return out, nil
}

// FindByIdentifier reads a single object.
func (r *EntityObjectStore) FindByIdentifier(ctx context.Context, coll, id string) (model.Document, error) {
	if err := checkCollection(coll); err != nil {
		return nil, err
	}
	key, err := repository.CanonicalIdentifier(id)
	if err != nil {
		return nil, err
	}
	return r.read(ctx, objectKey(coll, key), key)
}

// UpdateByIdentifier reads, merges and rewrites the object. Concurrent
// updates of the same document are last-writer-wins.
func (r *EntityObjectStore) UpdateByIdentifier(ctx context.Context, coll, id string, patch model.Document) (bool, error) {
	if err := checkCollection(coll); err != nil {
		return false, err
	}
	key, err := repository.CanonicalIdentifier(id)
	if err != nil {
		return false, err
	}
	doc, err := r.read(ctx, objectKey(coll, key), key)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	doc.Merge(patch)
	if err := r.write(ctx, coll, key, doc); err != nil {
		return false, repository.WrapStoreError("update", err)
	}
	return true, nil
}

// Ping checks that the bucket is reachable.
func (r *EntityObjectStore) Ping(ctx context.Context) error {
	if err := r.st.Ping(ctx); err != nil {
		return repository.WrapStoreError("ping", err)
	}
	return nil
}

func (r *EntityObjectStore) write(ctx context.Context, coll, id string, doc model.Document) error {
	body := doc.Clone()
	if body == nil {
		body = model.Document{}
	}
	body[model.IDField] = model.String(id)
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = r.st.Put(ctx, objectKey(coll, id), bytes.NewReader(raw), storage.PutObjectOptions{
		Size:        int64(len(raw)),
		ContentType: "application/json",
	})
	return err
}

func (r *EntityObjectStore) read(ctx context.Context, key, id string) (model.Document, error) {
	rc, _, err := r.st.Get(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, repository.WrapStoreError("get", err)
	}
	defer rc.Close()

	doc, err := model.DecodeDocument(rc)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, repository.WrapStoreError("decode", err)
	}
	doc[model.IDField] = model.String(id)
	return doc, nil
}

// idFromKey extracts the identifier from <coll>/<id>.json, skipping any
// object that does not follow the layout.
func idFromKey(coll, key string) (string, bool) {
	name, ok := strings.CutPrefix(key, coll+"/")
	if !ok {
		return "", false
	}
	name, ok = strings.CutSuffix(name, objectSuffix)
	if !ok {
		return "", false
	}
	id, err := repository.CanonicalIdentifier(name)
	if err != nil {
		return "", false
	}
	return id, true
}

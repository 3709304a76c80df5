package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"entityapi/internal/model"
	"entityapi/internal/repository"
)

// EntityPostgres is a PostgreSQL implementation of repository.EntityGateway.
// All collections share the entities table; each row holds one document as
// JSONB keyed by (collection, id).
type EntityPostgres struct {
	db *sql.DB
}

// NewEntityPostgres creates a new EntityPostgres gateway.
func NewEntityPostgres(db *sql.DB) *EntityPostgres {
	return &EntityPostgres{db: db}
}

var _ repository.EntityGateway = (*EntityPostgres)(nil)

// Insert stores doc under a new identifier.
func (r *EntityPostgres) Insert(ctx context.Context, coll string, doc model.Document) (string, error) {
	const q = `
		INSERT INTO entities (collection, id, doc)
		VALUES ($1, $2, $3::jsonb)
	`
	body := doc.Clone()
	delete(body, model.IDField)
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	id := repository.NewIdentifier()
	if _, err := r.db.ExecContext(ctx, q, coll, id, string(raw)); err != nil {
		return "", repository.WrapStoreError("insert", err)
	}
	return id, nil
}

// Find returns every matching document of the collection.
func (r *EntityPostgres) Find(ctx context.Context, coll string, filter model.Filter, proj model.Projection) ([]model.Document, error) {
	b := newWhereBuilder(coll)
	where, err := b.Build(filter)
	if err != nil {
		return nil, fmt.Errorf("translate filter: %w", err)
	}
	q := `SELECT id, doc FROM entities WHERE collection = $1 AND ` + where + ` ORDER BY created_at, id`
	return r.query(ctx, q, b.args, proj)
}

// FindPage returns one LIMIT/OFFSET window of the matching documents.
func (r *EntityPostgres) FindPage(ctx context.Context, coll string, filter model.Filter, proj model.Projection, page model.PageSpec) ([]model.Document, error) {
	b := newWhereBuilder(coll)
	where, err := b.Build(filter)
	if err != nil {
		return nil, fmt.Errorf("translate filter: %w", err)
	}
	q := `SELECT id, doc FROM entities WHERE collection = $1 AND ` + where +
		` ORDER BY created_at, id LIMIT ` + b.arg(page.Limit) + ` OFFSET ` + b.arg(page.Skip)
	return r.query(ctx, q, b.args, proj)
}

func (r *EntityPostgres) query(ctx context.Context, q string, args []any, proj model.Projection) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, repository.WrapStoreError("find", err)
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, proj.Apply(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, repository.WrapStoreError("find", err)
	}
	return items, nil
}

// FindByIdentifier fetches a single document by its identifier.
func (r *EntityPostgres) FindByIdentifier(ctx context.Context, coll, id string) (model.Document, error) {
	const q = `
		SELECT id, doc
		FROM entities
		WHERE collection = $1 AND id = $2
	`
	key, err := repository.CanonicalIdentifier(id)
	if err != nil {
		return nil, err
	}

	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, coll, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateByIdentifier merges patch into the stored document with the JSONB
// concatenation operator, which replaces only the top-level keys it names.
func (r *EntityPostgres) UpdateByIdentifier(ctx context.Context, coll, id string, patch model.Document) (bool, error) {
	const q = `
		UPDATE entities
		SET doc = doc || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2
	`
	key, err := repository.CanonicalIdentifier(id)
	if err != nil {
		return false, err
	}
	body := patch.Clone()
	delete(body, model.IDField)
	raw, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("encode patch: %w", err)
	}

	res, err := r.db.ExecContext(ctx, q, coll, key, string(raw))
	if err != nil {
		return false, repository.WrapStoreError("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, repository.WrapStoreError("update", err)
	}
	return n > 0, nil
}

// Ping verifies database connectivity.
func (r *EntityPostgres) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return repository.WrapStoreError("ping", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (model.Document, error) {
	var (
		id  string
		raw []byte
	)
	if err := s.Scan(&id, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, repository.WrapStoreError("scan", err)
	}
	doc, err := model.DecodeDocument(bytes.NewReader(raw))
	if err != nil {
		return nil, repository.WrapStoreError("decode", err)
	}
	doc[model.IDField] = model.String(id)
	return doc, nil
}

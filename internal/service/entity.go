package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"entityapi/internal/model"
	"entityapi/internal/query"
	"entityapi/internal/repository"
)

var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrInvalidBody    = errors.New("invalid body")
)

var tracer = otel.Tracer("entityapi/internal/service")

// ListParams carries the raw list query parameters as received.
type ListParams struct {
	Query    string
	Fields   string
	Page     string
	PageSize string
}

// EntityService defines the entity use cases exposed over HTTP.
type EntityService interface {
	// Create validates doc and stores it, returning the new identifier.
	Create(ctx context.Context, collection string, doc model.Document) (string, error)

	// List parses the query, projection and page parameters and returns one
	// page of matching documents.
	List(ctx context.Context, collection string, params ListParams) ([]model.Document, error)

	// Get returns a single document by identifier.
	Get(ctx context.Context, collection, id string) (model.Document, error)

	// Update merges the top-level fields of patch into the document.
	Update(ctx context.Context, collection, id string, patch model.Document) error

	// Ping checks the underlying store.
	Ping(ctx context.Context) error
}

// Options tune service policy.
type Options struct {
	// MaxPageSize rejects larger page sizes; 0 disables the limit.
	MaxPageSize int64
}

type entityService struct {
	gw   repository.EntityGateway
	opts Options
}

// NewEntityService constructs a new EntityService.
func NewEntityService(gw repository.EntityGateway, opts Options) EntityService {
	return &entityService{gw: gw, opts: opts}
}

func (s *entityService) Create(ctx context.Context, collection string, doc model.Document) (string, error) {
	ctx, span := startSpan(ctx, "EntityService.Create", collection)
	defer span.End()

	if err := validateBody(doc, false); err != nil {
		return "", fail(span, err)
	}
	id, err := s.gw.Insert(ctx, collection, doc)
	if err != nil {
		return "", fail(span, err)
	}
	span.SetAttributes(attribute.String("entity.id", id))
	return id, nil
}

func (s *entityService) List(ctx context.Context, collection string, params ListParams) ([]model.Document, error) {
	ctx, span := startSpan(ctx, "EntityService.List", collection)
	defer span.End()

	filter, err := query.ParseFilter(params.Query)
	if err != nil {
		return nil, fail(span, err)
	}
	proj, err := query.BuildProjection(params.Fields)
	if err != nil {
		return nil, fail(span, err)
	}
	page, err := query.Paginate(params.Page, params.PageSize)
	if err != nil {
		return nil, fail(span, err)
	}
	if s.opts.MaxPageSize > 0 && page.Limit > s.opts.MaxPageSize {
		return nil, fail(span, &query.InvalidPaginationError{
			Param:  query.ParamPageSize,
			Value:  strconv.FormatInt(page.Limit, 10),
			Reason: fmt.Sprintf("must be at most %d", s.opts.MaxPageSize),
		})
	}
	span.SetAttributes(
		attribute.Int64("page.skip", page.Skip),
		attribute.Int64("page.limit", page.Limit),
	)

	docs, err := s.gw.FindPage(ctx, collection, filter, proj, page)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("page.count", len(docs)))
	return docs, nil
}

func (s *entityService) Get(ctx context.Context, collection, id string) (model.Document, error) {
	ctx, span := startSpan(ctx, "EntityService.Get", collection)
	defer span.End()
	span.SetAttributes(attribute.String("entity.id", id))

	doc, err := s.gw.FindByIdentifier(ctx, collection, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fail(span, ErrEntityNotFound)
	}
	if err != nil {
		return nil, fail(span, err)
	}
	return doc, nil
}

func (s *entityService) Update(ctx context.Context, collection, id string, patch model.Document) error {
	ctx, span := startSpan(ctx, "EntityService.Update", collection)
	defer span.End()
	span.SetAttributes(attribute.String("entity.id", id))

	if err := validateBody(patch, true); err != nil {
		return fail(span, err)
	}
	matched, err := s.gw.UpdateByIdentifier(ctx, collection, id, patch)
	if err != nil {
		return fail(span, err)
	}
	if !matched {
		return fail(span, ErrEntityNotFound)
	}
	return nil
}

func (s *entityService) Ping(ctx context.Context) error {
	return s.gw.Ping(ctx)
}

// validateBody rejects documents that would be read back as operators or
// nested paths, or that try to set the identifier.
func validateBody(doc model.Document, requireFields bool) error {
	if requireFields && len(doc) == 0 {
		return fmt.Errorf("%w: no fields to update", ErrInvalidBody)
	}
	for _, key := range doc.Keys() {
		switch {
		case key == model.IDField:
			return fmt.Errorf("%w: field %q is assigned by the store", ErrInvalidBody, key)
		case key == "":
			return fmt.Errorf("%w: empty field name", ErrInvalidBody)
		case strings.HasPrefix(key, "$"):
			return fmt.Errorf("%w: field %q must not start with '$'", ErrInvalidBody, key)
		case strings.Contains(key, "."):
			return fmt.Errorf("%w: field %q must not contain '.'", ErrInvalidBody, key)
		}
	}
	return nil
}

func startSpan(ctx context.Context, name, collection string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("entity.collection", collection)))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

package handler

import (
	"bytes"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"entityapi/internal/model"
	"entityapi/internal/service"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterRoutes attaches the health and entity routes to app. The entity
// routes match any first path segment, so fixed routes such as /metrics and
// /swagger/* must be registered before calling it.
func RegisterRoutes(app *fiber.App, svc service.EntityService, log *zap.Logger) {
	app.Get("/health", HealthCheck(svc))
	app.Get("/healthz", LivenessProbe())

	app.Post("/:collection", CreateEntity(svc, log))
	app.Get("/:collection", ListEntities(svc, log))
	app.Get("/:collection/:id", GetEntity(svc, log))
	app.Put("/:collection/:id", UpdateEntity(svc, log))
}

// HealthCheck pings the entity store.
//
//	@Summary	Store health
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	errorPayload
//	@Router		/health [get]
func HealthCheck(p Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe answers 200 while the process is serving.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// CreateEntity stores the JSON object body as a new document.
//
//	@Summary	Create an entity
//	@Tags		entities
//	@Accept		json
//	@Produce	json
//	@Param		collection	path		string	true	"Collection name"
//	@Param		body		body		object	true	"Document fields"
//	@Success	201			{object}	map[string]string
//	@Failure	400			{object}	errorPayload
//	@Failure	500			{object}	errorPayload
//	@Router		/{collection} [post]
func CreateEntity(svc service.EntityService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := model.DecodeDocument(bytes.NewReader(c.Body()))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, CodeInvalidBody, "request body must be a single JSON object")
		}

		id, err := svc.Create(c.UserContext(), collectionParam(c), doc)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	}
}

// ListEntities returns one page of the collection.
//
//	@Summary	List entities
//	@Tags		entities
//	@Produce	json
//	@Param		collection	path		string	true	"Collection name"
//	@Param		query		query		string	false	"JSON filter object"	default({})
//	@Param		fields		query		string	false	"Comma separated field list"
//	@Param		page		query		int		false	"1-based page number"	default(1)
//	@Param		page_size	query		int		false	"Page size"				default(10)
//	@Success	200			{array}		object
//	@Failure	400			{object}	errorPayload
//	@Failure	500			{object}	errorPayload
//	@Router		/{collection} [get]
func ListEntities(svc service.EntityService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.List(c.UserContext(), collectionParam(c), service.ListParams{
			Query:    c.Query("query"),
			Fields:   c.Query("fields"),
			Page:     c.Query("page"),
			PageSize: c.Query("page_size"),
		})
		if err != nil {
			return writeServiceError(c, log, err)
		}
		if docs == nil {
			docs = []model.Document{}
		}
		return c.JSON(docs)
	}
}

// GetEntity returns a single document.
//
//	@Summary	Get an entity
//	@Tags		entities
//	@Produce	json
//	@Param		collection	path		string	true	"Collection name"
//	@Param		id			path		string	true	"Entity identifier"
//	@Success	200			{object}	object
//	@Failure	400			{object}	errorPayload
//	@Failure	404			{object}	errorPayload
//	@Router		/{collection}/{id} [get]
func GetEntity(svc service.EntityService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := svc.Get(c.UserContext(), collectionParam(c), utils.CopyString(c.Params("id")))
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(doc)
	}
}

// UpdateEntity merges the body's top-level fields into the document.
//
//	@Summary	Update an entity
//	@Tags		entities
//	@Accept		json
//	@Produce	json
//	@Param		collection	path		string	true	"Collection name"
//	@Param		id			path		string	true	"Entity identifier"
//	@Param		body		body		object	true	"Fields to set"
//	@Success	200			{object}	map[string]string
//	@Failure	400			{object}	errorPayload
//	@Failure	404			{object}	errorPayload
//	@Router		/{collection}/{id} [put]
func UpdateEntity(svc service.EntityService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		patch, err := model.DecodeDocument(bytes.NewReader(c.Body()))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, CodeInvalidBody, "request body must be a single JSON object")
		}

		err = svc.Update(c.UserContext(), collectionParam(c), utils.CopyString(c.Params("id")), patch)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(fiber.Map{"message": "updated"})
	}
}

// collectionParam copies the path segment out of fasthttp's reusable buffer;
// gateways may keep it beyond the request.
func collectionParam(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("collection"))
}

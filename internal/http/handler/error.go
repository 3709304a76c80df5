package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"entityapi/internal/http/middleware"
	"entityapi/internal/query"
	"entityapi/internal/repository"
	"entityapi/internal/service"
)

// Error codes carried in error.code of every error response.
const (
	CodeQueryParse        = "QUERY_PARSE_ERROR"
	CodeInvalidPagination = "INVALID_PAGINATION"
	CodeInvalidIdentifier = "INVALID_IDENTIFIER"
	CodeInvalidBody       = "INVALID_BODY"
	CodeEntityNotFound    = "EntityNotFound"
	CodeStoreError        = "STORE_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_IDENTIFIER", "EntityNotFound")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: middleware.RequestIDFrom(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps a service error onto its status and code. Client
// errors describe the offending input; store and unexpected failures are
// logged and answered with a generic message.
func writeServiceError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var (
		parseErr *query.QueryParseError
		pageErr  *query.InvalidPaginationError
		storeErr *repository.StoreError
	)
	switch {
	case errors.As(err, &parseErr):
		return writeError(c, fiber.StatusBadRequest, CodeQueryParse, parseErr.Error())
	case errors.As(err, &pageErr):
		return writeError(c, fiber.StatusBadRequest, CodeInvalidPagination, pageErr.Error())
	case errors.Is(err, repository.ErrInvalidIdentifier):
		return writeError(c, fiber.StatusBadRequest, CodeInvalidIdentifier, "invalid identifier format")
	case errors.Is(err, service.ErrInvalidBody):
		return writeError(c, fiber.StatusBadRequest, CodeInvalidBody, err.Error())
	case errors.Is(err, service.ErrEntityNotFound):
		return writeError(c, fiber.StatusNotFound, CodeEntityNotFound, "entity not found")
	case errors.As(err, &storeErr):
		log.Error("store_error",
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.String("op", storeErr.Op),
			zap.Error(err),
		)
		return writeError(c, fiber.StatusInternalServerError, CodeStoreError, "store operation failed")
	default:
		log.Error("internal_error",
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.Error(err),
		)
		return writeError(c, fiber.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "BODY_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, CodeInternal, "internal server error")
		}
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"entityapi/internal/http/middleware"
	"entityapi/internal/model"
	"entityapi/internal/query"
	"entityapi/internal/repository"
	"entityapi/internal/repository/memory"
	"entityapi/internal/service"
	serviceMocks "entityapi/internal/service/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testID = "65f1a0000000000000000001"

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	mockSvc := new(serviceMocks.MockEntityService)
	app := fiber.New()
	app.Get("/health", HealthCheck(mockSvc))

	t.Run("healthy", func(t *testing.T) {
		mockSvc.On("Ping", mock.Anything).Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		mockSvc.On("Ping", mock.Anything).Return(errors.New("db error")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateEntity(t *testing.T) {
	mockSvc := new(serviceMocks.MockEntityService)
	app := fiber.New()
	app.Use(middleware.RequestID())
	app.Post("/:collection", CreateEntity(mockSvc, zap.NewNop()))

	post := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, "users", model.Document{"name": model.String("Ana"), "age": model.Int(30)}).
			Return(testID, nil).Once()

		resp := post(`{"name":"Ana","age":30}`)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, testID, body["id"])
		mockSvc.AssertExpectations(t)
	})

	for _, raw := range []string{``, `[1,2]`, `{"a":1} {"b":2}`, `{"a":}`, `"text"`} {
		t.Run("malformed body "+raw, func(t *testing.T) {
			resp := post(raw)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decodeError(t, resp)
			assert.Equal(t, CodeInvalidBody, body.Error.Code)
			assert.NotEmpty(t, body.RequestID)
		})
	}

	t.Run("rejected by service", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, "users", mock.Anything).
			Return("", errors.Join(service.ErrInvalidBody, errors.New("field \"_id\" is assigned by the store"))).Once()

		resp := post(`{"_id":"x"}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, CodeInvalidBody, decodeError(t, resp).Error.Code)
	})

	t.Run("store error", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, "users", mock.Anything).
			Return("", &repository.StoreError{Op: "insert", Err: errors.New("connection refused")}).Once()

		resp := post(`{"name":"Ana"}`)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, CodeStoreError, body.Error.Code)
		assert.NotContains(t, body.Error.Message, "connection refused")
	})
}

func TestListEntities(t *testing.T) {
	mockSvc := new(serviceMocks.MockEntityService)
	app := fiber.New()
	app.Get("/:collection", ListEntities(mockSvc, zap.NewNop()))

	t.Run("success", func(t *testing.T) {
		params := service.ListParams{Query: `{"age":{"$gte":18}}`, Fields: "name", Page: "2", PageSize: "5"}
		docs := []model.Document{{"_id": model.String(testID), "name": model.String("Ana")}}
		mockSvc.On("List", mock.Anything, "users", params).Return(docs, nil).Once()

		q := url.Values{"query": {params.Query}, "fields": {"name"}, "page": {"2"}, "page_size": {"5"}}
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/users?"+q.Encode(), nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `[{"_id":"`+testID+`","name":"Ana"}]`, string(raw))
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty page is an empty array", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "users", service.ListParams{}).Return(nil, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/users", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `[]`, string(raw))
	})

	errCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"parse error", &query.QueryParseError{Param: query.ParamQuery, Reason: "malformed JSON object"}, http.StatusBadRequest, CodeQueryParse},
		{"pagination error", &query.InvalidPaginationError{Param: query.ParamPage, Value: "0", Reason: "must be at least 1"}, http.StatusBadRequest, CodeInvalidPagination},
		{"store error", &repository.StoreError{Op: "find", Err: errors.New("timeout")}, http.StatusInternalServerError, CodeStoreError},
		{"unexpected error", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc.On("List", mock.Anything, "orders", mock.Anything).Return(nil, tt.err).Once()

			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/orders", nil))

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decodeError(t, resp).Error.Code)
		})
	}
}

func TestGetEntity(t *testing.T) {
	mockSvc := new(serviceMocks.MockEntityService)
	app := fiber.New()
	app.Get("/:collection/:id", GetEntity(mockSvc, zap.NewNop()))

	t.Run("success", func(t *testing.T) {
		doc := model.Document{"_id": model.String(testID), "name": model.String("Ana")}
		mockSvc.On("Get", mock.Anything, "users", testID).Return(doc, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/users/"+testID, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"_id":"`+testID+`","name":"Ana"}`, string(raw))
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "users", testID).Return(nil, service.ErrEntityNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/users/"+testID, nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, CodeEntityNotFound, body.Error.Code)
		assert.Equal(t, "entity not found", body.Error.Message)
	})

	t.Run("invalid id", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "users", "not-an-id").Return(nil, repository.ErrInvalidIdentifier).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/users/not-an-id", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, CodeInvalidIdentifier, decodeError(t, resp).Error.Code)
	})
}

func TestUpdateEntity(t *testing.T) {
	mockSvc := new(serviceMocks.MockEntityService)
	app := fiber.New()
	app.Put("/:collection/:id", UpdateEntity(mockSvc, zap.NewNop()))

	put := func(id, body string) *http.Response {
		req := httptest.NewRequest(http.MethodPut, "/users/"+id, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, "users", testID, model.Document{"age": model.Int(31)}).Return(nil).Once()

		resp := put(testID, `{"age":31}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "updated", body["message"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, "users", testID, mock.Anything).Return(service.ErrEntityNotFound).Once()

		resp := put(testID, `{"age":31}`)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, CodeEntityNotFound, decodeError(t, resp).Error.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := put(testID, `{"age":`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, CodeInvalidBody, decodeError(t, resp).Error.Code)
	})
}

func TestWriteServiceError_LogsStoreErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mockSvc := new(serviceMocks.MockEntityService)
	mockSvc.On("Get", mock.Anything, "users", testID).
		Return(nil, &repository.StoreError{Op: "find", Err: errors.New("socket closed")}).Once()

	app := fiber.New()
	app.Use(middleware.RequestID())
	app.Get("/:collection/:id", GetEntity(mockSvc, zap.New(core)))

	req := httptest.NewRequest(http.MethodGet, "/users/"+testID, nil)
	req.Header.Set(middleware.RequestIDHeader, "rid-1")
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	entries := logs.FilterMessage("store_error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "rid-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "find", entries[0].ContextMap()["op"])
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockEntityService)
	RegisterRoutes(app, mockSvc, zap.NewNop())

	t.Run("not found route", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/users/"+testID+"/extra", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/users/"+testID, nil))

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})

	t.Run("health routes win over collections", func(t *testing.T) {
		mockSvc.On("Ping", mock.Anything).Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

// Drives the full request path against the in-memory gateway.
func TestEndToEnd_Memory(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(middleware.RequestID())
	svc := service.NewEntityService(memory.NewEntityMemory(), service.Options{MaxPageSize: 100})
	RegisterRoutes(app, svc, zap.NewNop())

	send := func(method, target, body string) *http.Response {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, target, r)
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	ids := make([]string, 0, 3)
	for _, body := range []string{
		`{"name":"Ana","age":30,"tags":["admin"]}`,
		`{"name":"Bo","age":17}`,
		`{"name":"Cy","age":42,"address":{"city":"Porto"}}`,
	} {
		resp := send(http.MethodPost, "/people", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var created map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
		ids = append(ids, created["id"])
	}

	q := url.Values{"query": {`{"age":{"$gte":18}}`}, "fields": {"name"}}
	resp := send(http.MethodGet, "/people?"+q.Encode(), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `[{"_id":"`+ids[0]+`","name":"Ana"},{"_id":"`+ids[2]+`","name":"Cy"}]`, string(raw))

	q = url.Values{"query": {`{"address.city":"Porto"}`}}
	resp = send(http.MethodGet, "/people?"+q.Encode(), "")
	raw, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), ids[2])
	assert.NotContains(t, string(raw), ids[0])

	resp = send(http.MethodGet, "/people?page=2&page_size=2", "")
	raw, _ = io.ReadAll(resp.Body)
	var page []map[string]any
	require.NoError(t, json.Unmarshal(raw, &page))
	require.Len(t, page, 1)
	assert.Equal(t, ids[2], page[0]["_id"])

	resp = send(http.MethodGet, "/people?page=0", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeInvalidPagination, decodeError(t, resp).Error.Code)

	q = url.Values{"query": {`{"name":"Cy"}`}, "fields": {"address,address.city"}}
	resp = send(http.MethodGet, "/people?"+q.Encode(), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ = io.ReadAll(resp.Body)
	assert.JSONEq(t, `[{"_id":"`+ids[2]+`","address":{"city":"Porto"}}]`, string(raw))

	resp = send(http.MethodGet, "/people?fields=tags.0", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeQueryParse, decodeError(t, resp).Error.Code)

	q = url.Values{"query": {`{"$where":"sleep(100)"}`}}
	resp = send(http.MethodGet, "/people?"+q.Encode(), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeQueryParse, decodeError(t, resp).Error.Code)

	resp = send(http.MethodPut, "/people/"+ids[1], `{"age":18}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = send(http.MethodGet, "/people/"+ids[1], "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ = io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"_id":"`+ids[1]+`","name":"Bo","age":18}`, string(raw))

	resp = send(http.MethodGet, "/people/"+repository.NewIdentifier(), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = send(http.MethodGet, "/people/xyz", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeInvalidIdentifier, decodeError(t, resp).Error.Code)

	resp = send(http.MethodPut, "/people/"+ids[1], `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeInvalidBody, decodeError(t, resp).Error.Code)
}

func TestGetEntity_ErrorBodyShape(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(middleware.RequestID())
	RegisterRoutes(app, service.NewEntityService(memory.NewEntityMemory(), service.Options{}), zap.NewNop())

	t.Run("well formed id without document is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/000000000000000000000000", nil)
		req.Header.Set(middleware.RequestIDHeader, "rid-404")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"request_id":"rid-404","error":{"code":"EntityNotFound","message":"entity not found"}}`, string(raw))
	})

	t.Run("non hex id is 400", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/doesnotexist", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, CodeInvalidIdentifier, body.Error.Code)
		assert.NotEmpty(t, body.RequestID)
	})
}

package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qphub/internal/extract"
	"qphub/internal/model"
	"qphub/internal/ocr"
	"qphub/internal/service"
	serviceMocks "qphub/internal/service/mocks"
	"qphub/internal/storage"
)

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListPapers(t *testing.T) {
	mockSvc := new(serviceMocks.MockPaperService)
	app := fiber.New()
	app.Get("/papers", ListPapers(mockSvc))

	t.Run("success", func(t *testing.T) {
		expectedRes := &service.PaperListResult{
			Items: []model.Paper{{ID: uuid.New().String(), Subject: "thermodynamics"}},
			Total: 1,
		}
		mockSvc.On("List", mock.Anything, 10, 0).Return(expectedRes, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/papers?limit=10&offset=0", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.PaperListResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/papers?limit=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_LIMIT", body.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, 10, 0).Return(nil, errors.New("service error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/papers", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func multipartBody(t *testing.T, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range filenames {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		part.Write([]byte("%PDF-1.4 fake content"))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadPapers(t *testing.T) {
	t.Run("single file success", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockPaperService)
		app := fiber.New()
		app.Post("/papers", UploadPapers(mockSvc))

		year := 2022
		res := &service.IngestResult{
			Filename: "thermo.pdf",
			Metadata: &extract.Result{Department: "mechanical engineering", Subject: "thermodynamics", Year: &year},
			Paper:    &model.Paper{ID: uuid.New().String(), Subject: "thermodynamics"},
		}
		mockSvc.On("Ingest", mock.Anything, mock.Anything, "thermo.pdf").Return(res, nil).Once()

		body, ct := multipartBody(t, "thermo.pdf")
		req := httptest.NewRequest(http.MethodPost, "/papers", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result struct {
			Data      []uploadItem `json:"data"`
			Total     int          `json:"total"`
			Succeeded int          `json:"succeeded"`
		}
		json.NewDecoder(resp.Body).Decode(&result)
		require.Len(t, result.Data, 1)
		assert.Equal(t, "ok", result.Data[0].Status)
		assert.Equal(t, 1, result.Succeeded)
		mockSvc.AssertExpectations(t)
	})

	t.Run("batch with one failure", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockPaperService)
		app := fiber.New()
		app.Post("/papers", UploadPapers(mockSvc))

		good := &service.IngestResult{
			Filename: "good.pdf",
			Paper:    &model.Paper{ID: uuid.New().String()},
		}
		bad := &service.IngestResult{Filename: "bad.pdf"}
		mockSvc.On("Ingest", mock.Anything, mock.Anything, "good.pdf").Return(good, nil).Once()
		mockSvc.On("Ingest", mock.Anything, mock.Anything, "bad.pdf").
			Return(bad, fmt.Errorf("extract text: %w", ocr.ErrUnreadable)).Once()

		body, ct := multipartBody(t, "good.pdf", "bad.pdf")
		req := httptest.NewRequest(http.MethodPost, "/papers", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		// Partial success still creates resources
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result struct {
			Data      []uploadItem `json:"data"`
			Succeeded int          `json:"succeeded"`
		}
		json.NewDecoder(resp.Body).Decode(&result)
		require.Len(t, result.Data, 2)
		assert.Equal(t, "ok", result.Data[0].Status)
		assert.Equal(t, "error", result.Data[1].Status)
		assert.Equal(t, "file could not be read as a PDF", result.Data[1].Error)
		assert.Equal(t, 1, result.Succeeded)
		mockSvc.AssertExpectations(t)
	})

	t.Run("all failures return bad request", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockPaperService)
		app := fiber.New()
		app.Post("/papers", UploadPapers(mockSvc))

		res := &service.IngestResult{Filename: "bad.pdf"}
		mockSvc.On("Ingest", mock.Anything, mock.Anything, "bad.pdf").Return(res, service.ErrEmptyFile).Once()

		body, ct := multipartBody(t, "bad.pdf")
		req := httptest.NewRequest(http.MethodPost, "/papers", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("internal details never reach the client", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockPaperService)
		app := fiber.New()
		app.Post("/papers", UploadPapers(mockSvc))

		res := &service.IngestResult{Filename: "leak.pdf"}
		mockSvc.On("Ingest", mock.Anything, mock.Anything, "leak.pdf").
			Return(res, errors.New("db save failed: dial tcp 10.0.0.5:5432: connection refused")).Once()

		body, ct := multipartBody(t, "leak.pdf")
		req := httptest.NewRequest(http.MethodPost, "/papers", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		raw, _ := io.ReadAll(resp.Body)
		assert.NotContains(t, string(raw), "10.0.0.5")
		assert.NotContains(t, string(raw), "dial tcp")

		var result struct {
			Data []uploadItem `json:"data"`
		}
		json.Unmarshal(raw, &result)
		require.Len(t, result.Data, 1)
		assert.Equal(t, "internal error", result.Data[0].Error)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no files", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockPaperService)
		app := fiber.New()
		app.Post("/papers", UploadPapers(mockSvc))

		req := httptest.NewRequest(http.MethodPost, "/papers", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_REQUIRED", res.Error.Code)
	})
}

func TestSearchPapers(t *testing.T) {
	mockSvc := new(serviceMocks.MockSearchService)
	app := fiber.New()
	app.Get("/papers/search", SearchPapers(mockSvc))

	t.Run("success", func(t *testing.T) {
		year := 2023
		expected := &service.SearchResult{
			Criteria: &extract.Result{Subject: "operating systems", Year: &year},
			Items:    []model.Paper{{ID: uuid.New().String(), Subject: "operating systems"}},
			Total:    1,
		}
		mockSvc.On("Search", mock.Anything, "os papers 2023").Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/papers/search?q=os+papers+2023", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.SearchResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, "operating systems", result.Criteria.Subject)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/papers/search", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "QUERY_REQUIRED", res.Error.Code)
	})

	t.Run("translation failure maps to bad gateway", func(t *testing.T) {
		mockSvc.On("Search", mock.Anything, "cs papers").
			Return(nil, fmt.Errorf("translate query: %w", extract.ErrCompletion)).Once()

		req := httptest.NewRequest(http.MethodGet, "/papers/search?q=cs+papers", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "TRANSLATION_FAILED", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("repository failure maps to internal error", func(t *testing.T) {
		mockSvc.On("Search", mock.Anything, "maths").
			Return(nil, errors.New("search papers: connection reset")).Once()

		req := httptest.NewRequest(http.MethodGet, "/papers/search?q=maths", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetPaper(t *testing.T) {
	mockSvc := new(serviceMocks.MockPaperService)
	app := fiber.New()
	app.Get("/papers/:id", GetPaper(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		expected := &model.Paper{ID: id, Subject: "thermodynamics"}
		mockSvc.On("Get", mock.Anything, id).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/papers/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Paper
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/papers/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/papers/invalid-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, errors.New("db error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/papers/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDownloadPaperFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockPaperService)
	app := fiber.New()
	app.Get("/papers/:id/file", DownloadPaperFile(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		content := "%PDF-1.4 original bytes"
		info := storage.ObjectInfo{Key: "papers/" + id + ".pdf", Size: int64(len(content)), ContentType: "application/pdf"}
		mockSvc.On("OpenFile", mock.Anything, id).
			Return(io.NopCloser(strings.NewReader(content)), info, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/papers/"+id+"/file", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, content, string(body))
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("OpenFile", mock.Anything, id).
			Return(nil, storage.ObjectInfo{}, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/papers/"+id+"/file", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockPaperSvc := new(serviceMocks.MockPaperService)
	mockSearchSvc := new(serviceMocks.MockSearchService)
	RegisterRoutes(app, nil, mockPaperSvc, mockSearchSvc, nil)

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/healthz", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})

	t.Run("search route wins over id route", func(t *testing.T) {
		mockSearchSvc.On("Search", mock.Anything, "anything").
			Return(&service.SearchResult{Items: []model.Paper{}, Total: 0}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/papers/search?q=anything", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSearchSvc.AssertExpectations(t)
	})
}

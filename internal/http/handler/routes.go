package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qphub/internal/extract"
	"qphub/internal/model"
	"qphub/internal/ocr"
	"qphub/internal/service"
)

// uploadItem reports the outcome of one file within a batch upload. A failed
// file carries a safe error message plus whatever metadata was recovered
// before the failing stage; other files in the batch are unaffected.
type uploadItem struct {
	Filename string          `json:"filename"`
	Status   string          `json:"status"`
	Error    string          `json:"error,omitempty"`
	Metadata *extract.Result `json:"metadata,omitempty"`
	Paper    *model.Paper    `json:"paper,omitempty"`
}

// ingestErrorMessage translates a pipeline failure into a client-safe
// message, mirroring writeError's no-internal-details policy.
func ingestErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrEmptyFile):
		return "file is empty"
	case errors.Is(err, ocr.ErrUnreadable):
		return "file could not be read as a PDF"
	case errors.Is(err, ocr.ErrNoText):
		return "no text could be recognized in the file"
	case errors.Is(err, extract.ErrCompletion), errors.Is(err, extract.ErrMalformed):
		return "metadata extraction failed"
	default:
		return "internal error"
	}
}

// HealthCheck reports readiness by pinging the database.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness check with no dependencies.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListPapers lists stored papers with limit/offset pagination.
func ListPapers(svc service.PaperService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// UploadPapers ingests a batch of question-paper PDFs posted as
// multipart/form-data under the field name "files". Files are processed
// independently; one bad scan never fails the rest of the batch.
func UploadPapers(svc service.PaperService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "at least one file is required")
		}
		files := form.File["files"]
		if len(files) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "at least one file is required")
		}

		items := make([]uploadItem, 0, len(files))
		succeeded := 0
		for _, fh := range files {
			item := uploadItem{Filename: fh.Filename}

			f, err := fh.Open()
			if err != nil {
				item.Status = "error"
				item.Error = "cannot open uploaded file"
				items = append(items, item)
				continue
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				item.Status = "error"
				item.Error = "cannot read uploaded file"
				items = append(items, item)
				continue
			}

			res, err := svc.Ingest(c.UserContext(), data, fh.Filename)
			if err != nil {
				item.Status = "error"
				item.Error = ingestErrorMessage(err)
				if res != nil {
					item.Metadata = res.Metadata
				}
				items = append(items, item)
				continue
			}

			item.Status = "ok"
			item.Metadata = res.Metadata
			item.Paper = res.Paper
			items = append(items, item)
			succeeded++
		}

		status := fiber.StatusCreated
		if succeeded == 0 {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{
			"data":      items,
			"total":     len(items),
			"succeeded": succeeded,
		})
	}
}

// SearchPapers answers a natural-language query passed as ?q=.
func SearchPapers(svc service.SearchService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := c.Query("q")
		if q == "" {
			return writeError(c, fiber.StatusBadRequest, "QUERY_REQUIRED", "query parameter q is required")
		}

		res, err := svc.Search(c.UserContext(), q)
		if err != nil {
			if errors.Is(err, service.ErrQueryRequired) {
				return writeError(c, fiber.StatusBadRequest, "QUERY_REQUIRED", "query parameter q is required")
			}
			if errors.Is(err, extract.ErrCompletion) || errors.Is(err, extract.ErrMalformed) {
				return writeError(c, fiber.StatusBadGateway, "TRANSLATION_FAILED", "query could not be interpreted")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetPaper returns a single paper's metadata by ID.
func GetPaper(svc service.PaperService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		paper, err := svc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "paper not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(paper)
	}
}

// DownloadPaperFile streams the stored original PDF for a paper.
func DownloadPaperFile(svc service.PaperService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, info, err := svc.OpenFile(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "paper not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		ct := info.ContentType
		if ct == "" {
			ct = "application/pdf"
		}
		c.Set(fiber.HeaderContentType, ct)
		if info.Size > 0 {
			return c.SendStream(rc, int(info.Size))
		}
		return c.SendStream(rc)
	}
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, paperSvc service.PaperService, searchSvc service.SearchService, gatherer prometheus.Gatherer) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	if db != nil {
		app.Get("/health", HealthCheck(db))
	}
	app.Get("/healthz", LivenessProbe())

	app.Get("/papers", ListPapers(paperSvc))
	// Registered before /papers/:id so the literal segment wins
	app.Get("/papers/search", SearchPapers(searchSvc))
	app.Post("/papers", UploadPapers(paperSvc))
	app.Get("/papers/:id", GetPaper(paperSvc))
	app.Get("/papers/:id/file", DownloadPaperFile(paperSvc))
}

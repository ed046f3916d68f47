package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qphub/internal/extract"
	"qphub/internal/logger"
	"qphub/internal/model"
	"qphub/internal/ocr"
	"qphub/internal/repository"
	"qphub/internal/storage"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("paper not found")
	ErrEmptyFile  = errors.New("file is empty")
)

// MetadataExtractor is the oracle contract: text in, best-effort structured
// guess out, may vary call-to-call. Satisfied by *extract.Extractor; tests
// substitute a deterministic stand-in.
type MetadataExtractor interface {
	Extract(ctx context.Context, text string) *extract.Result
}

// IngestResult carries the outcome of one ingestion run. On failure the
// partial output produced before the failing stage (truncated text, parsed
// metadata) is still populated, which aids debugging without pretending the
// record succeeded.
type IngestResult struct {
	Filename string          `json:"filename"`
	RawText  string          `json:"raw_text,omitempty"`
	Metadata *extract.Result `json:"metadata,omitempty"`
	Paper    *model.Paper    `json:"paper,omitempty"`
}

// PaperListResult is the service-level DTO for paginated papers.
type PaperListResult struct {
	Items []model.Paper `json:"data"`
	Total int           `json:"total"`
}

// PaperService defines the use cases for ingesting and reading papers.
type PaperService interface {
	// Ingest runs the full pipeline on one PDF: OCR, truncation, metadata
	// extraction with fallback normalization, upload, then insert. The
	// returned result is non-nil even on error.
	Ingest(ctx context.Context, pdf []byte, filename string) (*IngestResult, error)

	// List returns papers using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*PaperListResult, error)

	// Get returns a single paper by its ID.
	Get(ctx context.Context, id string) (*model.Paper, error)

	// OpenFile streams the stored original PDF for a paper.
	OpenFile(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error)
}

type paperService struct {
	engine    ocr.Engine
	extractor MetadataExtractor
	store     storage.Storage
	repo      repository.PaperRepository
	truncate  int
	log       zerolog.Logger
}

// NewPaperService constructs the ingestion/read service. truncateChars
// bounds how much recognized text reaches the extractor.
func NewPaperService(engine ocr.Engine, extractor MetadataExtractor, store storage.Storage, repo repository.PaperRepository, truncateChars int) PaperService {
	if truncateChars <= 0 {
		truncateChars = 600
	}
	return &paperService{
		engine:    engine,
		extractor: extractor,
		store:     store,
		repo:      repo,
		truncate:  truncateChars,
		log:       logger.WithComponent("ingest"),
	}
}

func (s *paperService) Ingest(ctx context.Context, pdf []byte, filename string) (*IngestResult, error) {
	res := &IngestResult{Filename: filename}
	if len(pdf) == 0 {
		return res, ErrEmptyFile
	}

	// Stage 1: OCR. Unreadable or empty input terminates this item only.
	text, err := s.engine.ExtractText(ctx, pdf)
	if err != nil {
		return res, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return res, fmt.Errorf("extract text: %w", ocr.ErrNoText)
	}

	// Stage 2: header metadata is front-loaded; only the head goes to the model.
	res.RawText = ocr.Truncate(text, s.truncate)

	// Stage 3+4: model extraction, then the deterministic pass. Normalize
	// runs even on a failed completion so the year backstop still fires and
	// the error response carries whatever was recoverable.
	meta := s.extractor.Extract(ctx, res.RawText)
	extract.Normalize(meta, res.RawText)
	res.Metadata = meta
	if meta.Err != nil {
		return res, fmt.Errorf("extract metadata: %w", meta.Err)
	}

	// Stage 5: upload before insert, never the other way around. A row must
	// never reference a URL that no successful upload produced.
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".pdf"
	}
	key := filepath.ToSlash(filepath.Join("papers", uuid.New().String()+ext))

	_, err = s.store.Put(ctx, key, bytes.NewReader(pdf), storage.PutObjectOptions{
		Size:        int64(len(pdf)),
		ContentType: "application/pdf",
		Metadata: map[string]string{
			"original-filename": filename,
		},
	})
	if err != nil {
		return res, fmt.Errorf("upload to storage: %w", err)
	}

	paper := &model.Paper{
		ID:         uuid.New().String(),
		Department: meta.Department,
		Subject:    meta.Subject,
		Year:       meta.Year,
		Filename:   filename,
		FileURL:    s.store.PublicURL(key),
		StorageKey: key,
		CreatedAt:  time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, paper)
	if err != nil {
		// Best-effort compensating delete so a failed insert does not leave
		// an orphaned blob behind.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return res, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return res, fmt.Errorf("db save failed: %w", err)
	}

	res.Paper = stored
	s.log.Info().
		Str("filename", filename).
		Str("id", stored.ID).
		Str("department", stored.Department).
		Str("subject", stored.Subject).
		Msg("paper ingested")
	return res, nil
}

// List returns paginated papers without exposing repository types.
func (s *paperService) List(ctx context.Context, limit, offset int) (*PaperListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &PaperListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a paper by ID.
func (s *paperService) Get(ctx context.Context, id string) (*model.Paper, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	paper, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return paper, nil
}

// OpenFile streams the stored original from object storage.
func (s *paperService) OpenFile(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	paper, err := s.Get(ctx, id)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	return s.store.Get(ctx, paper.StorageKey)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"qphub/internal/extract"
	"qphub/internal/logger"
	"qphub/internal/model"
	"qphub/internal/repository"
	"qphub/internal/search"
)

var ErrQueryRequired = errors.New("query is required")

// QueryTranslator converts a free-text query into structured criteria.
// Satisfied by *search.Translator.
type QueryTranslator interface {
	Translate(ctx context.Context, query string) (*extract.Result, error)
}

// SearchResult carries the matched papers plus the criteria the translator
// derived, so callers can show what the query was understood to mean.
type SearchResult struct {
	Criteria *extract.Result `json:"criteria"`
	Items    []model.Paper   `json:"data"`
	Total    int             `json:"total"`
}

// SearchService answers natural-language queries against the metadata store.
type SearchService interface {
	Search(ctx context.Context, query string) (*SearchResult, error)
}

type searchService struct {
	translator QueryTranslator
	repo       repository.PaperRepository
	log        zerolog.Logger
}

// NewSearchService constructs the query pipeline.
func NewSearchService(translator QueryTranslator, repo repository.PaperRepository) SearchService {
	return &searchService{
		translator: translator,
		repo:       repo,
		log:        logger.WithComponent("query"),
	}
}

func (s *searchService) Search(ctx context.Context, query string) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrQueryRequired
	}

	criteria, err := s.translator.Translate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("translate query: %w", err)
	}

	filter := search.BuildFilter(criteria)
	items, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search papers: %w", err)
	}

	s.log.Info().Str("query", query).Int("results", len(items)).Msg("search completed")
	return &SearchResult{Criteria: criteria, Items: items, Total: len(items)}, nil
}

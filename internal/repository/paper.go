package repository

import (
	"context"

	"qphub/internal/model"
)

// PaperRepository defines data access for question-paper metadata using SQL
// queries only. No business logic here — strictly persistence operations.
type PaperRepository interface {
	// Create inserts a new metadata row. The caller provides ID, FileURL and
	// CreatedAt; a row is never created without a file reference.
	Create(ctx context.Context, paper *model.Paper) (*model.Paper, error)

	// FindByID returns a paper by its ID.
	FindByID(ctx context.Context, id string) (*model.Paper, error)

	// List returns a paginated list of papers and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Paper], error)

	// Search returns papers matching the filter, ordered by year descending,
	// then department, then subject. An empty filter returns all rows in
	// that ordering.
	Search(ctx context.Context, f Filter) ([]model.Paper, error)
}

// Filter holds the structured search criteria derived from a free-text
// query. Present string fields become case-insensitive partial-match
// conditions; a non-nil Year becomes an equality condition. The query
// translator is responsible for dropping out-of-range years before the
// filter reaches the repository.
type Filter struct {
	Department string
	Subject    string
	Year       *int
}

// Empty reports whether the filter imposes no conditions.
func (f Filter) Empty() bool {
	return f.Department == "" && f.Subject == "" && f.Year == nil
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}

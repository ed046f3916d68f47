package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"qphub/internal/model"
	"qphub/internal/repository"
)

// PaperPostgres is a PostgreSQL implementation of repository.PaperRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type PaperPostgres struct {
	db *sql.DB
}

// NewPaperPostgres creates a new PaperPostgres repository.
func NewPaperPostgres(db *sql.DB) *PaperPostgres {
	return &PaperPostgres{db: db}
}

var _ repository.PaperRepository = (*PaperPostgres)(nil)

const paperColumns = "id, department, subject, year, filename, file_url, storage_key, created_at"

func scanPaper(row interface{ Scan(...any) error }) (*model.Paper, error) {
	var p model.Paper
	if err := row.Scan(
		&p.ID,
		&p.Department,
		&p.Subject,
		&p.Year,
		&p.Filename,
		&p.FileURL,
		&p.StorageKey,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new paper row and returns the stored record.
func (r *PaperPostgres) Create(ctx context.Context, paper *model.Paper) (*model.Paper, error) {
	const q = `
		INSERT INTO papers (id, department, subject, year, filename, file_url, storage_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + paperColumns
	row := r.db.QueryRowContext(ctx, q,
		paper.ID,
		paper.Department,
		paper.Subject,
		paper.Year,
		paper.Filename,
		paper.FileURL,
		paper.StorageKey,
		paper.CreatedAt,
	)
	return scanPaper(row)
}

// FindByID fetches a single paper by its ID.
func (r *PaperPostgres) FindByID(ctx context.Context, id string) (*model.Paper, error) {
	const q = `SELECT ` + paperColumns + ` FROM papers WHERE id = $1`
	return scanPaper(r.db.QueryRowContext(ctx, q, id))
}

// List returns papers using LIMIT/OFFSET pagination and a total count.
func (r *PaperPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Paper], error) {
	const qCount = `SELECT COUNT(*) FROM papers`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + paperColumns + `
		FROM papers
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := collect(rows)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Paper]{Items: items, Total: total}, nil
}

// Search builds one parameterized query from the filter: ILIKE substring
// conditions for department and subject, equality for year, AND-composed.
// The ordering is fixed regardless of conditions.
func (r *PaperPostgres) Search(ctx context.Context, f repository.Filter) ([]model.Paper, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + paperColumns + ` FROM papers WHERE 1=1`)

	if f.Department != "" {
		args = append(args, "%"+f.Department+"%")
		fmt.Fprintf(&sb, " AND department ILIKE $%d", len(args))
	}
	if f.Subject != "" {
		args = append(args, "%"+f.Subject+"%")
		fmt.Fprintf(&sb, " AND subject ILIKE $%d", len(args))
	}
	if f.Year != nil {
		args = append(args, *f.Year)
		fmt.Fprintf(&sb, " AND year = $%d", len(args))
	}

	sb.WriteString(" ORDER BY year DESC NULLS LAST, department, subject")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collect(rows)
}

func collect(rows *sql.Rows) ([]model.Paper, error) {
	items := make([]model.Paper, 0)
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

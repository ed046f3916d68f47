package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"qphub/internal/model"
	"qphub/internal/repository"
)

var paperCols = []string{"id", "department", "subject", "year", "filename", "file_url", "storage_key", "created_at"}

func intPtr(v int) *int { return &v }

func TestPaperPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPaperPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	paper := &model.Paper{
		ID:         "test-uuid",
		Department: "computer science and engineering",
		Subject:    "algorithms",
		Year:       intPtr(2023),
		Filename:   "endsem.pdf",
		FileURL:    "http://minio.local/papers/abc.pdf",
		StorageKey: "papers/abc.pdf",
		CreatedAt:  now,
	}

	rows := sqlmock.NewRows(paperCols).
		AddRow(paper.ID, paper.Department, paper.Subject, 2023, paper.Filename, paper.FileURL, paper.StorageKey, paper.CreatedAt)

	mock.ExpectQuery("INSERT INTO papers").
		WithArgs(paper.ID, paper.Department, paper.Subject, paper.Year, paper.Filename, paper.FileURL, paper.StorageKey, paper.CreatedAt).
		WillReturnRows(rows)

	result, err := repo.Create(ctx, paper)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, paper.ID, result.ID)
	assert.Equal(t, 2023, *result.Year)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaperPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPaperPostgres(db)
	ctx := context.Background()

	t.Run("found with null year", func(t *testing.T) {
		rows := sqlmock.NewRows(paperCols).
			AddRow("test-id", "physics", "optics", nil, "p.pdf", "http://x/p.pdf", "papers/p.pdf", time.Now())

		mock.ExpectQuery("SELECT (.+) FROM papers WHERE id = ?").
			WithArgs("test-id").
			WillReturnRows(rows)

		paper, err := repo.FindByID(ctx, "test-id")

		assert.NoError(t, err)
		assert.NotNil(t, paper)
		assert.Equal(t, "test-id", paper.ID)
		assert.Nil(t, paper.Year)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM papers WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		paper, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, paper)
	})
}

func TestPaperPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPaperPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM papers").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows(paperCols).
		AddRow("test-id", "civil engineering", "surveying", 2021, "s.pdf", "http://x/s.pdf", "papers/s.pdf", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM papers ORDER BY created_at").
		WithArgs(10, 0).
		WillReturnRows(rows)

	res, err := repo.List(ctx, repository.PageQuery{Limit: 10, Offset: 0})

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaperPostgres_Search(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPaperPostgres(db)
	ctx := context.Background()

	t.Run("subject and year conditions, no department", func(t *testing.T) {
		rows := sqlmock.NewRows(paperCols).
			AddRow("id-1", "computer science and engineering", "algorithms", 2023, "a.pdf", "http://x/a.pdf", "papers/a.pdf", time.Now())

		mock.ExpectQuery(`SELECT (.+) FROM papers WHERE 1=1 AND subject ILIKE \$1 AND year = \$2 ORDER BY year DESC NULLS LAST, department, subject`).
			WithArgs("%algorithms%", 2023).
			WillReturnRows(rows)

		items, err := repo.Search(ctx, repository.Filter{Subject: "algorithms", Year: intPtr(2023)})

		assert.NoError(t, err)
		assert.Len(t, items, 1)
		assert.Equal(t, "algorithms", items[0].Subject)
	})

	t.Run("all three conditions numbered in order", func(t *testing.T) {
		mock.ExpectQuery(`AND department ILIKE \$1 AND subject ILIKE \$2 AND year = \$3`).
			WithArgs("%mechanical engineering%", "%thermodynamics%", 2022).
			WillReturnRows(sqlmock.NewRows(paperCols))

		items, err := repo.Search(ctx, repository.Filter{
			Department: "mechanical engineering",
			Subject:    "thermodynamics",
			Year:       intPtr(2022),
		})

		assert.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("empty filter returns all rows ordered", func(t *testing.T) {
		rows := sqlmock.NewRows(paperCols).
			AddRow("id-1", "physics", "optics", 2024, "p.pdf", "http://x/p.pdf", "papers/p.pdf", time.Now()).
			AddRow("id-2", "physics", "waves", nil, "w.pdf", "http://x/w.pdf", "papers/w.pdf", time.Now())

		mock.ExpectQuery(`SELECT (.+) FROM papers WHERE 1=1 ORDER BY year DESC NULLS LAST, department, subject`).
			WillReturnRows(rows)

		items, err := repo.Search(ctx, repository.Filter{})

		assert.NoError(t, err)
		assert.Len(t, items, 2)
		assert.Nil(t, items[1].Year)
	})
}

package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskforge/servicedesk/internal/domain"
)

// CategoryRepository serves workflow category lookups.
type CategoryRepository interface {
	ListPublic(ctx context.Context) ([]domain.Category, error)
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository instantiates repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) ListPublic(ctx context.Context) ([]domain.Category, error) {
	const query = `
        SELECT id, name, keywords, is_active, created_at, updated_at
        FROM categories WHERE is_active ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var (
			category domain.Category
			keywords string
		)
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&keywords,
			&category.IsActive,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, err
		}
		category.Keywords = splitList(keywords)
		result = append(result, category)
	}
	return result, rows.Err()
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	const query = `
        SELECT id, name, keywords, is_active, created_at, updated_at
        FROM categories WHERE id=$1`
	var (
		category domain.Category
		keywords string
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&keywords,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	category.Keywords = splitList(keywords)
	return &category, nil
}

// KBRepository searches knowledge-base articles.
type KBRepository interface {
	Search(ctx context.Context, query string, limit int) ([]domain.KBArticle, error)
}

type kbRepository struct {
	pool *pgxpool.Pool
}

// NewKBRepository instantiates repository.
func NewKBRepository(pool *pgxpool.Pool) KBRepository {
	return &kbRepository{pool: pool}
}

func (r *kbRepository) Search(ctx context.Context, query string, limit int) ([]domain.KBArticle, error) {
	if limit <= 0 {
		limit = 5
	}
	const sqlQuery = `
        SELECT id, title, body, tags, created_at, updated_at
        FROM kb_articles
        WHERE LOWER(title) LIKE $1 OR LOWER(tags) LIKE $1
        ORDER BY updated_at DESC LIMIT $2`
	term := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := r.pool.Query(ctx, sqlQuery, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.KBArticle
	for rows.Next() {
		var (
			article domain.KBArticle
			tags    string
		)
		if err := rows.Scan(
			&article.ID,
			&article.Title,
			&article.Body,
			&tags,
			&article.CreatedAt,
			&article.UpdatedAt,
		); err != nil {
			return nil, err
		}
		article.Tags = splitList(tags)
		result = append(result, article)
	}
	return result, rows.Err()
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

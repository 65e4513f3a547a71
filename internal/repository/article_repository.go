package repository

import (
	"database/sql"

	"github.com/wanjiru-dev/storypress-backend/internal/model"
)

// ArticleRepositoryInterface is the read-only slice of the article layer
// that auto-article campaigns consume.
type ArticleRepositoryInterface interface {
	GetByID(id int) (*model.Article, error)
}

type ArticleRepository struct {
	DB *sql.DB
}

// GetByID returns nil, nil when the article does not exist.
func (r *ArticleRepository) GetByID(id int) (*model.Article, error) {
	var a model.Article
	err := r.DB.QueryRow(
		`SELECT id, title, content FROM articles WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Title, &a.Content)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

var _ ArticleRepositoryInterface = (*ArticleRepository)(nil)

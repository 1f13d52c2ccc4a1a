package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"Inkwell/internal/core/posts"
)

type postgresPostRepo struct {
	db *sql.DB
}

// NewPostRepository creates a new PostgreSQL post repository
func NewPostRepository(db *sql.DB) posts.Repository {
	return &postgresPostRepo{db: db}
}

// GetByID retrieves a post by ID
func (r *postgresPostRepo) GetByID(ctx context.Context, id string) (*posts.Post, error) {
	query := `
		SELECT id, title, body, status, latitude, longitude, author_id, created_at, updated_at
		FROM posts
		WHERE id = $1
	`

	var (
		post   posts.Post
		status string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID, &post.Title, &post.Body, &status,
		&post.Latitude, &post.Longitude, &post.AuthorID,
		&post.CreatedAt, &post.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post by ID: %w", err)
	}

	post.Status = posts.Status(status)
	return &post, nil
}

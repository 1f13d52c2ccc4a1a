package posts

import "context"

// Repository defines the read-only data access the comment subsystem needs for posts
type Repository interface {
	// GetByID retrieves a post by its ID
	// Returns ErrNotFound when no row matches
	GetByID(ctx context.Context, id string) (*Post, error)
}

package comments

import "context"

// Repository defines the data access interface for comments
//
// Every method returns *Error values: NOT_FOUND for missing rows, the hierarchy codes
// from Create and Move, and QUERY_FAILED / INSERT_FAILED / UPDATE_FAILED wrapping the
// driver error otherwise. Methods that touch more than one row run in a single
// transaction so the path and reply_count invariants are never observed half-applied.
type Repository interface {
	// Create inserts the comment, assigns Path, and increments the parent's reply_count
	// ID must be set by the caller; timestamps and Path are filled in on success
	Create(ctx context.Context, comment *Comment) error

	// GetByID retrieves a comment regardless of its deleted state
	GetByID(ctx context.Context, id string) (*Comment, error)

	// ListByPost retrieves comments on a post, filtered and sorted
	ListByPost(ctx context.Context, postID string, filter Filter) ([]*Comment, error)

	// ListByUser retrieves comments created by userID, joined with their post title
	ListByUser(ctx context.Context, userID string, filter Filter) ([]*UserComment, error)

	// Update applies the non-nil fields and stamps updated_at
	Update(ctx context.Context, id string, update ContentUpdate) (*Comment, error)

	// SoftDelete marks the comment deleted and decrements the parent's reply_count
	// Deleting an already-deleted comment returns it unchanged
	SoftDelete(ctx context.Context, id string) (*Comment, error)

	// ChangeStatus sets moderation_status and, when notes is non-nil, moderation_notes
	ChangeStatus(ctx context.Context, id string, status ModerationStatus, notes *string) (*Comment, error)

	// SetModerationNotes replaces moderation_notes only
	SetModerationNotes(ctx context.Context, id string, notes string) (*Comment, error)

	// Move reparents the comment (nil parent makes it a root), rewriting the path of
	// the comment and all of its descendants and adjusting both parents' reply_count
	Move(ctx context.Context, id string, newParentID *string) (*Comment, error)

	// Purge permanently removes a comment that has no replies
	Purge(ctx context.Context, id string) error
}

// Service defines the business logic interface for comments
type Service interface {
	// CreateComment sanitizes content and inserts a new comment or reply
	CreateComment(ctx context.Context, input CreateInput) (*Comment, error)

	// GetComment retrieves one comment; deleted comments are NOT_FOUND unless includeDeleted
	GetComment(ctx context.Context, id string, includeDeleted bool) (*Comment, error)

	// ListComments lists comments on a post as a flat page or as a tree of root threads
	ListComments(ctx context.Context, postID string, opts ListOptions) (*ListResult, error)

	// ListUserComments lists a user's comments, newest first by default
	ListUserComments(ctx context.Context, userID string, opts ListOptions) ([]*UserComment, error)

	// UpdateComment edits content and author fields, re-sanitizing content
	UpdateComment(ctx context.Context, id string, input UpdateInput) (*Comment, error)

	// DeleteComment soft-deletes a comment
	DeleteComment(ctx context.Context, id string) (*Comment, error)

	// ChangeStatus sets the moderation status with optional notes
	ChangeStatus(ctx context.Context, id string, status ModerationStatus, notes *string) (*Comment, error)

	// AttachNotes replaces a comment's moderation notes
	AttachNotes(ctx context.Context, id string, notes string) (*Comment, error)

	// MoveComment reparents a comment within its post
	MoveComment(ctx context.Context, id string, newParentID *string) (*Comment, error)

	// PurgeComment hard-deletes a comment with no replies
	PurgeComment(ctx context.Context, id string) error
}

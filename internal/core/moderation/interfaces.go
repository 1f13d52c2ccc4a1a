package moderation

import (
	"context"

	"Inkwell/internal/core/comments"
)

// Repository defines the data access interface for comment flags
type Repository interface {
	// Create records a flag and, in the same transaction, increments the comment's
	// flags_count and applies Escalate to its status
	// Returns COMMENT_NOT_FOUND for missing or deleted comments and DUPLICATE_FLAG
	// when the user already flagged this comment
	Create(ctx context.Context, flag *Flag) (*FlagOutcome, error)

	// Delete removes the user's flag and decrements flags_count (floor 0)
	// The comment's status is left as is
	Delete(ctx context.Context, commentID, flaggedBy string) error

	// ListByComment returns every flag on a comment, newest first
	ListByComment(ctx context.Context, commentID string) ([]*Flag, error)

	// ListByComments returns flags for many comments grouped by comment ID, newest first
	ListByComments(ctx context.Context, commentIDs []string) (map[string][]*Flag, error)

	// ListQueue returns non-deleted comments matching opts, ordered by flags_count
	// descending then created_at descending
	ListQueue(ctx context.Context, opts QueueOptions) ([]*comments.Comment, error)
}

// Service defines the moderation workflow
type Service interface {
	// FlagComment files a report against a comment on behalf of flaggedBy
	FlagComment(ctx context.Context, commentID, flaggedBy string, reason *string) (*Flag, error)

	// UnflagComment withdraws the caller's own report
	UnflagComment(ctx context.Context, commentID, flaggedBy string) error

	// GetFlags lists all reports on a comment, newest first
	GetFlags(ctx context.Context, commentID string) ([]*Flag, error)

	// GetQueue lists comments awaiting review with their flags
	GetQueue(ctx context.Context, opts QueueOptions) ([]*QueueItem, error)

	// Moderate applies a moderator action to a comment
	Moderate(ctx context.Context, commentID string, action Action, notes *string) (*comments.Comment, error)
}

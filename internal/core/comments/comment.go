package comments

import (
	"time"
)

// ModerationStatus is the lifecycle state governing a comment's public visibility
type ModerationStatus string

const (
	StatusPending  ModerationStatus = "pending"
	StatusApproved ModerationStatus = "approved"
	StatusFlagged  ModerationStatus = "flagged"
	StatusRejected ModerationStatus = "rejected"
)

// IsValid reports whether s is one of the four known statuses
func (s ModerationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusFlagged, StatusRejected:
		return true
	}
	return false
}

const (
	// MaxModerationNotesLength is the maximum length of moderator annotations
	MaxModerationNotesLength = 1000
)

// Comment represents a threaded comment on a post
//
// Path is the materialized ancestor chain: the root ancestor's ID first, this
// comment's own ID last. It is assigned by the storage layer at insert time and only
// rewritten when the comment is moved under a different parent.
type Comment struct {
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time        `json:"updatedAt" db:"updated_at"`
	ParentID         *string          `json:"parentId,omitempty" db:"parent_id"`
	AuthorEmail      *string          `json:"authorEmail,omitempty" db:"author_email"`
	CreatedBy        *string          `json:"createdBy,omitempty" db:"created_by"`
	ModerationNotes  *string          `json:"moderationNotes,omitempty" db:"moderation_notes"`
	DeletedAt        *time.Time       `json:"deletedAt,omitempty" db:"deleted_at"`
	ID               string           `json:"id" db:"id"`
	PostID           string           `json:"postId" db:"post_id"`
	Content          string           `json:"content" db:"content"`
	SanitizedContent string           `json:"sanitizedContent" db:"sanitized_content"`
	SanitizerVersion string           `json:"sanitizerVersion" db:"sanitizer_version"`
	AuthorName       string           `json:"authorName" db:"author_name"`
	ModerationStatus ModerationStatus `json:"moderationStatus" db:"moderation_status"`
	Path             []string         `json:"path" db:"path"`
	FlagsCount       int              `json:"flagsCount" db:"flags_count"`
	ReplyCount       int              `json:"replyCount" db:"reply_count"`
	IsDeleted        bool             `json:"isDeleted" db:"is_deleted"`
}

// Depth is the 1-based nesting level; roots are depth 1
func (c *Comment) Depth() int {
	return len(c.Path)
}

// IsRoot reports whether the comment is top-level
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

// IsOwnedBy reports whether userID authored the comment while signed in
func (c *Comment) IsOwnedBy(userID string) bool {
	return userID != "" && c.CreatedBy != nil && *c.CreatedBy == userID
}

// Placeholder returns a copy with authored content and identity removed.
// Used for deleted or hidden comments that must stay in a thread to anchor their replies.
func (c *Comment) Placeholder() Comment {
	p := *c
	p.Content = ""
	p.SanitizedContent = ""
	p.AuthorName = ""
	p.AuthorEmail = nil
	p.CreatedBy = nil
	p.ModerationNotes = nil
	return p
}

// CommentWithDepth is a tree node produced by BuildTree
type CommentWithDepth struct {
	Comment
	Children    []*CommentWithDepth `json:"children"`
	Depth       int                 `json:"depth"`
	Placeholder bool                `json:"placeholder,omitempty"`
}

// UserComment is a comment annotated with the title of the post it belongs to
type UserComment struct {
	Comment
	PostTitle string `json:"postTitle"`
}

// CreateInput holds the fields accepted when creating a comment
type CreateInput struct {
	ParentID    *string `json:"parentId,omitempty"`
	AuthorEmail *string `json:"authorEmail,omitempty" validate:"omitempty,email,max=320"`
	CreatedBy   *string `json:"-"`
	PostID      string  `json:"-"`
	Content     string  `json:"content"`
	AuthorName  string  `json:"authorName" validate:"max=255"`
}

// UpdateInput holds the author-editable fields. Nil means "leave unchanged".
type UpdateInput struct {
	Content     *string `json:"content,omitempty"`
	AuthorName  *string `json:"authorName,omitempty" validate:"omitempty,max=255"`
	AuthorEmail *string `json:"authorEmail,omitempty" validate:"omitempty,email,max=320"`
}

// IsEmpty reports whether no field was supplied
func (u UpdateInput) IsEmpty() bool {
	return u.Content == nil && u.AuthorName == nil && u.AuthorEmail == nil
}

// SortField is a sortable timestamp column
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
)

// SortDirection is ascending or descending
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ListOptions controls listing comments for a post or user
type ListOptions struct {
	SortBy         SortField
	SortDirection  SortDirection
	Statuses       []ModerationStatus
	Limit          int
	Offset         int
	MaxDepth       int
	IncludeDeleted bool
	AsTree         bool
}

// ListResult holds either a flat page (Comments) or a page of root threads (Tree)
type ListResult struct {
	Comments []*Comment          `json:"comments,omitempty"`
	Tree     []*CommentWithDepth `json:"tree,omitempty"`
}

// Filter is the storage-level form of ListOptions.
// Limit 0 means no limit.
type Filter struct {
	SortBy         SortField
	SortDirection  SortDirection
	Statuses       []ModerationStatus
	Limit          int
	Offset         int
	IncludeDeleted bool
}

// ContentUpdate carries a validated, re-sanitized edit down to storage
type ContentUpdate struct {
	Content          *string
	SanitizedContent *string
	SanitizerVersion *string
	AuthorName       *string
	AuthorEmail      *string
}

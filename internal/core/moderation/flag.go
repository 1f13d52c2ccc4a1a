package moderation

import (
	"time"

	"Inkwell/internal/core/comments"
)

const (
	// EscalationThreshold is the flag count at which an approved comment is pulled for review
	EscalationThreshold = 3

	// MaxReasonLength is the maximum length of a flag reason
	MaxReasonLength = 500

	DefaultQueueLimit = 50
	MaxQueueLimit     = 100
)

// Flag is one user's report against one comment.
// At most one flag exists per (CommentID, FlaggedBy).
type Flag struct {
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	Reason    *string   `json:"reason,omitempty" db:"reason"`
	ID        string    `json:"id" db:"id"`
	CommentID string    `json:"commentId" db:"comment_id"`
	FlaggedBy string    `json:"flaggedBy" db:"flagged_by"`
}

// FlagOutcome is what storage reports after recording a flag
type FlagOutcome struct {
	Flag       *Flag
	Status     comments.ModerationStatus
	FlagsCount int
	Escalated  bool
}

// Escalate returns the status a comment should have after its flag count becomes flagCount.
// Only approved comments are escalated; pending, flagged and rejected comments are already
// awaiting or past review.
func Escalate(current comments.ModerationStatus, flagCount int) comments.ModerationStatus {
	if current == comments.StatusApproved && flagCount >= EscalationThreshold {
		return comments.StatusFlagged
	}
	return current
}

// Action is a moderator decision on a comment
type Action string

const (
	ActionApprove Action = "approve"
	ActionHide    Action = "hide"
	ActionDelete  Action = "delete"
)

// IsValid reports whether a is a known action
func (a Action) IsValid() bool {
	switch a {
	case ActionApprove, ActionHide, ActionDelete:
		return true
	}
	return false
}

// QueueOptions controls the moderation queue listing.
// Zero values select the defaults: statuses {flagged, pending}, MinFlags 1, Limit 50.
type QueueOptions struct {
	Statuses []comments.ModerationStatus
	MinFlags int
	Limit    int
	Offset   int
}

// QueueItem is a comment awaiting review together with every flag filed against it
type QueueItem struct {
	comments.Comment
	Flags []*Flag `json:"flags"`
}

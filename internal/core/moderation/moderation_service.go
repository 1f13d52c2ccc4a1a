package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"Inkwell/internal/core/comments"
)

type moderationService struct {
	flagRepo       Repository
	commentService comments.Service
	logger         *slog.Logger
}

// NewModerationService creates the moderation service
// Status changes and deletes go through the comment service so they share its
// validation and hierarchy bookkeeping.
func NewModerationService(flagRepo Repository, commentService comments.Service, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &moderationService{
		flagRepo:       flagRepo,
		commentService: commentService,
		logger:         logger,
	}
}

// FlagComment records a flag; escalation happens inside the same storage transaction
func (s *moderationService) FlagComment(ctx context.Context, commentID, flaggedBy string, reason *string) (*Flag, error) {
	if !comments.IsValidID(commentID) {
		return nil, comments.ErrCommentNotFound
	}
	flaggedBy = strings.TrimSpace(flaggedBy)
	if flaggedBy == "" {
		return nil, comments.NewError(comments.CodeInvalidInput, "Flagging user is required")
	}

	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		if trimmed == "" {
			reason = nil
		} else {
			if utf8.RuneCountInString(trimmed) > MaxReasonLength {
				return nil, comments.NewError(comments.CodeInvalidInput, "Flag reason exceeds 500 characters")
			}
			reason = &trimmed
		}
	}

	outcome, err := s.flagRepo.Create(ctx, &Flag{
		CommentID: commentID,
		FlaggedBy: flaggedBy,
		Reason:    reason,
	})
	if err != nil {
		return nil, s.fail("flag comment", err)
	}

	s.logger.Info("comment flagged",
		"comment_id", commentID,
		"flag_id", outcome.Flag.ID,
		"flags_count", outcome.FlagsCount)

	if outcome.Escalated {
		s.logger.Warn("comment escalated for review",
			"comment_id", commentID,
			"flags_count", outcome.FlagsCount,
			"status", outcome.Status)
	}

	return outcome.Flag, nil
}

// UnflagComment removes the caller's flag. The comment's status is not reverted.
func (s *moderationService) UnflagComment(ctx context.Context, commentID, flaggedBy string) error {
	if !comments.IsValidID(commentID) {
		return comments.ErrCommentNotFound
	}
	if strings.TrimSpace(flaggedBy) == "" {
		return comments.NewError(comments.CodeInvalidInput, "Flagging user is required")
	}

	if err := s.flagRepo.Delete(ctx, commentID, strings.TrimSpace(flaggedBy)); err != nil {
		return s.fail("unflag comment", err)
	}

	s.logger.Info("comment unflagged", "comment_id", commentID)
	return nil
}

// GetFlags returns every flag on an existing comment, newest first
func (s *moderationService) GetFlags(ctx context.Context, commentID string) ([]*Flag, error) {
	if _, err := s.commentService.GetComment(ctx, commentID, true); err != nil {
		return nil, asCommentNotFound(err)
	}

	flags, err := s.flagRepo.ListByComment(ctx, commentID)
	if err != nil {
		return nil, s.fail("get flags", err)
	}
	return flags, nil
}

// GetQueue lists comments needing review
// Flags are loaded with one batched query and grouped by comment
func (s *moderationService) GetQueue(ctx context.Context, opts QueueOptions) ([]*QueueItem, error) {
	if err := normalizeQueueOptions(&opts); err != nil {
		return nil, err
	}

	queued, err := s.flagRepo.ListQueue(ctx, opts)
	if err != nil {
		return nil, s.fail("load moderation queue", err)
	}
	if len(queued) == 0 {
		return []*QueueItem{}, nil
	}

	ids := make([]string, 0, len(queued))
	for _, c := range queued {
		ids = append(ids, c.ID)
	}

	flagsByComment, err := s.flagRepo.ListByComments(ctx, ids)
	if err != nil {
		return nil, s.fail("load queue flags", err)
	}

	items := make([]*QueueItem, 0, len(queued))
	for _, c := range queued {
		flags := flagsByComment[c.ID]
		if flags == nil {
			flags = []*Flag{}
		}
		items = append(items, &QueueItem{Comment: *c, Flags: flags})
	}
	return items, nil
}

// Moderate applies approve, hide or delete to a comment
func (s *moderationService) Moderate(ctx context.Context, commentID string, action Action, notes *string) (*comments.Comment, error) {
	if !action.IsValid() {
		return nil, comments.ErrInvalidAction
	}
	if notes != nil && utf8.RuneCountInString(*notes) > comments.MaxModerationNotesLength {
		return nil, comments.NewError(comments.CodeInvalidInput, "Moderation notes exceed 1000 characters")
	}

	var (
		comment *comments.Comment
		err     error
	)

	switch action {
	case ActionApprove:
		comment, err = s.commentService.ChangeStatus(ctx, commentID, comments.StatusApproved, notes)
	case ActionHide:
		comment, err = s.commentService.ChangeStatus(ctx, commentID, comments.StatusRejected, notes)
	case ActionDelete:
		comment, err = s.commentService.DeleteComment(ctx, commentID)
		if err == nil && notes != nil && strings.TrimSpace(*notes) != "" {
			comment = s.attachNotesBestEffort(ctx, comment, *notes)
		}
	}
	if err != nil {
		return nil, asCommentNotFound(err)
	}

	s.logger.Info("comment moderated",
		"comment_id", commentID,
		"action", action,
		"status", comment.ModerationStatus,
		"deleted", comment.IsDeleted)

	return comment, nil
}

// attachNotesBestEffort annotates a deleted comment; a failure here never fails the delete
func (s *moderationService) attachNotesBestEffort(ctx context.Context, deleted *comments.Comment, notes string) *comments.Comment {
	annotated, err := s.commentService.AttachNotes(ctx, deleted.ID, notes)
	if err != nil {
		s.logger.Warn("failed to attach moderation notes after delete",
			"comment_id", deleted.ID,
			"error", err)
		return deleted
	}
	return annotated
}

func (s *moderationService) fail(op string, err error) error {
	var typed *comments.Error
	if !errors.As(err, &typed) {
		s.logger.Error("unexpected error", "op", op, "error", err)
		return comments.Wrap(comments.CodeUnexpected, comments.ErrUnexpected.Message, err)
	}
	if comments.IsStorageError(typed) || typed.Code == comments.CodeUnexpected {
		s.logger.Error("storage error", "op", op, "code", typed.Code, "error", typed.Err)
	}
	return typed
}

// asCommentNotFound reports a missing comment with the moderation code
func asCommentNotFound(err error) error {
	if comments.CodeOf(err) == comments.CodeNotFound {
		return comments.ErrCommentNotFound
	}
	return err
}

func normalizeQueueOptions(opts *QueueOptions) error {
	if len(opts.Statuses) == 0 {
		opts.Statuses = []comments.ModerationStatus{comments.StatusFlagged, comments.StatusPending}
	}
	for _, st := range opts.Statuses {
		if !st.IsValid() {
			return comments.NewError(comments.CodeInvalidInput, fmt.Sprintf("Invalid moderation status %q", st))
		}
	}

	if opts.MinFlags < 0 {
		return comments.NewError(comments.CodeInvalidInput, "min_flags must not be negative")
	}
	if opts.MinFlags == 0 {
		opts.MinFlags = 1
	}

	if opts.Limit < 0 || opts.Offset < 0 {
		return comments.NewError(comments.CodeInvalidInput, "limit and offset must not be negative")
	}
	if opts.Limit == 0 {
		opts.Limit = DefaultQueueLimit
	}
	if opts.Limit > MaxQueueLimit {
		return comments.NewError(comments.CodeInvalidInput, "limit must be at most 100")
	}
	return nil
}

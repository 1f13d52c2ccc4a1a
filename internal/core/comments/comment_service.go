package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"Inkwell/internal/core/posts"
	"Inkwell/internal/core/sanitizer"
)

const (
	// MaxPageSize caps limit on flat and tree listings
	MaxPageSize = 100
)

// commentService implements the Service interface
type commentService struct {
	commentRepo Repository           // Comment storage and hierarchy maintenance
	postRepo    posts.Repository     // Post existence checks
	sanitizer   *sanitizer.Sanitizer // Content validation and cleaning
	validate    *validator.Validate  // Field-level validation of inputs
	logger      *slog.Logger         // Structured logger
}

// NewCommentService creates a new comment service instance
func NewCommentService(
	commentRepo Repository,
	postRepo posts.Repository,
	san *sanitizer.Sanitizer,
	logger *slog.Logger,
) Service {
	if logger == nil {
		logger = slog.Default()
	}
	if san == nil {
		san = sanitizer.New()
	}
	return &commentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		sanitizer:   san,
		validate:    newValidator(),
		logger:      logger,
	}
}

// newValidator reports field names using their json tags so messages match the API
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// CreateComment creates a new top-level comment or reply
// Flow:
// 1. Validate IDs, author fields and content (sanitizer)
// 2. Verify the post exists
// 3. Insert; the repository assigns the path and bumps the parent's reply_count atomically
func (s *commentService) CreateComment(ctx context.Context, input CreateInput) (*Comment, error) {
	if !IsValidID(input.PostID) {
		return nil, invalidInput("Invalid post ID")
	}

	parentID := normalizeOptional(input.ParentID)
	if parentID != nil && !IsValidID(*parentID) {
		return nil, invalidInput("Invalid parent comment ID")
	}

	authorName := strings.TrimSpace(input.AuthorName)
	if authorName == "" {
		return nil, invalidInput("Author name is required")
	}
	input.AuthorName = authorName
	input.AuthorEmail = normalizeOptional(input.AuthorEmail)
	if err := s.validate.Struct(input); err != nil {
		return nil, invalidInput(validationMessage(err))
	}

	processed, err := s.sanitizer.Process(input.Content)
	if err != nil {
		return nil, sanitizerError(err)
	}

	if _, err := s.postRepo.GetByID(ctx, input.PostID); err != nil {
		if posts.IsNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, s.fail("create comment: load post", Wrap(CodeQueryFailed, "Failed to load post", err))
	}

	comment := &Comment{
		ID:               uuid.New().String(),
		PostID:           input.PostID,
		ParentID:         parentID,
		Content:          processed.Original,
		SanitizedContent: processed.Sanitized,
		SanitizerVersion: processed.Version,
		AuthorName:       authorName,
		AuthorEmail:      input.AuthorEmail,
		CreatedBy:        normalizeOptional(input.CreatedBy),
		ModerationStatus: StatusPending,
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, s.fail("create comment", err)
	}

	s.logger.Info("comment created",
		"comment_id", comment.ID,
		"post_id", comment.PostID,
		"depth", comment.Depth(),
		"modified_by_sanitizer", processed.IsModified)

	return comment, nil
}

// GetComment retrieves a single comment
func (s *commentService) GetComment(ctx context.Context, id string, includeDeleted bool) (*Comment, error) {
	if !IsValidID(id) {
		return nil, ErrNotFound
	}

	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("get comment", err)
	}
	if comment.IsDeleted && !includeDeleted {
		return nil, ErrNotFound
	}
	return comment, nil
}

// ListComments lists comments on a post
//
// Flat mode filters, sorts and paginates in storage. Tree mode loads the whole thread,
// assembles it, drops filtered-out nodes (keeping placeholders that anchor visible
// replies), then paginates root threads and applies MaxDepth.
func (s *commentService) ListComments(ctx context.Context, postID string, opts ListOptions) (*ListResult, error) {
	if !IsValidID(postID) {
		return nil, invalidInput("Invalid post ID")
	}
	if err := normalizeListOptions(&opts, SortAsc); err != nil {
		return nil, err
	}

	if !opts.AsTree {
		rows, err := s.commentRepo.ListByPost(ctx, postID, Filter{
			IncludeDeleted: opts.IncludeDeleted,
			Statuses:       opts.Statuses,
			SortBy:         opts.SortBy,
			SortDirection:  opts.SortDirection,
			Limit:          opts.Limit,
			Offset:         opts.Offset,
		})
		if err != nil {
			return nil, s.fail("list comments", err)
		}
		return &ListResult{Comments: rows}, nil
	}

	rows, err := s.commentRepo.ListByPost(ctx, postID, Filter{
		IncludeDeleted: true,
		SortBy:         opts.SortBy,
		SortDirection:  opts.SortDirection,
	})
	if err != nil {
		return nil, s.fail("list comment tree", err)
	}

	roots := BuildTree(rows)
	if !opts.IncludeDeleted || len(opts.Statuses) > 0 {
		roots = PruneTree(roots, visibleFilter(opts))
	}
	roots = pageRoots(roots, opts.Limit, opts.Offset)

	return &ListResult{Tree: LimitDepth(roots, opts.MaxDepth)}, nil
}

// ListUserComments lists comments authored by a signed-in user
func (s *commentService) ListUserComments(ctx context.Context, userID string, opts ListOptions) ([]*UserComment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalidInput("User ID is required")
	}
	if err := normalizeListOptions(&opts, SortDesc); err != nil {
		return nil, err
	}

	rows, err := s.commentRepo.ListByUser(ctx, userID, Filter{
		IncludeDeleted: opts.IncludeDeleted,
		Statuses:       opts.Statuses,
		SortBy:         opts.SortBy,
		SortDirection:  opts.SortDirection,
		Limit:          opts.Limit,
		Offset:         opts.Offset,
	})
	if err != nil {
		return nil, s.fail("list user comments", err)
	}
	return rows, nil
}

// UpdateComment edits a comment's content or author fields
func (s *commentService) UpdateComment(ctx context.Context, id string, input UpdateInput) (*Comment, error) {
	if !IsValidID(id) {
		return nil, ErrNotFound
	}
	if input.IsEmpty() {
		return nil, invalidInput("No fields to update")
	}

	var update ContentUpdate

	if input.Content != nil {
		processed, err := s.sanitizer.Process(*input.Content)
		if err != nil {
			return nil, sanitizerError(err)
		}
		update.Content = &processed.Original
		update.SanitizedContent = &processed.Sanitized
		update.SanitizerVersion = &processed.Version
	}

	if input.AuthorName != nil {
		name := strings.TrimSpace(*input.AuthorName)
		if name == "" {
			return nil, invalidInput("Author name is required")
		}
		input.AuthorName = &name
		update.AuthorName = &name
	}

	if input.AuthorEmail != nil {
		// an empty email clears the stored address
		email := strings.TrimSpace(*input.AuthorEmail)
		update.AuthorEmail = &email
		if email == "" {
			input.AuthorEmail = nil
		} else {
			input.AuthorEmail = &email
		}
	}

	if err := s.validate.Struct(input); err != nil {
		return nil, invalidInput(validationMessage(err))
	}

	comment, err := s.commentRepo.Update(ctx, id, update)
	if err != nil {
		return nil, s.fail("update comment", err)
	}

	s.logger.Info("comment updated",
		"comment_id", id,
		"content_changed", update.Content != nil)

	return comment, nil
}

// DeleteComment soft-deletes a comment; its replies stay attached
func (s *commentService) DeleteComment(ctx context.Context, id string) (*Comment, error) {
	if !IsValidID(id) {
		return nil, ErrNotFound
	}

	comment, err := s.commentRepo.SoftDelete(ctx, id)
	if err != nil {
		return nil, s.fail("delete comment", err)
	}

	s.logger.Info("comment deleted", "comment_id", id)
	return comment, nil
}

// ChangeStatus sets the moderation status of a comment
func (s *commentService) ChangeStatus(ctx context.Context, id string, status ModerationStatus, notes *string) (*Comment, error) {
	if !IsValidID(id) {
		return nil, ErrNotFound
	}
	if !status.IsValid() {
		return nil, invalidInput(fmt.Sprintf("Invalid moderation status %q", status))
	}
	if err := validateNotes(notes); err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.ChangeStatus(ctx, id, status, notes)
	if err != nil {
		return nil, s.fail("change status", err)
	}

	s.logger.Info("comment status changed",
		"comment_id", id,
		"status", status)

	return comment, nil
}

// AttachNotes replaces the moderation notes on a comment
func (s *commentService) AttachNotes(ctx context.Context, id string, notes string) (*Comment, error) {
	if !IsValidID(id) {
		return nil, ErrNotFound
	}
	if err := validateNotes(&notes); err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.SetModerationNotes(ctx, id, notes)
	if err != nil {
		return nil, s.fail("attach notes", err)
	}
	return comment, nil
}

// MoveComment reparents a comment under another comment of the same post, or to the top level
func (s *commentService) MoveComment(ctx context.Context, id string, newParentID *string) (*Comment, error) {
	if !IsValidID(id) {
		return nil, ErrNotFound
	}
	newParentID = normalizeOptional(newParentID)
	if newParentID != nil {
		if !IsValidID(*newParentID) {
			return nil, invalidInput("Invalid parent comment ID")
		}
		if *newParentID == id {
			return nil, invalidInput("A comment cannot be its own parent")
		}
	}

	comment, err := s.commentRepo.Move(ctx, id, newParentID)
	if err != nil {
		return nil, s.fail("move comment", err)
	}

	s.logger.Info("comment moved",
		"comment_id", id,
		"new_parent_id", derefOr(newParentID, ""),
		"depth", comment.Depth())

	return comment, nil
}

// PurgeComment permanently removes a comment that has no replies
func (s *commentService) PurgeComment(ctx context.Context, id string) error {
	if !IsValidID(id) {
		return ErrNotFound
	}
	if err := s.commentRepo.Purge(ctx, id); err != nil {
		return s.fail("purge comment", err)
	}

	s.logger.Info("comment purged", "comment_id", id)
	return nil
}

// fail logs storage and unexpected errors with their cause and returns a typed error.
// Caller-correctable errors pass through untouched and unlogged.
func (s *commentService) fail(op string, err error) error {
	var typed *Error
	if !errors.As(err, &typed) {
		s.logger.Error("unexpected error", "op", op, "error", err)
		return Wrap(CodeUnexpected, ErrUnexpected.Message, err)
	}
	if IsStorageError(typed) || typed.Code == CodeUnexpected {
		s.logger.Error("storage error", "op", op, "code", typed.Code, "error", typed.Err)
	}
	return typed
}

func normalizeListOptions(opts *ListOptions, defaultDirection SortDirection) error {
	if opts.SortBy == "" {
		opts.SortBy = SortByCreatedAt
	}
	if opts.SortBy != SortByCreatedAt && opts.SortBy != SortByUpdatedAt {
		return invalidInput("sort must be one of [created_at, updated_at]")
	}

	opts.SortDirection = SortDirection(strings.ToLower(string(opts.SortDirection)))
	if opts.SortDirection == "" {
		opts.SortDirection = defaultDirection
	}
	if opts.SortDirection != SortAsc && opts.SortDirection != SortDesc {
		return invalidInput("direction must be one of [asc, desc]")
	}

	for _, status := range opts.Statuses {
		if !status.IsValid() {
			return invalidInput(fmt.Sprintf("Invalid moderation status %q", status))
		}
	}

	if opts.Limit < 0 || opts.Offset < 0 || opts.MaxDepth < 0 {
		return invalidInput("limit, offset and max_depth must not be negative")
	}
	if opts.Limit > MaxPageSize {
		opts.Limit = MaxPageSize
	}
	return nil
}

// visibleFilter reports which comments a tree listing shows in full
func visibleFilter(opts ListOptions) func(*Comment) bool {
	allowed := make(map[ModerationStatus]bool, len(opts.Statuses))
	for _, st := range opts.Statuses {
		allowed[st] = true
	}
	return func(c *Comment) bool {
		if c.IsDeleted && !opts.IncludeDeleted {
			return false
		}
		return len(allowed) == 0 || allowed[c.ModerationStatus]
	}
}

// pageRoots slices root threads; limit 0 means all remaining
func pageRoots(roots []*CommentWithDepth, limit, offset int) []*CommentWithDepth {
	if offset >= len(roots) {
		return []*CommentWithDepth{}
	}
	roots = roots[offset:]
	if limit > 0 && limit < len(roots) {
		roots = roots[:limit]
	}
	return roots
}

func validateNotes(notes *string) error {
	if notes != nil && len([]rune(*notes)) > MaxModerationNotesLength {
		return invalidInput("Moderation notes exceed 1000 characters")
	}
	return nil
}

func sanitizerError(err error) error {
	var valErr *sanitizer.ValidationError
	if errors.As(err, &valErr) {
		return Wrap(CodeInvalidInput, valErr.Message, valErr)
	}
	return Wrap(CodeUnexpected, ErrUnexpected.Message, err)
}

// validationMessage turns the first validator failure into a caller-facing sentence
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid input"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// IsValidID accepts only the canonical 36-character UUID form Postgres stores
func IsValidID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// normalizeOptional treats a pointer to a blank string as absent
func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

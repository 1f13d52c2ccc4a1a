package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"Inkwell/internal/core/comments"
)

// commentColumns is the select list shared by every query that returns full comments.
// Queries alias the comments table as c.
const commentColumns = `
	c.id, c.post_id, c.parent_id, c.path,
	c.content, c.sanitized_content, c.sanitizer_version,
	c.author_name, c.author_email, c.created_by,
	c.moderation_status, c.flags_count, c.moderation_notes,
	c.is_deleted, c.deleted_at, c.reply_count,
	c.created_at, c.updated_at`

// Postgres error codes the repositories react to
const (
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqUniqueViolation     = "23505"
)

type rowScanner interface {
	Scan(dest ...any) error
}

type postgresCommentRepo struct {
	db *sql.DB
}

// NewCommentRepository creates a new PostgreSQL comment repository
func NewCommentRepository(db *sql.DB) comments.Repository {
	return &postgresCommentRepo{db: db}
}

// scanComment reads one row selected with commentColumns (plus any trailing extras)
func scanComment(row rowScanner, extra ...any) (*comments.Comment, error) {
	var (
		c      comments.Comment
		path   pq.StringArray
		status string
	)

	dest := []any{
		&c.ID, &c.PostID, &c.ParentID, &path,
		&c.Content, &c.SanitizedContent, &c.SanitizerVersion,
		&c.AuthorName, &c.AuthorEmail, &c.CreatedBy,
		&status, &c.FlagsCount, &c.ModerationNotes,
		&c.IsDeleted, &c.DeletedAt, &c.ReplyCount,
		&c.CreatedAt, &c.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	c.Path = []string(path)
	c.ModerationStatus = comments.ModerationStatus(status)
	return &c, nil
}

// GetByID retrieves a comment by ID, including soft-deleted comments
func (r *postgresCommentRepo) GetByID(ctx context.Context, id string) (*comments.Comment, error) {
	return getCommentByID(ctx, r.db, id)
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getCommentByID(ctx context.Context, q queryer, id string) (*comments.Comment, error) {
	query := `SELECT ` + commentColumns + `
		FROM comments c
		WHERE c.id = $1
	`

	comment, err := scanComment(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, comments.ErrNotFound
	}
	if err != nil {
		return nil, comments.Wrap(comments.CodeQueryFailed, comments.ErrQueryFailed.Message,
			fmt.Errorf("failed to get comment %s: %w", id, err))
	}
	return comment, nil
}

// ListByPost retrieves comments on a post using the filter's sort and pagination
func (r *postgresCommentRepo) ListByPost(ctx context.Context, postID string, filter comments.Filter) ([]*comments.Comment, error) {
	where, args := buildFilterClause("c.post_id = $1", []any{postID}, filter)
	query := `SELECT ` + commentColumns + `
		FROM comments c
		WHERE ` + where + `
		` + buildOrderClause(filter) + buildPageClause(&args, filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, comments.Wrap(comments.CodeQueryFailed, comments.ErrQueryFailed.Message,
			fmt.Errorf("failed to list comments for post: %w", err))
	}
	defer func() { _ = rows.Close() }()

	result := make([]*comments.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, comments.Wrap(comments.CodeQueryFailed, comments.ErrQueryFailed.Message,
				fmt.Errorf("failed to scan comment: %w", err))
		}
		result = append(result, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, comments.Wrap(comments.CodeQueryFailed, comments.ErrQueryFailed.Message,
			fmt.Errorf("error iterating comments: %w", err))
	}

	return result, nil
}

// ListByUser retrieves a user's comments joined with the owning post's title
func (r *postgresCommentRepo) ListByUser(ctx context.Context, userID string, filter comments.Filter) ([]*comments.UserComment, error) {
	where, args := buildFilterClause("c.created_by = $1", []any{userID}, filter)
	query := `SELECT ` + commentColumns + `, p.title
		FROM comments c
		JOIN posts p ON p.id = c.post_id
		WHERE ` + where + `
		` + buildOrderClause(filter) + buildPageClause(&args, filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, comments.Wrap(comments.CodeQueryFailed, comments.ErrQueryFailed.Message,
			fmt.Errorf("failed to list comments for user: %w", err))
	}
	defer func() { _ = rows.Close() }()

	result := make([]*comments.UserComment, 0)
	for rows.Next() {
		var title string
		comment, err := scanComment(rows, &title)
		if err != nil {
			return nil, comments.Wrap(comments.CodeQueryFailed, comments.ErrQueryFailed.Message,
				fmt.Errorf("failed to scan user comment: %w", err))
		}
		result = append(result, &comments.UserComment{Comment: *comment, PostTitle: title})
	}
	if err := rows.Err(); err != nil {
		return nil, comments.Wrap(comments.CodeQueryFailed, comments.ErrQueryFailed.Message,
			fmt.Errorf("error iterating user comments: %w", err))
	}

	return result, nil
}

// Update applies the non-nil fields of an edit to a live comment
// An empty AuthorEmail clears the stored address
func (r *postgresCommentRepo) Update(ctx context.Context, id string, update comments.ContentUpdate) (*comments.Comment, error) {
	query := `
		UPDATE comments AS c
		SET
			content = COALESCE($2, c.content),
			sanitized_content = COALESCE($3, c.sanitized_content),
			sanitizer_version = COALESCE($4, c.sanitizer_version),
			author_name = COALESCE($5, c.author_name),
			author_email = CASE WHEN $6::text IS NULL THEN c.author_email ELSE NULLIF($6::text, '') END,
			updated_at = NOW()
		WHERE c.id = $1 AND c.is_deleted = FALSE
		RETURNING ` + commentColumns

	comment, err := scanComment(r.db.QueryRowContext(ctx, query,
		id,
		update.Content,
		update.SanitizedContent,
		update.SanitizerVersion,
		update.AuthorName,
		update.AuthorEmail,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, comments.ErrNotFound
	}
	if err != nil {
		return nil, updateError("failed to update comment", err)
	}
	return comment, nil
}

// ChangeStatus sets the moderation status; nil notes keep the existing notes
func (r *postgresCommentRepo) ChangeStatus(ctx context.Context, id string, status comments.ModerationStatus, notes *string) (*comments.Comment, error) {
	query := `
		UPDATE comments AS c
		SET
			moderation_status = $2,
			moderation_notes = COALESCE($3, c.moderation_notes),
			updated_at = NOW()
		WHERE c.id = $1
		RETURNING ` + commentColumns

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id, string(status), notes))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, comments.ErrNotFound
	}
	if err != nil {
		return nil, updateError("failed to change comment status", err)
	}
	return comment, nil
}

// SetModerationNotes replaces the moderation notes
func (r *postgresCommentRepo) SetModerationNotes(ctx context.Context, id string, notes string) (*comments.Comment, error) {
	query := `
		UPDATE comments AS c
		SET moderation_notes = $2, updated_at = NOW()
		WHERE c.id = $1
		RETURNING ` + commentColumns

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id, notes))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, comments.ErrNotFound
	}
	if err != nil {
		return nil, updateError("failed to set moderation notes", err)
	}
	return comment, nil
}

// buildFilterClause appends deletion and status predicates to base.
// base must use placeholders $1..$len(args).
func buildFilterClause(base string, args []any, filter comments.Filter) (string, []any) {
	clauses := []string{base}

	if !filter.IncludeDeleted {
		clauses = append(clauses, "c.is_deleted = FALSE")
	}

	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		clauses = append(clauses, fmt.Sprintf("c.moderation_status = ANY($%d)", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

// buildOrderClause whitelists the sort column; the id tiebreak keeps pages stable
func buildOrderClause(filter comments.Filter) string {
	column := "c.created_at"
	if filter.SortBy == comments.SortByUpdatedAt {
		column = "c.updated_at"
	}
	direction := "ASC"
	if filter.SortDirection == comments.SortDesc {
		direction = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, c.id %s", column, direction, direction)
}

// buildPageClause appends LIMIT/OFFSET placeholders when the filter asks for a page
func buildPageClause(args *[]any, filter comments.Filter) string {
	var clause string
	if filter.Limit > 0 {
		*args = append(*args, filter.Limit)
		clause += fmt.Sprintf(" LIMIT $%d", len(*args))
	}
	if filter.Offset > 0 {
		*args = append(*args, filter.Offset)
		clause += fmt.Sprintf(" OFFSET $%d", len(*args))
	}
	return clause
}

func statusStrings(statuses []comments.ModerationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// updateError classifies a failed UPDATE; check constraint failures are the caller's fault
func updateError(msg string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqCheckViolation {
		return comments.Wrap(comments.CodeInvalidInput, "Value violates comment constraints", err)
	}
	return comments.Wrap(comments.CodeUpdateFailed, comments.ErrUpdateFailed.Message, fmt.Errorf("%s: %w", msg, err))
}

func isPQError(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

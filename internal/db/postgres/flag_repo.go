package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"Inkwell/internal/core/comments"
	"Inkwell/internal/core/moderation"
)

type postgresFlagRepo struct {
	db *sql.DB
}

// NewFlagRepository creates a new PostgreSQL comment flag repository
func NewFlagRepository(db *sql.DB) moderation.Repository {
	return &postgresFlagRepo{db: db}
}

// Create records a flag, bumps flags_count and applies escalation atomically
// Flow:
// 1. Confirm the comment exists and is live
// 2. Insert the flag; ON CONFLICT DO NOTHING turns a repeat into DUPLICATE_FLAG
// 3. Increment flags_count in place and read back count and status under the row lock
// 4. If moderation.Escalate picks a new status, apply it only if the status is unchanged
func (r *postgresFlagRepo) Create(ctx context.Context, flag *moderation.Flag) (*moderation.FlagOutcome, error) {
	if flag.ID == "" {
		flag.ID = uuid.New().String()
	}

	var outcome *moderation.FlagOutcome

	err := withTx(ctx, r.db, comments.CodeInsertFailed, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1 AND is_deleted = FALSE)`,
			flag.CommentID,
		).Scan(&exists); err != nil {
			return comments.Wrap(comments.CodeQueryFailed, comments.ErrQueryFailed.Message,
				fmt.Errorf("failed to check comment for flag: %w", err))
		}
		if !exists {
			return comments.ErrCommentNotFound
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO comment_flags (id, comment_id, flagged_by, reason)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (comment_id, flagged_by) DO NOTHING
			RETURNING created_at
		`, flag.ID, flag.CommentID, flag.FlaggedBy, flag.Reason).Scan(&flag.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return comments.ErrDuplicateFlag
		}
		if err != nil {
			if isPQError(err, pqUniqueViolation) {
				return comments.ErrDuplicateFlag
			}
			return comments.Wrap(comments.CodeInsertFailed, "Failed to save flag",
				fmt.Errorf("failed to insert flag: %w", err))
		}

		var (
			count  int
			status string
		)
		if err := tx.QueryRowContext(ctx, `
			UPDATE comments
			SET flags_count = flags_count + 1
			WHERE id = $1
			RETURNING flags_count, moderation_status
		`, flag.CommentID).Scan(&count, &status); err != nil {
			return comments.Wrap(comments.CodeUpdateFailed, comments.ErrUpdateFailed.Message,
				fmt.Errorf("failed to increment flags count: %w", err))
		}

		current := comments.ModerationStatus(status)
		outcome = &moderation.FlagOutcome{Flag: flag, FlagsCount: count, Status: current}

		next := moderation.Escalate(current, count)
		if next == current {
			return nil
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE comments
			SET moderation_status = $2, updated_at = NOW()
			WHERE id = $1 AND moderation_status = $3
		`, flag.CommentID, string(next), status)
		if err != nil {
			return comments.Wrap(comments.CodeUpdateFailed, comments.ErrUpdateFailed.Message,
				fmt.Errorf("failed to escalate comment: %w", err))
		}
		if n, _ := res.RowsAffected(); n == 1 {
			outcome.Status = next
			outcome.Escalated = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// Delete withdraws a user's flag and decrements flags_count, floored at zero
func (r *postgresFlagRepo) Delete(ctx context.Context, commentID, flaggedBy string) error {
	return withTx(ctx, r.db, comments.CodeUpdateFailed, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx, `
			DELETE FROM comment_flags
			WHERE comment_id = $1 AND flagged_by = $2
			RETURNING id
		`, commentID, flaggedBy).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return comments.NewError(comments.CodeNotFound, "Flag not found")
		}
		if err != nil {
			return comments.Wrap(comments.CodeUpdateFailed, "Failed to remove flag",
				fmt.Errorf("failed to delete flag: %w", err))
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE comments
			SET flags_count = GREATEST(flags_count - 1, 0)
			WHERE id = $1
		`, commentID); err != nil {
			return comments.Wrap(comments.CodeUpdateFailed, comments.ErrUpdateFailed.Message,
				fmt.Errorf("failed to decrement flags count: %w", err))
		}
		return nil
	})
}

// ListByComment returns a comment's flags, newest first
func (r *postgresFlagRepo) ListByComment(ctx context.Context, commentID string) ([]*moderation.Flag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, comment_id, flagged_by, reason, created_at
		FROM comment_flags
		WHERE comment_id = $1
		ORDER BY created_at DESC, id DESC
	`, commentID)
	if err != nil {
		return nil, comments.Wrap(comments.CodeQueryFailed, "Failed to load flags",
			fmt.Errorf("failed to list flags: %w", err))
	}
	defer func() { _ = rows.Close() }()

	flags := make([]*moderation.Flag, 0)
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, comments.Wrap(comments.CodeQueryFailed, "Failed to load flags", err)
		}
		flags = append(flags, flag)
	}
	if err := rows.Err(); err != nil {
		return nil, comments.Wrap(comments.CodeQueryFailed, "Failed to load flags",
			fmt.Errorf("error iterating flags: %w", err))
	}
	return flags, nil
}

// ListByComments loads flags for a page of queued comments in one query
func (r *postgresFlagRepo) ListByComments(ctx context.Context, commentIDs []string) (map[string][]*moderation.Flag, error) {
	result := make(map[string][]*moderation.Flag, len(commentIDs))
	if len(commentIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, comment_id, flagged_by, reason, created_at
		FROM comment_flags
		WHERE comment_id = ANY($1::uuid[])
		ORDER BY comment_id, created_at DESC, id DESC
	`, pq.Array(commentIDs))
	if err != nil {
		return nil, comments.Wrap(comments.CodeQueryFailed, "Failed to load flags",
			fmt.Errorf("failed to batch list flags: %w", err))
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, comments.Wrap(comments.CodeQueryFailed, "Failed to load flags", err)
		}
		result[flag.CommentID] = append(result[flag.CommentID], flag)
	}
	if err := rows.Err(); err != nil {
		return nil, comments.Wrap(comments.CodeQueryFailed, "Failed to load flags",
			fmt.Errorf("error iterating flags: %w", err))
	}
	return result, nil
}

// ListQueue returns live comments awaiting review, most flagged first
func (r *postgresFlagRepo) ListQueue(ctx context.Context, opts moderation.QueueOptions) ([]*comments.Comment, error) {
	query := `SELECT ` + commentColumns + `
		FROM comments c
		WHERE c.is_deleted = FALSE
			AND c.flags_count >= $1
			AND c.moderation_status = ANY($2)
		ORDER BY c.flags_count DESC, c.created_at DESC, c.id DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query,
		opts.MinFlags, pq.Array(statusStrings(opts.Statuses)), opts.Limit, opts.Offset)
	if err != nil {
		return nil, comments.Wrap(comments.CodeQueryFailed, "Failed to load moderation queue",
			fmt.Errorf("failed to list moderation queue: %w", err))
	}
	defer func() { _ = rows.Close() }()

	queued := make([]*comments.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, comments.Wrap(comments.CodeQueryFailed, "Failed to load moderation queue",
				fmt.Errorf("failed to scan queued comment: %w", err))
		}
		queued = append(queued, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, comments.Wrap(comments.CodeQueryFailed, "Failed to load moderation queue",
			fmt.Errorf("error iterating moderation queue: %w", err))
	}
	return queued, nil
}

func scanFlag(row rowScanner) (*moderation.Flag, error) {
	var f moderation.Flag
	if err := row.Scan(&f.ID, &f.CommentID, &f.FlaggedBy, &f.Reason, &f.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan flag: %w", err)
	}
	return &f, nil
}

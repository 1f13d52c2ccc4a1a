package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/lib/pq"

	"Inkwell/internal/core/comments"
)

// This file holds every write that touches more than one comment row. Each runs in a
// single transaction and keeps two invariants:
//
//   - path == parent.path + [id] (or [id] for roots)
//   - reply_count == number of direct children with is_deleted = FALSE
//
// Counters are only ever changed with in-place arithmetic (reply_count + 1), so
// concurrent writers under the same parent serialize on the parent's row lock
// instead of overwriting each other.

// withTx runs fn in a transaction. Begin and commit failures are reported with failCode;
// errors from fn are returned as is.
func withTx(ctx context.Context, db *sql.DB, failCode comments.Code, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return comments.Wrap(failCode, messageFor(failCode), fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			log.Printf("Failed to rollback transaction: %v", rollbackErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return comments.Wrap(failCode, messageFor(failCode), fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func messageFor(code comments.Code) string {
	switch code {
	case comments.CodeInsertFailed:
		return comments.ErrInsertFailed.Message
	case comments.CodeQueryFailed:
		return comments.ErrQueryFailed.Message
	default:
		return comments.ErrUpdateFailed.Message
	}
}

// Create inserts a comment and links it into its thread
//
// For replies the parent's reply_count is incremented first with UPDATE ... RETURNING,
// which both proves the parent exists and yields its post and path under a row lock.
// A post mismatch rolls the increment back.
func (r *postgresCommentRepo) Create(ctx context.Context, comment *comments.Comment) error {
	return withTx(ctx, r.db, comments.CodeInsertFailed, func(tx *sql.Tx) error {
		path := []string{comment.ID}

		if comment.ParentID != nil {
			var (
				parentPostID string
				parentPath   pq.StringArray
			)
			err := tx.QueryRowContext(ctx, `
				UPDATE comments
				SET reply_count = reply_count + 1
				WHERE id = $1
				RETURNING post_id, path
			`, *comment.ParentID).Scan(&parentPostID, &parentPath)
			if errors.Is(err, sql.ErrNoRows) {
				return comments.ErrParentNotFound
			}
			if err != nil {
				return comments.Wrap(comments.CodeUpdateFailed, comments.ErrUpdateFailed.Message,
					fmt.Errorf("failed to increment parent reply count: %w", err))
			}
			if !strings.EqualFold(parentPostID, comment.PostID) {
				return comments.ErrParentPostMismatch
			}
			path = append(append(make([]string, 0, len(parentPath)+1), parentPath...), comment.ID)
		}

		query := `
			INSERT INTO comments AS c (
				id, post_id, parent_id, path,
				content, sanitized_content, sanitizer_version,
				author_name, author_email, created_by,
				moderation_status
			) VALUES (
				$1, $2, $3, $4::uuid[],
				$5, $6, $7,
				$8, $9, $10,
				$11
			)
			RETURNING ` + commentColumns

		created, err := scanComment(tx.QueryRowContext(ctx, query,
			comment.ID, comment.PostID, comment.ParentID, pq.Array(path),
			comment.Content, comment.SanitizedContent, comment.SanitizerVersion,
			comment.AuthorName, comment.AuthorEmail, comment.CreatedBy,
			string(comment.ModerationStatus),
		))
		if err != nil {
			if isPQError(err, pqForeignKeyViolation) {
				return comments.ErrPostNotFound
			}
			if isPQError(err, pqCheckViolation) {
				return comments.Wrap(comments.CodeInvalidInput, "Value violates comment constraints", err)
			}
			return comments.Wrap(comments.CodeInsertFailed, comments.ErrInsertFailed.Message,
				fmt.Errorf("failed to insert comment: %w", err))
		}

		*comment = *created
		return nil
	})
}

// SoftDelete marks a comment deleted and releases its slot in the parent's reply_count
// Only the first delete changes anything; later calls return the row as stored
func (r *postgresCommentRepo) SoftDelete(ctx context.Context, id string) (*comments.Comment, error) {
	var result *comments.Comment

	err := withTx(ctx, r.db, comments.CodeUpdateFailed, func(tx *sql.Tx) error {
		deleted, err := scanComment(tx.QueryRowContext(ctx, `
			UPDATE comments AS c
			SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
			WHERE c.id = $1 AND c.is_deleted = FALSE
			RETURNING `+commentColumns, id))

		if errors.Is(err, sql.ErrNoRows) {
			// already deleted or missing
			existing, getErr := getCommentByID(ctx, tx, id)
			if getErr != nil {
				return getErr
			}
			result = existing
			return nil
		}
		if err != nil {
			return comments.Wrap(comments.CodeUpdateFailed, comments.ErrUpdateFailed.Message,
				fmt.Errorf("failed to soft delete comment: %w", err))
		}

		if !deleted.IsRoot() {
			if err := decrementReplyCount(ctx, tx, *deleted.ParentID); err != nil {
				return err
			}
		}

		result = deleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Move reparents a comment and rewrites the path of its whole subtree
//
// Moving a comment beneath itself or one of its own replies would create a cycle and
// is rejected, as is moving it to another post. Counters move with the comment only
// while it is live; a deleted comment never counted toward its parent.
func (r *postgresCommentRepo) Move(ctx context.Context, id string, newParentID *string) (*comments.Comment, error) {
	var result *comments.Comment

	err := withTx(ctx, r.db, comments.CodeUpdateFailed, func(tx *sql.Tx) error {
		var (
			postID    string
			oldParent *string
			oldPath   pq.StringArray
			isDeleted bool
		)
		err := tx.QueryRowContext(ctx, `
			SELECT post_id, parent_id, path, is_deleted
			FROM comments
			WHERE id = $1
			FOR UPDATE
		`, id).Scan(&postID, &oldParent, &oldPath, &isDeleted)
		if errors.Is(err, sql.ErrNoRows) {
			return comments.ErrNotFound
		}
		if err != nil {
			return comments.Wrap(comments.CodeQueryFailed, comments.ErrQueryFailed.Message,
				fmt.Errorf("failed to lock comment for move: %w", err))
		}

		if sameParent(oldParent, newParentID) {
			existing, err := getCommentByID(ctx, tx, id)
			if err != nil {
				return err
			}
			result = existing
			return nil
		}

		newPrefix := []string{}
		if newParentID != nil {
			var (
				parentPostID string
				parentPath   pq.StringArray
			)
			err := tx.QueryRowContext(ctx, `
				SELECT post_id, path
				FROM comments
				WHERE id = $1
				FOR UPDATE
			`, *newParentID).Scan(&parentPostID, &parentPath)
			if errors.Is(err, sql.ErrNoRows) {
				return comments.ErrParentNotFound
			}
			if err != nil {
				return comments.Wrap(comments.CodeQueryFailed, comments.ErrQueryFailed.Message,
					fmt.Errorf("failed to load new parent: %w", err))
			}
			if !strings.EqualFold(parentPostID, postID) {
				return comments.ErrParentPostMismatch
			}
			for _, ancestor := range parentPath {
				if strings.EqualFold(ancestor, id) {
					return comments.NewError(comments.CodeInvalidInput, "A comment cannot be moved beneath its own reply")
				}
			}
			newPrefix = []string(parentPath)
		}

		if !isDeleted {
			if oldParent != nil {
				if err := decrementReplyCount(ctx, tx, *oldParent); err != nil {
					return err
				}
			}
			if newParentID != nil {
				if err := incrementReplyCount(ctx, tx, *newParentID); err != nil {
					return err
				}
			}
		}

		// The moved comment sits at position len(oldPath) of every path in its subtree,
		// so each path keeps its suffix from there and swaps the prefix.
		_, err = tx.ExecContext(ctx, `
			UPDATE comments
			SET
				path = $2::uuid[] || path[$3:],
				parent_id = CASE WHEN id = $1 THEN $4::uuid ELSE parent_id END,
				updated_at = CASE WHEN id = $1 THEN NOW() ELSE updated_at END
			WHERE path @> ARRAY[$1::uuid]
		`, id, pq.Array(newPrefix), len(oldPath), newParentID)
		if err != nil {
			return comments.Wrap(comments.CodeUpdateFailed, comments.ErrUpdateFailed.Message,
				fmt.Errorf("failed to rewrite subtree paths: %w", err))
		}

		moved, err := getCommentByID(ctx, tx, id)
		if err != nil {
			return err
		}
		result = moved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Purge hard-deletes a comment with no replies (deleted or not). Its flags go with it.
func (r *postgresCommentRepo) Purge(ctx context.Context, id string) error {
	return withTx(ctx, r.db, comments.CodeUpdateFailed, func(tx *sql.Tx) error {
		var (
			parentID  *string
			isDeleted bool
		)
		err := tx.QueryRowContext(ctx, `
			SELECT parent_id, is_deleted
			FROM comments
			WHERE id = $1
			FOR UPDATE
		`, id).Scan(&parentID, &isDeleted)
		if errors.Is(err, sql.ErrNoRows) {
			return comments.ErrNotFound
		}
		if err != nil {
			return comments.Wrap(comments.CodeQueryFailed, comments.ErrQueryFailed.Message,
				fmt.Errorf("failed to lock comment for purge: %w", err))
		}

		var hasReplies bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM comments WHERE parent_id = $1)`, id,
		).Scan(&hasReplies); err != nil {
			return comments.Wrap(comments.CodeQueryFailed, comments.ErrQueryFailed.Message,
				fmt.Errorf("failed to check replies: %w", err))
		}
		if hasReplies {
			return comments.NewError(comments.CodeInvalidInput, "Only comments without replies can be purged")
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
			return comments.Wrap(comments.CodeUpdateFailed, comments.ErrUpdateFailed.Message,
				fmt.Errorf("failed to purge comment: %w", err))
		}

		if parentID != nil && !isDeleted {
			return decrementReplyCount(ctx, tx, *parentID)
		}
		return nil
	})
}

func incrementReplyCount(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE comments SET reply_count = reply_count + 1 WHERE id = $1`, id,
	); err != nil {
		return comments.Wrap(comments.CodeUpdateFailed, comments.ErrUpdateFailed.Message,
			fmt.Errorf("failed to increment reply count: %w", err))
	}
	return nil
}

// decrementReplyCount floors at zero so a drifted counter never violates its check constraint
func decrementReplyCount(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE comments SET reply_count = GREATEST(reply_count - 1, 0) WHERE id = $1`, id,
	); err != nil {
		return comments.Wrap(comments.CodeUpdateFailed, comments.ErrUpdateFailed.Message,
			fmt.Errorf("failed to decrement reply count: %w", err))
	}
	return nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return strings.EqualFold(*a, *b)
}

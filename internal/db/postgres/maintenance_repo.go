package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PathViolation is a comment whose stored path disagrees with its parent's
type PathViolation struct {
	ID           string
	ParentID     *string
	StoredPath   []string
	ExpectedPath []string
}

// MaintenanceRepository recomputes denormalized comment columns from source rows.
// Live writes keep these consistent; this exists for backfills and audits.
type MaintenanceRepository struct {
	db *sql.DB
}

// NewMaintenanceRepository creates a maintenance repository
func NewMaintenanceRepository(db *sql.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// RecountReplies sets every reply_count to the number of live direct children.
// Returns the number of rows whose count changed.
func (r *MaintenanceRepository) RecountReplies(ctx context.Context) (int64, error) {
	query := `
		UPDATE comments c
		SET reply_count = counts.live
		FROM (
			SELECT p.id, COUNT(ch.id) FILTER (WHERE ch.is_deleted = FALSE) AS live
			FROM comments p
			LEFT JOIN comments ch ON ch.parent_id = p.id
			GROUP BY p.id
		) counts
		WHERE c.id = counts.id AND c.reply_count <> counts.live
	`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to recount replies: %w", err)
	}
	return result.RowsAffected()
}

// RecountFlags sets every flags_count to the number of stored flags.
// Returns the number of rows whose count changed.
func (r *MaintenanceRepository) RecountFlags(ctx context.Context) (int64, error) {
	query := `
		UPDATE comments c
		SET flags_count = counts.total
		FROM (
			SELECT cm.id, COUNT(f.id) AS total
			FROM comments cm
			LEFT JOIN comment_flags f ON f.comment_id = cm.id
			GROUP BY cm.id
		) counts
		WHERE c.id = counts.id AND c.flags_count <> counts.total
	`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to recount flags: %w", err)
	}
	return result.RowsAffected()
}

// FindPathViolations lists comments whose path is not parent.path + [id] ([id] for roots)
func (r *MaintenanceRepository) FindPathViolations(ctx context.Context) ([]PathViolation, error) {
	query := `
		SELECT c.id, c.parent_id, c.path,
			CASE WHEN c.parent_id IS NULL THEN ARRAY[c.id] ELSE p.path || c.id END AS expected
		FROM comments c
		LEFT JOIN comments p ON p.id = c.parent_id
		WHERE c.path IS DISTINCT FROM
			CASE WHEN c.parent_id IS NULL THEN ARRAY[c.id] ELSE p.path || c.id END
		ORDER BY array_length(c.path, 1), c.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to find path violations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var violations []PathViolation
	for rows.Next() {
		var (
			v        PathViolation
			stored   pq.StringArray
			expected pq.StringArray
		)
		if err := rows.Scan(&v.ID, &v.ParentID, &stored, &expected); err != nil {
			return nil, fmt.Errorf("failed to scan path violation: %w", err)
		}
		v.StoredPath = []string(stored)
		v.ExpectedPath = []string(expected)
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating path violations: %w", err)
	}
	return violations, nil
}

// RepairPaths rebuilds every path from parent_id, walking down from the roots.
// Returns the number of rows rewritten.
func (r *MaintenanceRepository) RepairPaths(ctx context.Context) (int64, error) {
	query := `
		WITH RECURSIVE tree AS (
			SELECT id, ARRAY[id] AS path
			FROM comments
			WHERE parent_id IS NULL
			UNION ALL
			SELECT ch.id, tree.path || ch.id
			FROM comments ch
			JOIN tree ON ch.parent_id = tree.id
		)
		UPDATE comments c
		SET path = tree.path
		FROM tree
		WHERE c.id = tree.id AND c.path IS DISTINCT FROM tree.path
	`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to repair paths: %w", err)
	}
	return result.RowsAffected()
}

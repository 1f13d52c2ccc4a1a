// Package comments provides HTTP handlers for the comment API.
package comments

import (
	"net/url"

	"Inkwell/internal/api/handlers"
	"Inkwell/internal/core/comments"
)

// parseListOptions reads listing query parameters:
// include_deleted, status (comma list), tree, max_depth, limit, offset, sort, direction
func parseListOptions(query url.Values) (comments.ListOptions, error) {
	var (
		opts comments.ListOptions
		err  error
	)

	if opts.IncludeDeleted, err = handlers.QueryBool(query, "include_deleted"); err != nil {
		return opts, err
	}
	if opts.AsTree, err = handlers.QueryBool(query, "tree"); err != nil {
		return opts, err
	}
	if opts.MaxDepth, err = handlers.QueryInt(query, "max_depth"); err != nil {
		return opts, err
	}
	if opts.Limit, err = handlers.QueryInt(query, "limit"); err != nil {
		return opts, err
	}
	if opts.Offset, err = handlers.QueryInt(query, "offset"); err != nil {
		return opts, err
	}

	opts.Statuses = handlers.QueryStatuses(query, "status")
	opts.SortBy = comments.SortField(query.Get("sort"))
	opts.SortDirection = comments.SortDirection(query.Get("direction"))
	return opts, nil
}

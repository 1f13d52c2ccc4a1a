package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"Inkwell/internal/core/comments"
)

// QueryStatuses splits a comma-separated status list. Blanks are dropped; validity is
// left to the service so the error code stays consistent.
func QueryStatuses(query url.Values, key string) []comments.ModerationStatus {
	raw := query.Get(key)
	if raw == "" {
		return nil
	}
	var statuses []comments.ModerationStatus
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			statuses = append(statuses, comments.ModerationStatus(strings.ToLower(part)))
		}
	}
	return statuses
}

// QueryInt parses an optional integer parameter; absent means 0
func QueryInt(query url.Values, key string) (int, error) {
	raw := query.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, comments.NewError(comments.CodeInvalidInput, fmt.Sprintf("%s must be a valid integer", key))
	}
	return n, nil
}

// QueryBool parses an optional boolean parameter; absent means false
func QueryBool(query url.Values, key string) (bool, error) {
	raw := query.Get(key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, comments.NewError(comments.CodeInvalidInput, fmt.Sprintf("%s must be true or false", key))
	}
	return b, nil
}

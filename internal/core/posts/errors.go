package posts

import "errors"

// ErrNotFound is returned when a post is not found by ID
var ErrNotFound = errors.New("post not found")

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

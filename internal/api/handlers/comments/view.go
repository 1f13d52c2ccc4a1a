package comments

import (
	"net/http"

	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/comments"
)

// viewer is who is looking at a response; it decides which private fields survive
type viewer struct {
	userID    string
	moderator bool
}

func viewerOf(r *http.Request) viewer {
	return viewer{userID: middleware.GetUserID(r), moderator: middleware.IsModerator(r)}
}

// redact returns c as this viewer may see it.
// Author email is shown to the author and moderators; moderation notes only to moderators.
func (v viewer) redact(c *comments.Comment) *comments.Comment {
	if v.moderator {
		return c
	}
	out := *c
	if !c.IsOwnedBy(v.userID) {
		out.AuthorEmail = nil
	}
	out.ModerationNotes = nil
	return &out
}

func (v viewer) redactAll(list []*comments.Comment) []*comments.Comment {
	out := make([]*comments.Comment, len(list))
	for i, c := range list {
		out[i] = v.redact(c)
	}
	return out
}

func (v viewer) redactTree(nodes []*comments.CommentWithDepth) []*comments.CommentWithDepth {
	out := make([]*comments.CommentWithDepth, len(nodes))
	for i, n := range nodes {
		out[i] = &comments.CommentWithDepth{
			Comment:     *v.redact(&n.Comment),
			Children:    v.redactTree(n.Children),
			Depth:       n.Depth,
			Placeholder: n.Placeholder,
		}
	}
	return out
}

package comments

import (
	"context"
	"sort"
	"time"

	"Inkwell/internal/core/posts"
)

// mockCommentRepo is an in-memory Repository that keeps path and reply_count the
// same way the Postgres implementation does, so service tests can assert on them
type mockCommentRepo struct {
	comments   map[string]*Comment
	order      []string
	lastFilter Filter
	err        error // returned from every method when set
	clock      time.Time
}

func newMockCommentRepo() *mockCommentRepo {
	return &mockCommentRepo{
		comments: make(map[string]*Comment),
		clock:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *mockCommentRepo) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *mockCommentRepo) copyOf(id string) *Comment {
	c := *m.comments[id]
	c.Path = append([]string(nil), c.Path...)
	return &c
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *Comment) error {
	if m.err != nil {
		return m.err
	}
	path := []string{comment.ID}
	if comment.ParentID != nil {
		parent, ok := m.comments[*comment.ParentID]
		if !ok {
			return ErrParentNotFound
		}
		if parent.PostID != comment.PostID {
			return ErrParentPostMismatch
		}
		path = append(append([]string(nil), parent.Path...), comment.ID)
		parent.ReplyCount++
	}
	comment.Path = path
	comment.CreatedAt = m.now()
	comment.UpdatedAt = comment.CreatedAt

	stored := *comment
	m.comments[comment.ID] = &stored
	m.order = append(m.order, comment.ID)
	return nil
}

func (m *mockCommentRepo) GetByID(ctx context.Context, id string) (*Comment, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.comments[id]; !ok {
		return nil, ErrNotFound
	}
	return m.copyOf(id), nil
}

func (m *mockCommentRepo) ListByPost(ctx context.Context, postID string, filter Filter) ([]*Comment, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	var out []*Comment
	for _, id := range m.order {
		c := m.comments[id]
		if c.PostID != postID || !matches(c, filter) {
			continue
		}
		out = append(out, m.copyOf(id))
	}
	sortComments(out, filter)
	return paginate(out, filter), nil
}

func (m *mockCommentRepo) ListByUser(ctx context.Context, userID string, filter Filter) ([]*UserComment, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	var matched []*Comment
	for _, id := range m.order {
		c := m.comments[id]
		if c.CreatedBy == nil || *c.CreatedBy != userID || !matches(c, filter) {
			continue
		}
		matched = append(matched, m.copyOf(id))
	}
	sortComments(matched, filter)
	matched = paginate(matched, filter)

	out := make([]*UserComment, 0, len(matched))
	for _, c := range matched {
		out = append(out, &UserComment{Comment: *c, PostTitle: "Post " + c.PostID[:8]})
	}
	return out, nil
}

func (m *mockCommentRepo) Update(ctx context.Context, id string, update ContentUpdate) (*Comment, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.comments[id]
	if !ok || c.IsDeleted {
		return nil, ErrNotFound
	}
	if update.Content != nil {
		c.Content = *update.Content
		c.SanitizedContent = *update.SanitizedContent
		c.SanitizerVersion = *update.SanitizerVersion
	}
	if update.AuthorName != nil {
		c.AuthorName = *update.AuthorName
	}
	if update.AuthorEmail != nil {
		if *update.AuthorEmail == "" {
			c.AuthorEmail = nil
		} else {
			email := *update.AuthorEmail
			c.AuthorEmail = &email
		}
	}
	c.UpdatedAt = m.now()
	return m.copyOf(id), nil
}

func (m *mockCommentRepo) SoftDelete(ctx context.Context, id string) (*Comment, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !c.IsDeleted {
		now := m.now()
		c.IsDeleted = true
		c.DeletedAt = &now
		c.UpdatedAt = now
		if c.ParentID != nil {
			if parent, ok := m.comments[*c.ParentID]; ok && parent.ReplyCount > 0 {
				parent.ReplyCount--
			}
		}
	}
	return m.copyOf(id), nil
}

func (m *mockCommentRepo) ChangeStatus(ctx context.Context, id string, status ModerationStatus, notes *string) (*Comment, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.ModerationStatus = status
	if notes != nil {
		n := *notes
		c.ModerationNotes = &n
	}
	c.UpdatedAt = m.now()
	return m.copyOf(id), nil
}

func (m *mockCommentRepo) SetModerationNotes(ctx context.Context, id string, notes string) (*Comment, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.ModerationNotes = &notes
	c.UpdatedAt = m.now()
	return m.copyOf(id), nil
}

func (m *mockCommentRepo) Move(ctx context.Context, id string, newParentID *string) (*Comment, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	newPrefix := []string{}
	if newParentID != nil {
		parent, ok := m.comments[*newParentID]
		if !ok {
			return nil, ErrParentNotFound
		}
		if parent.PostID != c.PostID {
			return nil, ErrParentPostMismatch
		}
		for _, anc := range parent.Path {
			if anc == id {
				return nil, invalidInput("A comment cannot be moved beneath its own reply")
			}
		}
		newPrefix = parent.Path
	}

	if !c.IsDeleted {
		if c.ParentID != nil {
			if old := m.comments[*c.ParentID]; old.ReplyCount > 0 {
				old.ReplyCount--
			}
		}
		if newParentID != nil {
			m.comments[*newParentID].ReplyCount++
		}
	}

	oldLen := len(c.Path)
	for _, other := range m.comments {
		if len(other.Path) < oldLen || other.Path[oldLen-1] != id {
			continue
		}
		rewritten := append(append([]string(nil), newPrefix...), other.Path[oldLen-1:]...)
		other.Path = rewritten
	}
	c.ParentID = newParentID
	c.UpdatedAt = m.now()
	return m.copyOf(id), nil
}

func (m *mockCommentRepo) Purge(ctx context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	c, ok := m.comments[id]
	if !ok {
		return ErrNotFound
	}
	if c.ReplyCount > 0 {
		return invalidInput("Only comments without replies can be purged")
	}
	if c.ParentID != nil && !c.IsDeleted {
		if parent, ok := m.comments[*c.ParentID]; ok && parent.ReplyCount > 0 {
			parent.ReplyCount--
		}
	}
	delete(m.comments, id)
	return nil
}

func matches(c *Comment, filter Filter) bool {
	if c.IsDeleted && !filter.IncludeDeleted {
		return false
	}
	if len(filter.Statuses) == 0 {
		return true
	}
	for _, st := range filter.Statuses {
		if c.ModerationStatus == st {
			return true
		}
	}
	return false
}

func sortComments(cs []*Comment, filter Filter) {
	key := func(c *Comment) time.Time {
		if filter.SortBy == SortByUpdatedAt {
			return c.UpdatedAt
		}
		return c.CreatedAt
	}
	sort.SliceStable(cs, func(i, j int) bool {
		if filter.SortDirection == SortDesc {
			return key(cs[i]).After(key(cs[j]))
		}
		return key(cs[i]).Before(key(cs[j]))
	})
}

func paginate(cs []*Comment, filter Filter) []*Comment {
	if filter.Offset >= len(cs) {
		return []*Comment{}
	}
	cs = cs[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(cs) {
		cs = cs[:filter.Limit]
	}
	return cs
}

// mockPostRepo is an in-memory posts.Repository
type mockPostRepo struct {
	posts map[string]*posts.Post
	err   error
}

func newMockPostRepo(ps ...*posts.Post) *mockPostRepo {
	m := &mockPostRepo{posts: make(map[string]*posts.Post)}
	for _, p := range ps {
		m.posts[p.ID] = p
	}
	return m
}

func (m *mockPostRepo) GetByID(ctx context.Context, id string) (*posts.Post, error) {
	if m.err != nil {
		return nil, m.err
	}
	if p, ok := m.posts[id]; ok {
		return p, nil
	}
	return nil, posts.ErrNotFound
}

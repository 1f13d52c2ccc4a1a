package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/comments"
	"Inkwell/internal/core/moderation"
)

const (
	testCommentID = "0a4b8c1d-2e3f-4a5b-8c6d-7e8f9a0b1c2d"
	testPostID    = "6f1c2a9e-0b7d-4c1e-9a52-3d8e7f6a1b20"
)

var testSecret = []byte("routes-test-secret-32-bytes-long!!")

// mockCommentService implements comments.Service with overridable funcs
type mockCommentService struct {
	createFunc       func(ctx context.Context, input comments.CreateInput) (*comments.Comment, error)
	getFunc          func(ctx context.Context, id string, includeDeleted bool) (*comments.Comment, error)
	listFunc         func(ctx context.Context, postID string, opts comments.ListOptions) (*comments.ListResult, error)
	listUserFunc     func(ctx context.Context, userID string, opts comments.ListOptions) ([]*comments.UserComment, error)
	updateFunc       func(ctx context.Context, id string, input comments.UpdateInput) (*comments.Comment, error)
	deleteFunc       func(ctx context.Context, id string) (*comments.Comment, error)
	changeStatusFunc func(ctx context.Context, id string, status comments.ModerationStatus, notes *string) (*comments.Comment, error)
	moveFunc         func(ctx context.Context, id string, newParentID *string) (*comments.Comment, error)
}

func (m *mockCommentService) CreateComment(ctx context.Context, input comments.CreateInput) (*comments.Comment, error) {
	return m.createFunc(ctx, input)
}

func (m *mockCommentService) GetComment(ctx context.Context, id string, includeDeleted bool) (*comments.Comment, error) {
	return m.getFunc(ctx, id, includeDeleted)
}

func (m *mockCommentService) ListComments(ctx context.Context, postID string, opts comments.ListOptions) (*comments.ListResult, error) {
	return m.listFunc(ctx, postID, opts)
}

func (m *mockCommentService) ListUserComments(ctx context.Context, userID string, opts comments.ListOptions) ([]*comments.UserComment, error) {
	return m.listUserFunc(ctx, userID, opts)
}

func (m *mockCommentService) UpdateComment(ctx context.Context, id string, input comments.UpdateInput) (*comments.Comment, error) {
	return m.updateFunc(ctx, id, input)
}

func (m *mockCommentService) DeleteComment(ctx context.Context, id string) (*comments.Comment, error) {
	return m.deleteFunc(ctx, id)
}

func (m *mockCommentService) ChangeStatus(ctx context.Context, id string, status comments.ModerationStatus, notes *string) (*comments.Comment, error) {
	return m.changeStatusFunc(ctx, id, status, notes)
}

func (m *mockCommentService) AttachNotes(ctx context.Context, id string, notes string) (*comments.Comment, error) {
	return nil, comments.ErrUnexpected
}

func (m *mockCommentService) MoveComment(ctx context.Context, id string, newParentID *string) (*comments.Comment, error) {
	return m.moveFunc(ctx, id, newParentID)
}

func (m *mockCommentService) PurgeComment(ctx context.Context, id string) error {
	return comments.ErrUnexpected
}

// mockModerationService implements moderation.Service with overridable funcs
type mockModerationService struct {
	flagFunc     func(ctx context.Context, commentID, flaggedBy string, reason *string) (*moderation.Flag, error)
	unflagFunc   func(ctx context.Context, commentID, flaggedBy string) error
	getFlagsFunc func(ctx context.Context, commentID string) ([]*moderation.Flag, error)
	queueFunc    func(ctx context.Context, opts moderation.QueueOptions) ([]*moderation.QueueItem, error)
	moderateFunc func(ctx context.Context, commentID string, action moderation.Action, notes *string) (*comments.Comment, error)
}

func (m *mockModerationService) FlagComment(ctx context.Context, commentID, flaggedBy string, reason *string) (*moderation.Flag, error) {
	return m.flagFunc(ctx, commentID, flaggedBy, reason)
}

func (m *mockModerationService) UnflagComment(ctx context.Context, commentID, flaggedBy string) error {
	return m.unflagFunc(ctx, commentID, flaggedBy)
}

func (m *mockModerationService) GetFlags(ctx context.Context, commentID string) ([]*moderation.Flag, error) {
	return m.getFlagsFunc(ctx, commentID)
}

func (m *mockModerationService) GetQueue(ctx context.Context, opts moderation.QueueOptions) ([]*moderation.QueueItem, error) {
	return m.queueFunc(ctx, opts)
}

func (m *mockModerationService) Moderate(ctx context.Context, commentID string, action moderation.Action, notes *string) (*comments.Comment, error) {
	return m.moderateFunc(ctx, commentID, action, notes)
}

func newTestRouter(cs *mockCommentService, ms *mockModerationService) http.Handler {
	r := chi.NewRouter()
	auth := middleware.NewJWTAuthMiddleware(testSecret, "")
	RegisterCommentRoutes(r, cs, auth)
	RegisterModerationRoutes(r, ms, auth)
	return r
}

func bearer(t *testing.T, sub, role string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()}
	if role != "" {
		claims["role"] = role
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, h http.Handler, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error, body.Message
}

func ownedComment(owner string) *comments.Comment {
	email := "ada@example.com"
	notes := "watch this one"
	return &comments.Comment{
		ID:               testCommentID,
		PostID:           testPostID,
		Path:             []string{testCommentID},
		Content:          "hello",
		SanitizedContent: "hello",
		AuthorName:       "Ada",
		AuthorEmail:      &email,
		CreatedBy:        &owner,
		ModerationNotes:  &notes,
		ModerationStatus: comments.StatusApproved,
	}
}

func TestCreateComment(t *testing.T) {
	var got comments.CreateInput
	cs := &mockCommentService{
		createFunc: func(ctx context.Context, input comments.CreateInput) (*comments.Comment, error) {
			got = input
			return &comments.Comment{ID: testCommentID, PostID: input.PostID, ModerationStatus: comments.StatusPending}, nil
		},
	}
	h := newTestRouter(cs, &mockModerationService{})

	w := do(t, h, http.MethodPost, "/api/posts/"+testPostID+"/comments", bearer(t, "user-1", ""),
		map[string]interface{}{"content": "<b>hi</b>", "authorName": "Ada", "postId": "spoofed", "createdBy": "spoofed"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, testPostID, got.PostID, "post comes from the URL")
	require.NotNil(t, got.CreatedBy)
	assert.Equal(t, "user-1", *got.CreatedBy, "creator comes from the token")
	assert.Equal(t, "<b>hi</b>", got.Content)
}

func TestCreateComment_Anonymous(t *testing.T) {
	cs := &mockCommentService{
		createFunc: func(ctx context.Context, input comments.CreateInput) (*comments.Comment, error) {
			assert.Nil(t, input.CreatedBy)
			return &comments.Comment{ID: testCommentID}, nil
		},
	}
	w := do(t, newTestRouter(cs, &mockModerationService{}), http.MethodPost,
		"/api/posts/"+testPostID+"/comments", "", map[string]string{"content": "hi", "authorName": "Guest"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateComment_BodyErrors(t *testing.T) {
	cs := &mockCommentService{}
	h := newTestRouter(cs, &mockModerationService{})

	w := do(t, h, http.MethodPost, "/api/posts/"+testPostID+"/comments", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	huge := `{"content":"` + strings.Repeat("a", 101*1024) + `"}`
	w = do(t, h, http.MethodPost, "/api/posts/"+testPostID+"/comments", "", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		code    string
		message string
	}{
		{comments.NewError(comments.CodeInvalidInput, "Content is required"), http.StatusBadRequest, "INVALID_INPUT", "Content is required"},
		{comments.ErrParentPostMismatch, http.StatusBadRequest, "PARENT_POST_MISMATCH", comments.ErrParentPostMismatch.Message},
		{comments.ErrPostNotFound, http.StatusNotFound, "POST_NOT_FOUND", comments.ErrPostNotFound.Message},
		{comments.ErrParentNotFound, http.StatusNotFound, "PARENT_NOT_FOUND", comments.ErrParentNotFound.Message},
		{comments.Wrap(comments.CodeInsertFailed, comments.ErrInsertFailed.Message, assert.AnError), http.StatusInternalServerError, "INSERT_FAILED", comments.ErrInsertFailed.Message},
		{assert.AnError, http.StatusInternalServerError, "UNEXPECTED_ERROR", comments.ErrUnexpected.Message},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			cs := &mockCommentService{
				createFunc: func(ctx context.Context, input comments.CreateInput) (*comments.Comment, error) {
					return nil, tt.err
				},
			}
			w := do(t, newTestRouter(cs, &mockModerationService{}), http.MethodPost,
				"/api/posts/"+testPostID+"/comments", "", map[string]string{"content": "hi"})

			assert.Equal(t, tt.status, w.Code)
			code, message := decodeError(t, w)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.message, message)
			assert.NotContains(t, w.Body.String(), assert.AnError.Error(), "causes never leak")
		})
	}
}

func TestListComments_ParsesOptions(t *testing.T) {
	var got comments.ListOptions
	cs := &mockCommentService{
		listFunc: func(ctx context.Context, postID string, opts comments.ListOptions) (*comments.ListResult, error) {
			got = opts
			return &comments.ListResult{Tree: []*comments.CommentWithDepth{}}, nil
		},
	}
	h := newTestRouter(cs, &mockModerationService{})

	w := do(t, h, http.MethodGet,
		"/api/posts/"+testPostID+"/comments?tree=true&include_deleted=1&status=Approved,,pending&max_depth=2&limit=10&offset=5&sort=updated_at&direction=desc",
		"", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.True(t, got.AsTree)
	assert.True(t, got.IncludeDeleted)
	assert.Equal(t, []comments.ModerationStatus{comments.StatusApproved, comments.StatusPending}, got.Statuses)
	assert.Equal(t, 2, got.MaxDepth)
	assert.Equal(t, 10, got.Limit)
	assert.Equal(t, 5, got.Offset)
	assert.Equal(t, comments.SortByUpdatedAt, got.SortBy)
	assert.Equal(t, comments.SortDesc, got.SortDirection)
	assert.JSONEq(t, `{"tree":[]}`, w.Body.String())
}

func TestListComments_BadQuery(t *testing.T) {
	h := newTestRouter(&mockCommentService{}, &mockModerationService{})

	for _, query := range []string{"limit=ten", "tree=maybe", "offset=1.5"} {
		w := do(t, h, http.MethodGet, "/api/posts/"+testPostID+"/comments?"+query, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestListComments_RedactsPrivateFields(t *testing.T) {
	cs := &mockCommentService{
		listFunc: func(ctx context.Context, postID string, opts comments.ListOptions) (*comments.ListResult, error) {
			return &comments.ListResult{Comments: []*comments.Comment{ownedComment("user-1")}}, nil
		},
	}
	h := newTestRouter(cs, &mockModerationService{})

	anon := do(t, h, http.MethodGet, "/api/posts/"+testPostID+"/comments", "", nil)
	require.Equal(t, http.StatusOK, anon.Code)
	assert.NotContains(t, anon.Body.String(), "ada@example.com")
	assert.NotContains(t, anon.Body.String(), "watch this one")

	owner := do(t, h, http.MethodGet, "/api/posts/"+testPostID+"/comments", bearer(t, "user-1", ""), nil)
	assert.Contains(t, owner.Body.String(), "ada@example.com")
	assert.NotContains(t, owner.Body.String(), "watch this one")

	mod := do(t, h, http.MethodGet, "/api/posts/"+testPostID+"/comments", bearer(t, "mod-1", middleware.RoleModerator), nil)
	assert.Contains(t, mod.Body.String(), "ada@example.com")
	assert.Contains(t, mod.Body.String(), "watch this one")
}

func TestGetComment(t *testing.T) {
	cs := &mockCommentService{
		getFunc: func(ctx context.Context, id string, includeDeleted bool) (*comments.Comment, error) {
			if !includeDeleted {
				return nil, comments.ErrNotFound
			}
			return ownedComment("user-1"), nil
		},
	}
	h := newTestRouter(cs, &mockModerationService{})

	w := do(t, h, http.MethodGet, "/api/comments/"+testCommentID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/api/comments/"+testCommentID+"?include_deleted=true", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListUserComments(t *testing.T) {
	cs := &mockCommentService{
		listUserFunc: func(ctx context.Context, userID string, opts comments.ListOptions) ([]*comments.UserComment, error) {
			assert.Equal(t, "user-1", userID)
			return []*comments.UserComment{{Comment: *ownedComment("user-1"), PostTitle: "Hello"}}, nil
		},
	}
	w := do(t, newTestRouter(cs, &mockModerationService{}), http.MethodGet, "/api/users/user-1/comments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"postTitle":"Hello"`)
	assert.NotContains(t, w.Body.String(), "ada@example.com")
}

func TestUpdateComment_Authorization(t *testing.T) {
	updated := 0
	cs := &mockCommentService{
		getFunc: func(ctx context.Context, id string, includeDeleted bool) (*comments.Comment, error) {
			return ownedComment("user-1"), nil
		},
		updateFunc: func(ctx context.Context, id string, input comments.UpdateInput) (*comments.Comment, error) {
			updated++
			return ownedComment("user-1"), nil
		},
	}
	h := newTestRouter(cs, &mockModerationService{})
	body := map[string]string{"content": "edited"}

	w := do(t, h, http.MethodPatch, "/api/comments/"+testCommentID, "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPatch, "/api/comments/"+testCommentID, bearer(t, "user-2", ""), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, h, http.MethodPatch, "/api/comments/"+testCommentID, bearer(t, "user-1", ""), body)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPatch, "/api/comments/"+testCommentID, bearer(t, "mod-1", middleware.RoleModerator), body)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 2, updated)
}

func TestDeleteComment(t *testing.T) {
	cs := &mockCommentService{
		getFunc: func(ctx context.Context, id string, includeDeleted bool) (*comments.Comment, error) {
			return nil, comments.ErrNotFound
		},
		deleteFunc: func(ctx context.Context, id string) (*comments.Comment, error) {
			c := ownedComment("user-1")
			c.IsDeleted = true
			return c, nil
		},
	}
	h := newTestRouter(cs, &mockModerationService{})

	w := do(t, h, http.MethodDelete, "/api/comments/"+testCommentID, bearer(t, "user-1", ""), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodDelete, "/api/comments/"+testCommentID, bearer(t, "mod-1", middleware.RoleModerator), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isDeleted":true`)
}

func TestChangeStatusAndMove_ModeratorOnly(t *testing.T) {
	var gotStatus comments.ModerationStatus
	var gotParent *string
	cs := &mockCommentService{
		changeStatusFunc: func(ctx context.Context, id string, status comments.ModerationStatus, notes *string) (*comments.Comment, error) {
			gotStatus = status
			return ownedComment("user-1"), nil
		},
		moveFunc: func(ctx context.Context, id string, newParentID *string) (*comments.Comment, error) {
			gotParent = newParentID
			return ownedComment("user-1"), nil
		},
	}
	h := newTestRouter(cs, &mockModerationService{})
	mod := bearer(t, "mod-1", middleware.RoleModerator)

	w := do(t, h, http.MethodPut, "/api/comments/"+testCommentID+"/status", bearer(t, "user-1", ""), map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, h, http.MethodPut, "/api/comments/"+testCommentID+"/status", mod, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "status is required")

	w = do(t, h, http.MethodPut, "/api/comments/"+testCommentID+"/status", mod, map[string]string{"status": "rejected"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, comments.StatusRejected, gotStatus)

	w = do(t, h, http.MethodPost, "/api/comments/"+testCommentID+"/move", mod, `{"parentId":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, gotParent)
}

func TestFlagRoutes(t *testing.T) {
	var gotBy string
	var gotReason *string
	ms := &mockModerationService{
		flagFunc: func(ctx context.Context, commentID, flaggedBy string, reason *string) (*moderation.Flag, error) {
			if gotBy == flaggedBy {
				return nil, comments.ErrDuplicateFlag
			}
			gotBy, gotReason = flaggedBy, reason
			return &moderation.Flag{ID: "f1", CommentID: commentID, FlaggedBy: flaggedBy, Reason: reason}, nil
		},
		unflagFunc: func(ctx context.Context, commentID, flaggedBy string) error {
			return nil
		},
	}
	h := newTestRouter(&mockCommentService{}, ms)
	path := "/api/comments/" + testCommentID + "/flags"

	w := do(t, h, http.MethodPost, path, "", map[string]string{"reason": "spam"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPost, path, bearer(t, "reader-1", ""), map[string]string{"reason": "spam"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "reader-1", gotBy)
	require.NotNil(t, gotReason)
	assert.Equal(t, "spam", *gotReason)

	w = do(t, h, http.MethodPost, path, bearer(t, "reader-1", ""), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// the reason is optional even when the body arrives chunked with no length
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(""))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Authorization", bearer(t, "reader-3", ""))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "reader-3", gotBy)
	assert.Nil(t, gotReason)

	w = do(t, h, http.MethodPost, path, bearer(t, "reader-2", ""), map[string]string{"reason": strings.Repeat("x", 501)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, path, bearer(t, "reader-1", ""), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, path, bearer(t, "reader-1", ""), nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "flag lists are for moderators")
}

func TestModerateAndQueue(t *testing.T) {
	var gotAction moderation.Action
	var gotNotes *string
	var gotOpts moderation.QueueOptions
	ms := &mockModerationService{
		moderateFunc: func(ctx context.Context, commentID string, action moderation.Action, notes *string) (*comments.Comment, error) {
			gotAction, gotNotes = action, notes
			if !action.IsValid() {
				return nil, comments.ErrInvalidAction
			}
			return ownedComment("user-1"), nil
		},
		queueFunc: func(ctx context.Context, opts moderation.QueueOptions) ([]*moderation.QueueItem, error) {
			gotOpts = opts
			return []*moderation.QueueItem{}, nil
		},
	}
	h := newTestRouter(&mockCommentService{}, ms)
	mod := bearer(t, "mod-1", middleware.RoleModerator)

	w := do(t, h, http.MethodPost, "/api/comments/"+testCommentID+"/moderate", mod, map[string]string{"action": "hide"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, moderation.ActionHide, gotAction)

	w = do(t, h, http.MethodPost, "/api/comments/"+testCommentID+"/moderate", mod, map[string]string{"action": "ban"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	code, _ := decodeError(t, w)
	assert.Equal(t, "INVALID_ACTION", code)

	w = do(t, h, http.MethodPost, "/api/comments/"+testCommentID+"/moderate", mod, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	code, _ = decodeError(t, w)
	assert.Equal(t, "INVALID_ACTION", code, "a missing action is decided by the service")

	w = do(t, h, http.MethodPost, "/api/comments/"+testCommentID+"/moderate", mod,
		map[string]string{"action": "delete", "moderationNotes": "spam wave"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, moderation.ActionDelete, gotAction)
	require.NotNil(t, gotNotes)
	assert.Equal(t, "spam wave", *gotNotes)

	w = do(t, h, http.MethodGet, "/api/moderation/queue?status=flagged&min_flags=2&limit=20&offset=40", mod, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []comments.ModerationStatus{comments.StatusFlagged}, gotOpts.Statuses)
	assert.Equal(t, 2, gotOpts.MinFlags)
	assert.Equal(t, 20, gotOpts.Limit)
	assert.Equal(t, 40, gotOpts.Offset)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/moderation/queue", bearer(t, "user-1", ""), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

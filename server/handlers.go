package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Luismorlan/postsync/model"
	"github.com/Luismorlan/postsync/reconciler"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// PostReader is the interactive side of the store, implemented by the store's
// view context.
type PostReader interface {
	QueryAll(ctx context.Context) ([]model.Post, error)
	Get(ctx context.Context, id int64) (model.Post, bool, error)
	MarkRead(ctx context.Context, id int64) error
	SubscribeToChanges(ctx context.Context, since model.Token) ([]model.ChangeRecord, model.Token, error)
}

type PostDeleter interface {
	DeleteBatch(ctx context.Context, ids []int64) error
}

type Refresher interface {
	Refresh(ctx context.Context) error
}

// Projection is the merged in-memory view of the posts.
type Projection interface {
	Snapshot() []model.Post
}

type TokenSource interface {
	LastToken() model.Token
}

// Handlers serves the post list and detail clients.
type Handlers struct {
	Posts      PostReader
	Deleter    PostDeleter
	Refresher  Refresher
	Projection Projection
	Merger     TokenSource
}

type deleteRequest struct {
	Ids []int64 `json:"ids" binding:"required"`
}

type changesResponse struct {
	Records []model.ChangeRecord `json:"records"`
	Token   model.Token          `json:"token"`
}

type viewResponse struct {
	Posts     []model.Post `json:"posts"`
	LastToken model.Token  `json:"last_token"`
}

func abortWithError(c *gin.Context, status int, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func parseId(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, errors.Wrapf(err, "invalid post id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

// ListPosts returns every cached post, newest id first.
func (h *Handlers) ListPosts(c *gin.Context) {
	posts, err := h.Posts.QueryAll(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handlers) GetPost(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	post, found, err := h.Posts.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	if !found {
		abortWithError(c, http.StatusNotFound, errors.Errorf("post %d not found", id))
		return
	}
	c.JSON(http.StatusOK, post)
}

// MarkRead persists the read flag before responding, the returned post
// reflects the stored state.
func (h *Handlers) MarkRead(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.Posts.MarkRead(ctx, id); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	post, found, err := h.Posts.Get(ctx, id)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	if !found {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Refresh pulls the remote posts. On failure cached posts are left as they
// are and the client is told it may retry.
func (h *Handlers) Refresh(c *gin.Context) {
	err := h.Refresher.Refresh(c.Request.Context())
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	c.Error(err)
	res := gin.H{"error": err.Error(), "retry": true}
	var refreshErr *reconciler.RefreshError
	if errors.As(err, &refreshErr) {
		res["stage"] = refreshErr.Stage
	}
	c.AbortWithStatusJSON(http.StatusBadGateway, res)
}

func (h *Handlers) DeletePosts(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.Deleter.DeleteBatch(c.Request.Context(), req.Ids); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Changes returns the history committed after the "since" token, 0 or absent
// reads from the beginning.
func (h *Handlers) Changes(c *gin.Context) {
	var since uint64
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, errors.Wrapf(err, "invalid token %q", raw))
			return
		}
		since = parsed
	}

	records, token, err := h.Posts.SubscribeToChanges(c.Request.Context(), model.Token(since))
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, changesResponse{Records: records, Token: token})
}

func (h *Handlers) View(c *gin.Context) {
	c.JSON(http.StatusOK, viewResponse{
		Posts:     h.Projection.Snapshot(),
		LastToken: h.Merger.LastToken(),
	})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PostHandler handles post endpoints
type PostHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(services *service.Services, log zerolog.Logger) *PostHandler {
	return &PostHandler{
		services: services,
		log:      log.With().Str("handler", "post").Logger(),
	}
}

// List handles GET /v1/posts?status=&limit=&offset=
func (h *PostHandler) List(c *gin.Context) {
	filter := models.PostFilter{Status: models.PostStatus(c.Query("status"))}

	var err error
	if v := c.Query("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
	}
	if v := c.Query("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a number"})
			return
		}
	}

	posts, err := h.services.Post.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err, "failed to list posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
}

// Create handles POST /v1/posts
func (h *PostHandler) Create(c *gin.Context) {
	var in models.PostInput
	if !bindJSON(c, &in) {
		return
	}

	post, err := h.services.Post.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err, "failed to create post")
		return
	}
	c.JSON(http.StatusCreated, post)
}

// Get handles GET /v1/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.services.Post.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "failed to get post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// Update handles PUT /v1/posts/:id
func (h *PostHandler) Update(c *gin.Context) {
	var in models.PostInput
	if !bindJSON(c, &in) {
		return
	}

	post, err := h.services.Post.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, h.log, err, "failed to update post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// Notify handles POST /v1/posts/notify, the bulk "send notification" action
func (h *PostHandler) Notify(c *gin.Context) {
	var req struct {
		PostIDs []string `json:"post_ids" binding:"required,min=1"`
	}
	if !bindJSON(c, &req) {
		return
	}

	report, err := h.services.Notification.NotifyPosts(c.Request.Context(), req.PostIDs)
	if err != nil {
		respondError(c, h.log, err, "failed to send notifications")
		return
	}

	h.log.Info().
		Int("posts", len(req.PostIDs)).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("Bulk notification requested")

	c.JSON(http.StatusOK, report)
}

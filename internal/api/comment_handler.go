package api

import (
	"net/http"

	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CommentHandler handles comment endpoints
type CommentHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(services *service.Services, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		services: services,
		log:      log.With().Str("handler", "comment").Logger(),
	}
}

// ListComments handles GET /v1/games/:id/comments
func (h *CommentHandler) ListComments(c *gin.Context) {
	comments, err := h.services.Comment.ListVisibleComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": comments})
}

// AddComment handles POST /v1/games/:id/comments
func (h *CommentHandler) AddComment(c *gin.Context) {
	var input models.CommentInput
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, "body", "invalid comment body")
		return
	}

	comment, err := h.services.Comment.AddComment(c.Request.Context(), c.Param("id"), input.Text, actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// UpdateComment handles PUT /v1/comments/:id
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	var input models.CommentInput
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, "body", "invalid comment body")
		return
	}

	comment, err := h.services.Comment.UpdateComment(c.Request.Context(), c.Param("id"), input.Text, actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// DeleteComment handles DELETE /v1/comments/:id
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	if err := h.services.Comment.DeleteComment(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetVisibility handles PUT /v1/comments/:id/visibility
func (h *CommentHandler) SetVisibility(c *gin.Context) {
	var input models.VisibilityInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Visible == nil {
		badRequest(c, "is_visible", "is_visible is required")
		return
	}

	comment, err := h.services.Comment.SetCommentVisibility(c.Request.Context(), c.Param("id"), *input.Visible, actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

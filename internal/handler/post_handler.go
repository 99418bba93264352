package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vibtrix/vibtrix-api/internal/handler/dto"
	"github.com/vibtrix/vibtrix-api/internal/middleware"
	"github.com/vibtrix/vibtrix-api/internal/service"
)

// PostHandler обрабатывает публикации и лайки
type PostHandler struct {
	postService *service.PostService
}

// NewPostHandler создает новый обработчик публикаций
func NewPostHandler(postService *service.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// CreatePost создает публикацию текущего пользователя
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.postService.CreatePost(c.Request.Context(), c.GetString(middleware.ContextUserID), req.Content, req.MediaURL)
	if err != nil {
		handleError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// Like ставит лайк публикации. Повторный лайк не меняет счетчик.
func (h *PostHandler) Like(c *gin.Context) {
	postID := c.GetString("postID")

	count, err := h.postService.Like(c.Request.Context(), c.GetString(middleware.ContextUserID), postID)
	if err != nil {
		handleError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.LikeResponse{PostID: postID, LikeCount: count})
}

// Unlike снимает лайк
func (h *PostHandler) Unlike(c *gin.Context) {
	postID := c.GetString("postID")

	count, err := h.postService.Unlike(c.Request.Context(), c.GetString(middleware.ContextUserID), postID)
	if err != nil {
		handleError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.LikeResponse{PostID: postID, LikeCount: count})
}

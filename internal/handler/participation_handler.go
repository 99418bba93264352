package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vibtrix/vibtrix-api/internal/handler/dto"
	"github.com/vibtrix/vibtrix-api/internal/middleware"
	"github.com/vibtrix/vibtrix-api/internal/service"
)

// ParticipationHandler обрабатывает вступление в конкурс и отправку работ
type ParticipationHandler struct {
	participationService *service.ParticipationService
}

// NewParticipationHandler создает новый обработчик участия
func NewParticipationHandler(participationService *service.ParticipationService) *ParticipationHandler {
	return &ParticipationHandler{participationService: participationService}
}

// Join регистрирует текущего пользователя участником конкурса
func (h *ParticipationHandler) Join(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	competitionID := c.GetString("competitionID")

	participant, err := h.participationService.Join(c.Request.Context(), userID, competitionID)
	if err != nil {
		handleError(c, "ParticipationHandler", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewParticipantResponse(participant))
}

// Submit отправляет публикацию пользователя в раунд
func (h *ParticipationHandler) Submit(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	competitionID := c.GetString("competitionID")
	roundID := c.GetString("roundID")

	var req dto.SubmitEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.participationService.Submit(c.Request.Context(), userID, competitionID, roundID, req.PostID)
	if err != nil {
		handleError(c, "ParticipationHandler", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewEntryResponse(entry))
}

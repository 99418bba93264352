package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
)

// handleError переводит ошибки сервисов в HTTP ответ
func handleError(c *gin.Context, component string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrAlreadyJoined),
		errors.Is(err, repository.ErrEntryAlreadySubmitted),
		errors.Is(err, repository.ErrCompetitionFinalized),
		errors.Is(err, repository.ErrRoundAlreadyProcessed),
		errors.Is(err, repository.ErrCompetitionClosed),
		errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrRoundNotOpen),
		errors.Is(err, repository.ErrRoundNotEnded):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotParticipant),
		errors.Is(err, repository.ErrParticipantEliminated),
		errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		log.Printf("ERROR: Internal server error in %s: %v", component, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

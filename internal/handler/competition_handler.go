package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vibtrix/vibtrix-api/internal/handler/dto"
	"github.com/vibtrix/vibtrix-api/internal/handler/helper"
	"github.com/vibtrix/vibtrix-api/internal/service"
	"github.com/vibtrix/vibtrix-api/internal/service/qualification"
)

// RoundProcessor обрабатывает один раунд по запросу администратора
type RoundProcessor interface {
	ProcessRound(ctx context.Context, competitionID, roundID string) (*qualification.RoundOutcome, error)
}

// CompetitionHandler обрабатывает запросы, связанные с конкурсами
type CompetitionHandler struct {
	competitionService *service.CompetitionService
	processor          RoundProcessor
	now                func() time.Time
}

// NewCompetitionHandler создает новый обработчик конкурсов
func NewCompetitionHandler(competitionService *service.CompetitionService, processor RoundProcessor) *CompetitionHandler {
	return &CompetitionHandler{
		competitionService: competitionService,
		processor:          processor,
		now:                time.Now,
	}
}

// ListCompetitions возвращает страницу конкурсов.
// GET /api/competitions?page=1&page_size=20&active=true
func (h *CompetitionHandler) ListCompetitions(c *gin.Context) {
	page, pageSize := helper.ParsePagination(c)
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))

	competitions, total, err := h.competitionService.ListCompetitions(c.Request.Context(), page, pageSize, activeOnly)
	if err != nil {
		handleError(c, "CompetitionHandler", err)
		return
	}

	now := h.now()
	items := make([]*dto.CompetitionResponse, 0, len(competitions))
	for i := range competitions {
		items = append(items, dto.NewCompetitionResponse(&competitions[i], now))
	}
	c.JSON(http.StatusOK, dto.PaginatedCompetitionResponse{
		Competitions: items,
		Total:        total,
		Page:         page,
		PerPage:      pageSize,
	})
}

// GetCompetition возвращает конкурс с расписанием раундов
func (h *CompetitionHandler) GetCompetition(c *gin.Context) {
	competitionID := c.GetString("competitionID")

	competition, err := h.competitionService.GetCompetition(c.Request.Context(), competitionID)
	if err != nil {
		handleError(c, "CompetitionHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCompetitionResponse(competition, h.now()))
}

// CreateCompetition создает конкурс (только администратор)
func (h *CompetitionHandler) CreateCompetition(c *gin.Context) {
	var req dto.CreateCompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	competition, err := h.competitionService.CreateCompetition(c.Request.Context(), req.Title, req.Description)
	if err != nil {
		handleError(c, "CompetitionHandler", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewCompetitionResponse(competition, h.now()))
}

// AddRound добавляет раунд в конец расписания конкурса
func (h *CompetitionHandler) AddRound(c *gin.Context) {
	competitionID := c.GetString("competitionID")

	var req dto.CreateRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	likesToPass := 0
	if req.LikesToPass != nil {
		likesToPass = *req.LikesToPass
	}

	round, err := h.competitionService.AddRound(c.Request.Context(), competitionID, req.Name, req.StartDate, req.EndDate, likesToPass)
	if err != nil {
		handleError(c, "CompetitionHandler", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewRoundResponse(round, h.now()))
}

// ProcessRound запускает квалификацию завершившегося раунда вручную
func (h *CompetitionHandler) ProcessRound(c *gin.Context) {
	competitionID := c.GetString("competitionID")
	roundID := c.GetString("roundID")

	outcome, err := h.processor.ProcessRound(c.Request.Context(), competitionID, roundID)
	if err != nil {
		handleError(c, "CompetitionHandler", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"competitionId":    outcome.CompetitionID,
		"roundId":          outcome.Round.ID,
		"result":           outcome.Summary(),
		"processed":        outcome.Processed,
		"qualified":        outcome.Qualified,
		"disqualified":     outcome.Disqualified,
		"completionReason": outcome.CompletionReason,
	})
}

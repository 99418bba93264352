package handler

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vibtrix/vibtrix-api/internal/handler/dto"
	"github.com/vibtrix/vibtrix-api/internal/handler/helper"
	"github.com/vibtrix/vibtrix-api/internal/service"
)

// FeedHandler отдает ленту конкурса и результаты раундов
type FeedHandler struct {
	feedService *service.FeedService
	now         func() time.Time
}

// NewFeedHandler создает новый обработчик ленты
func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService, now: time.Now}
}

// GetFeed возвращает ленту конкурса, отсортированную по лайкам
func (h *FeedHandler) GetFeed(c *gin.Context) {
	competitionID := c.GetString("competitionID")
	page, pageSize := helper.ParsePagination(c)

	feed, err := h.feedService.CompetitionFeed(c.Request.Context(), competitionID, page, pageSize)
	if err != nil {
		handleError(c, "FeedHandler", err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

// GetRoundResults возвращает все работы раунда с их состоянием квалификации
func (h *FeedHandler) GetRoundResults(c *gin.Context) {
	round, entries, err := h.feedService.RoundResults(c.Request.Context(), c.GetString("competitionID"), c.GetString("roundID"))
	if err != nil {
		handleError(c, "FeedHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.RoundResultsResponse{
		Round:   dto.NewRoundResponse(round, h.now()),
		Entries: entries,
	})
}

// ExportRoundResults экспортирует результаты раунда в CSV или Excel формате
// GET /api/competitions/:id/rounds/:roundId/results/export?format=csv|xlsx
func (h *FeedHandler) ExportRoundResults(c *gin.Context) {
	competitionID := c.GetString("competitionID")
	roundID := c.GetString("roundID")
	format := c.DefaultQuery("format", "csv")

	round, entries, err := h.feedService.RoundResults(c.Request.Context(), competitionID, roundID)
	if err != nil {
		handleError(c, "FeedHandler", err)
		return
	}

	filename := fmt.Sprintf("round_%s_results_%s", roundID, h.now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
		if err := helper.WriteResultsXLSX(c.Writer, helper.SafeSheetName(round.Name), entries); err != nil {
			log.Printf("[FeedHandler] Ошибка экспорта XLSX для раунда %s: %v", roundID, err)
			c.Status(http.StatusInternalServerError)
		}
	default:
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))
		if err := helper.WriteResultsCSV(c.Writer, entries); err != nil {
			log.Printf("[FeedHandler] Ошибка экспорта CSV для раунда %s: %v", roundID, err)
		}
	}
}

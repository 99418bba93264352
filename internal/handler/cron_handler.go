package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/handler/dto"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
	"github.com/vibtrix/vibtrix-api/internal/service/qualification"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// ReportReader отдает сохраненные отчеты прогонов
type ReportReader interface {
	LastReport(ctx context.Context) (*qualification.SweepReport, error)
	RecentRuns(ctx context.Context, limit int) ([]entity.SweepRun, error)
}

// CronHandler обрабатывает эндпоинты внешнего планировщика
type CronHandler struct {
	sweeper qualification.Sweeper
	reports ReportReader
}

// NewCronHandler создает обработчик cron-эндпоинтов
func NewCronHandler(sweeper qualification.Sweeper, reports ReportReader) *CronHandler {
	return &CronHandler{sweeper: sweeper, reports: reports}
}

// ProcessRounds запускает прогон квалификации по всем активным конкурсам.
// GET|POST /api/cron/process-rounds
func (h *CronHandler) ProcessRounds(c *gin.Context) {
	report, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		log.Printf("[CronHandler] Прогон квалификации завершился ошибкой: %v", err)
		c.JSON(http.StatusInternalServerError, dto.CronResponse{
			Status:                dto.CronStatusError,
			Message:               "Failed to process competition rounds",
			ProcessedCompetitions: []qualification.ReportItem{},
			Error:                 err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.CronResponse{
		Status:                dto.CronStatusSuccess,
		Message:               "Competition rounds processed",
		ProcessedCompetitions: report.Items,
	})
}

// LastReport возвращает отчет последнего прогона
func (h *CronHandler) LastReport(c *gin.Context) {
	report, err := h.reports.LastReport(c.Request.Context())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no sweep has been recorded yet"})
			return
		}
		handleError(c, "CronHandler", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Runs возвращает историю прогонов, новые первыми.
// GET /api/cron/runs?limit=20
func (h *CronHandler) Runs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRunsLimit)))
	if err != nil || limit < 1 {
		limit = defaultRunsLimit
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := h.reports.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		handleError(c, "CronHandler", err)
		return
	}

	items := make([]dto.SweepRunResponse, 0, len(runs))
	for _, run := range runs {
		resp := dto.SweepRunResponse{
			ID:             run.ID,
			StartedAt:      run.StartedAt,
			FinishedAt:     run.FinishedAt,
			ProcessedCount: run.ProcessedCount,
			ErrorCount:     run.ErrorCount,
			Items:          []qualification.ReportItem{},
		}
		if len(run.Items) > 0 {
			if err := json.Unmarshal(run.Items, &resp.Items); err != nil {
				log.Printf("[CronHandler] Не удалось разобрать отчет прогона %s: %v", run.ID, err)
			}
		}
		items = append(items, resp)
	}
	c.JSON(http.StatusOK, gin.H{"runs": items})
}

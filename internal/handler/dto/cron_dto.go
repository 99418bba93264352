package dto

import (
	"time"

	"github.com/vibtrix/vibtrix-api/internal/service/qualification"
)

// Значения поля status ответа cron-эндпоинта
const (
	CronStatusSuccess = "success"
	CronStatusError   = "error"
)

// CronResponse: ответ эндпоинта обработки раундов
type CronResponse struct {
	Status                string                     `json:"status"`
	Message               string                     `json:"message"`
	ProcessedCompetitions []qualification.ReportItem `json:"processedCompetitions"`
	Error                 string                     `json:"error,omitempty"`
}

// SweepRunResponse: запись истории прогонов
type SweepRunResponse struct {
	ID             string                     `json:"id"`
	StartedAt      time.Time                  `json:"startedAt"`
	FinishedAt     time.Time                  `json:"finishedAt"`
	ProcessedCount int                        `json:"processedCount"`
	ErrorCount     int                        `json:"errorCount"`
	Items          []qualification.ReportItem `json:"processedCompetitions"`
}

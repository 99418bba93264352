package qualification

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	"github.com/vibtrix/vibtrix-api/internal/observability/metrics"
)

// Типы событий, рассылаемых подписчикам конкурса
const (
	EventRoundProcessed      = "competition:round_processed"
	EventCompetitionFinished = "competition:finished"
)

// Config содержит настройки процессора и планировщика
type Config struct {
	// Concurrency: сколько конкурсов обрабатывается параллельно в одном прогоне
	Concurrency int
	// SweepInterval: период запуска прогона встроенным планировщиком
	SweepInterval time.Duration
	// SweepTimeout ограничивает длительность одного прогона планировщика
	SweepTimeout time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Concurrency:   4,
		SweepInterval: 5 * time.Minute,
		SweepTimeout:  2 * time.Minute,
	}
}

// EventPublisher рассылает события подписчикам конкурса
type EventPublisher interface {
	PublishToCompetition(competitionID string, eventType string, data interface{})
}

// CacheInvalidator сбрасывает закешированные данные конкурса
type CacheInvalidator interface {
	InvalidateCompetition(ctx context.Context, competitionID string) error
}

// ReportSaver сохраняет отчет прогона
type ReportSaver interface {
	SaveReport(ctx context.Context, report *SweepReport) error
}

// Dependencies содержит зависимости процессора
type Dependencies struct {
	DB              *gorm.DB
	CompetitionRepo repository.CompetitionRepository
	ParticipantRepo repository.ParticipantRepository
	EntryRepo       repository.RoundEntryRepository
	// Необязательные зависимости
	Events  EventPublisher
	Cache   CacheInvalidator
	Reports ReportSaver
	Metrics *metrics.QualificationMetrics
	// Clock позволяет подменять текущее время в тестах
	Clock func() time.Time
}

// ReportItem: строка отчета о прогоне
type ReportItem struct {
	CompetitionID    string  `json:"competitionId"`
	CompetitionTitle string  `json:"competitionTitle"`
	RoundID          string  `json:"roundId"`
	RoundName        string  `json:"roundName"`
	Result           string  `json:"result"`
	CompletionReason *string `json:"completionReason,omitempty"`
	Error            string  `json:"error,omitempty"`
}

// SweepReport: результат одного прогона
type SweepReport struct {
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Items      []ReportItem `json:"processedCompetitions"`
}

// ErrorCount возвращает количество строк отчета с ошибкой
func (r *SweepReport) ErrorCount() int {
	count := 0
	for _, item := range r.Items {
		if item.Error != "" {
			count++
		}
	}
	return count
}

// RoundOutcome: итог обработки одного раунда
type RoundOutcome struct {
	CompetitionID    string
	CompetitionTitle string
	Round            entity.Round
	Processed        int
	Qualified        int
	Disqualified     int
	// Advanced: сколько записей следующего раунда создано при продвижении
	Advanced int
	// Hidden: сколько будущих записей скрыто из ленты конкурса
	Hidden int64
	// Terminal означает, что дальнейшие раунды конкурса обрабатывать нельзя
	Terminal         bool
	CompletionKind   entity.CompletionKind
	CompletionReason *string
}

// Summary возвращает текст результата для отчета
func (o *RoundOutcome) Summary() string {
	switch {
	case o.Processed > 0:
		return formatProcessed(o.Processed, o.Qualified, o.Disqualified)
	case o.CompletionReason != nil:
		return "Competition finalized"
	case o.Terminal:
		return "Competition already finalized"
	default:
		return "No entries to process"
	}
}

func (o *RoundOutcome) reportItem() ReportItem {
	return ReportItem{
		CompetitionID:    o.CompetitionID,
		CompetitionTitle: o.CompetitionTitle,
		RoundID:          o.Round.ID,
		RoundName:        o.Round.Name,
		Result:           o.Summary(),
		CompletionReason: o.CompletionReason,
	}
}

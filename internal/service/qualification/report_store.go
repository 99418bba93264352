package qualification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
)

const lastReportKey = "qualification:last_report"

// ReportStore хранит последний отчет в Redis и историю прогонов в БД
type ReportStore struct {
	cache repository.CacheRepository
	runs  repository.SweepRunRepository
	ttl   time.Duration
}

// NewReportStore создает хранилище отчетов; cache и runs могут быть nil
func NewReportStore(cache repository.CacheRepository, runs repository.SweepRunRepository, ttl time.Duration) *ReportStore {
	return &ReportStore{cache: cache, runs: runs, ttl: ttl}
}

// SaveReport сохраняет отчет в оба хранилища, ошибки объединяются
func (s *ReportStore) SaveReport(ctx context.Context, report *SweepReport) error {
	var errs []error

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, lastReportKey, report, s.ttl); err != nil {
			errs = append(errs, fmt.Errorf("cache last report: %w", err))
		}
	}

	if s.runs != nil {
		items, err := json.Marshal(report.Items)
		if err != nil {
			return errors.Join(append(errs, fmt.Errorf("marshal report items: %w", err))...)
		}
		run := &entity.SweepRun{
			StartedAt:      report.StartedAt,
			FinishedAt:     report.FinishedAt,
			ProcessedCount: len(report.Items),
			ErrorCount:     report.ErrorCount(),
			Items:          datatypes.JSON(items),
		}
		if err := s.runs.Create(ctx, run); err != nil {
			errs = append(errs, fmt.Errorf("store sweep run: %w", err))
		}
	}

	return errors.Join(errs...)
}

// LastReport возвращает последний отчет: из Redis, а при его отсутствии из истории в БД
func (s *ReportStore) LastReport(ctx context.Context) (*SweepReport, error) {
	if s.cache != nil {
		var report SweepReport
		err := s.cache.GetJSON(ctx, lastReportKey, &report)
		if err == nil {
			return &report, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	if s.runs == nil {
		return nil, apperrors.ErrNotFound
	}
	runs, err := s.runs.ListRecent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return reportFromRun(&runs[0])
}

// RecentRuns возвращает историю прогонов
func (s *ReportStore) RecentRuns(ctx context.Context, limit int) ([]entity.SweepRun, error) {
	if s.runs == nil {
		return []entity.SweepRun{}, nil
	}
	return s.runs.ListRecent(ctx, limit)
}

func reportFromRun(run *entity.SweepRun) (*SweepReport, error) {
	report := &SweepReport{
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Items:      make([]ReportItem, 0),
	}
	if len(run.Items) > 0 {
		if err := json.Unmarshal(run.Items, &report.Items); err != nil {
			return nil, fmt.Errorf("decode sweep run %s: %w", run.ID, err)
		}
	}
	return report, nil
}

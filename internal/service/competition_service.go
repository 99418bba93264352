package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
)

const maxPageSize = 100

// CompetitionService предоставляет методы администрирования конкурсов
type CompetitionService struct {
	competitionRepo repository.CompetitionRepository
	roundRepo       repository.RoundRepository
	db              *gorm.DB
}

// NewCompetitionService создает новый сервис конкурсов
func NewCompetitionService(
	competitionRepo repository.CompetitionRepository,
	roundRepo repository.RoundRepository,
	db *gorm.DB,
) *CompetitionService {
	return &CompetitionService{
		competitionRepo: competitionRepo,
		roundRepo:       roundRepo,
		db:              db,
	}
}

// CreateCompetition создает активный конкурс без раундов
func (s *CompetitionService) CreateCompetition(ctx context.Context, title, description string) (*entity.Competition, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}

	competition := &entity.Competition{
		Title:       title,
		Description: description,
		IsActive:    true,
	}
	if err := s.competitionRepo.Create(ctx, competition); err != nil {
		return nil, fmt.Errorf("failed to create competition: %w", err)
	}
	log.Printf("[CompetitionService] Created competition %s (%q)", competition.ID, competition.Title)
	return competition, nil
}

// AddRound добавляет раунд в конец расписания конкурса.
// Новый раунд должен начинаться строго после последнего существующего.
func (s *CompetitionService) AddRound(ctx context.Context, competitionID, name string, start, end time.Time, likesToPass int) (*entity.Round, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: round name is required", apperrors.ErrValidation)
	}

	round := &entity.Round{
		CompetitionID: competitionID,
		Name:          name,
		StartDate:     start.UTC(),
		EndDate:       end.UTC(),
		LikesToPass:   likesToPass,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		competition, err := s.competitionRepo.WithTx(tx).GetWithRounds(ctx, competitionID)
		if err != nil {
			return err
		}
		if competition.IsTerminal() {
			return repository.ErrCompetitionFinalized
		}
		if err := competition.Schedule().ValidateAppend(round); err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
		}
		return s.roundRepo.WithTx(tx).Create(ctx, round)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CompetitionService] Added round %s (%q) to competition %s: %s - %s, likes to pass %d",
		round.ID, round.Name, competitionID, round.StartDate.Format(time.RFC3339), round.EndDate.Format(time.RFC3339), round.LikesToPass)
	return round, nil
}

// GetCompetition возвращает конкурс с упорядоченными раундами
func (s *CompetitionService) GetCompetition(ctx context.Context, id string) (*entity.Competition, error) {
	return s.competitionRepo.GetWithRounds(ctx, id)
}

// ListCompetitions возвращает страницу конкурсов и общее количество
func (s *CompetitionService) ListCompetitions(ctx context.Context, page, pageSize int, activeOnly bool) ([]entity.Competition, int64, error) {
	limit, offset := normalizePage(page, pageSize)
	return s.competitionRepo.List(ctx, activeOnly, limit, offset)
}

// ValidateSubscription проверяет, что конкурс существует
func (s *CompetitionService) ValidateSubscription(ctx context.Context, competitionID string) error {
	_, err := s.competitionRepo.GetByID(ctx, competitionID)
	return err
}

// normalizePage приводит параметры пагинации к допустимым значениям
func normalizePage(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return pageSize, (page - 1) * pageSize
}

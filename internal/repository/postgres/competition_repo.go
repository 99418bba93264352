package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
)

// CompetitionRepo реализует repository.CompetitionRepository
type CompetitionRepo struct {
	db *gorm.DB
}

// NewCompetitionRepo создает новый репозиторий конкурсов
func NewCompetitionRepo(db *gorm.DB) *CompetitionRepo {
	return &CompetitionRepo{db: db}
}

// WithTx возвращает репозиторий, привязанный к транзакции
func (r *CompetitionRepo) WithTx(tx *gorm.DB) repository.CompetitionRepository {
	return &CompetitionRepo{db: tx}
}

func orderedRounds(db *gorm.DB) *gorm.DB {
	return db.Order("start_date ASC, id ASC")
}

// Create создает новый конкурс
func (r *CompetitionRepo) Create(ctx context.Context, competition *entity.Competition) error {
	return r.db.WithContext(ctx).Omit("Rounds").Create(competition).Error
}

// GetByID возвращает конкурс по ID без раундов
func (r *CompetitionRepo) GetByID(ctx context.Context, id string) (*entity.Competition, error) {
	var competition entity.Competition
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&competition).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &competition, nil
}

// GetWithRounds возвращает конкурс вместе с упорядоченными раундами
func (r *CompetitionRepo) GetWithRounds(ctx context.Context, id string) (*entity.Competition, error) {
	var competition entity.Competition
	err := r.db.WithContext(ctx).
		Preload("Rounds", orderedRounds).
		Where("id = ?", id).
		First(&competition).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &competition, nil
}

// ListActiveWithRounds возвращает все незавершенные активные конкурсы с раундами
func (r *CompetitionRepo) ListActiveWithRounds(ctx context.Context) ([]entity.Competition, error) {
	var competitions []entity.Competition
	err := r.db.WithContext(ctx).
		Preload("Rounds", orderedRounds).
		Where("is_active = ? AND completion_reason IS NULL", true).
		Order("created_at ASC, id ASC").
		Find(&competitions).Error
	if err != nil {
		return nil, fmt.Errorf("list active competitions: %w", err)
	}
	return competitions, nil
}

// List возвращает страницу конкурсов и общее количество
func (r *CompetitionRepo) List(ctx context.Context, activeOnly bool, limit, offset int) ([]entity.Competition, int64, error) {
	var competitions []entity.Competition
	var total int64

	baseQuery := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&entity.Competition{})
		if activeOnly {
			query = query.Where("is_active = ? AND completion_reason IS NULL", true)
		}
		return query
	}

	if err := baseQuery().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := baseQuery().
		Preload("Rounds", orderedRounds).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&competitions).Error
	if err != nil {
		return nil, 0, err
	}
	return competitions, total, nil
}

// Finalize атомарно завершает конкурс.
// Условие completion_reason IS NULL не дает двум конкурирующим обработкам
// перезаписать причину завершения.
func (r *CompetitionRepo) Finalize(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.Competition{}).
		Where("id = ? AND completion_reason IS NULL", id).
		Updates(map[string]interface{}{
			"is_active":         false,
			"completion_reason": reason,
			"completed_at":      at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("finalize competition %s: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

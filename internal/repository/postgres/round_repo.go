package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
)

// RoundRepo реализует repository.RoundRepository
type RoundRepo struct {
	db *gorm.DB
}

// NewRoundRepo создает новый репозиторий раундов
func NewRoundRepo(db *gorm.DB) *RoundRepo {
	return &RoundRepo{db: db}
}

// WithTx возвращает репозиторий, привязанный к транзакции
func (r *RoundRepo) WithTx(tx *gorm.DB) repository.RoundRepository {
	return &RoundRepo{db: tx}
}

// Create создает новый раунд
func (r *RoundRepo) Create(ctx context.Context, round *entity.Round) error {
	return r.db.WithContext(ctx).Create(round).Error
}

// GetByID возвращает раунд по ID
func (r *RoundRepo) GetByID(ctx context.Context, id string) (*entity.Round, error) {
	var round entity.Round
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&round).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &round, nil
}

// ListByCompetition возвращает раунды конкурса в порядке start_date
func (r *RoundRepo) ListByCompetition(ctx context.Context, competitionID string) ([]entity.Round, error) {
	var rounds []entity.Round
	err := r.db.WithContext(ctx).
		Where("competition_id = ?", competitionID).
		Order("start_date ASC, id ASC").
		Find(&rounds).Error
	return rounds, err
}

// GetLastByCompetition возвращает последний по start_date раунд конкурса
func (r *RoundRepo) GetLastByCompetition(ctx context.Context, competitionID string) (*entity.Round, error) {
	var round entity.Round
	err := r.db.WithContext(ctx).
		Where("competition_id = ?", competitionID).
		Order("start_date DESC, id DESC").
		First(&round).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &round, nil
}

package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
)

// SweepRunRepo реализует repository.SweepRunRepository
type SweepRunRepo struct {
	db *gorm.DB
}

// NewSweepRunRepo создает новый репозиторий истории прогонов
func NewSweepRunRepo(db *gorm.DB) *SweepRunRepo {
	return &SweepRunRepo{db: db}
}

// Create сохраняет прогон
func (r *SweepRunRepo) Create(ctx context.Context, run *entity.SweepRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// ListRecent возвращает последние limit прогонов
func (r *SweepRunRepo) ListRecent(ctx context.Context, limit int) ([]entity.SweepRun, error) {
	var runs []entity.SweepRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

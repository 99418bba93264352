package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
)

// PostRepo реализует repository.PostRepository
type PostRepo struct {
	db *gorm.DB
}

// NewPostRepo создает новый репозиторий публикаций
func NewPostRepo(db *gorm.DB) *PostRepo {
	return &PostRepo{db: db}
}

// Create создает публикацию
func (r *PostRepo) Create(ctx context.Context, post *entity.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// GetByID возвращает публикацию по ID
func (r *PostRepo) GetByID(ctx context.Context, id string) (*entity.Post, error) {
	var post entity.Post
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// AddLike добавляет лайк; повторный лайк того же пользователя игнорируется
func (r *PostRepo) AddLike(ctx context.Context, postID, userID string) (bool, error) {
	like := entity.Like{PostID: postID, UserID: userID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&like)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RemoveLike удаляет лайк пользователя
func (r *PostRepo) RemoveLike(ctx context.Context, postID, userID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&entity.Like{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountLikes возвращает количество лайков публикации
func (r *PostRepo) CountLikes(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Like{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
)

// PostService предоставляет методы для публикаций и лайков
type PostService struct {
	postRepo repository.PostRepository
}

// NewPostService создает новый сервис публикаций
func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

// CreatePost создает публикацию пользователя
func (s *PostService) CreatePost(ctx context.Context, userID, content, mediaURL string) (*entity.Post, error) {
	content = strings.TrimSpace(content)
	mediaURL = strings.TrimSpace(mediaURL)
	if content == "" && mediaURL == "" {
		return nil, fmt.Errorf("%w: post must have content or media", apperrors.ErrValidation)
	}

	post := &entity.Post{UserID: userID, Content: content, MediaURL: mediaURL}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

// Like ставит лайк публикации. Повторный лайк ничего не меняет.
func (s *PostService) Like(ctx context.Context, userID, postID string) (int64, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return 0, err
	}
	if _, err := s.postRepo.AddLike(ctx, postID, userID); err != nil {
		return 0, fmt.Errorf("failed to like post %s: %w", postID, err)
	}
	return s.postRepo.CountLikes(ctx, postID)
}

// Unlike снимает лайк пользователя
func (s *PostService) Unlike(ctx context.Context, userID, postID string) (int64, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return 0, err
	}
	if _, err := s.postRepo.RemoveLike(ctx, postID, userID); err != nil {
		return 0, fmt.Errorf("failed to unlike post %s: %w", postID, err)
	}
	return s.postRepo.CountLikes(ctx, postID)
}

// LikeCount возвращает количество лайков публикации
func (s *PostService) LikeCount(ctx context.Context, postID string) (int64, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return 0, err
	}
	return s.postRepo.CountLikes(ctx, postID)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
)

const feedCachePrefix = "competition:feed:"

// FeedPage: страница ленты конкурса
type FeedPage struct {
	Items    []entity.FeedEntry `json:"items"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

// FeedService отдает ленту конкурса и результаты раундов
type FeedService struct {
	competitionRepo repository.CompetitionRepository
	entryRepo       repository.RoundEntryRepository
	cacheRepo       repository.CacheRepository
	ttl             time.Duration
}

// NewFeedService создает сервис ленты. cacheRepo может быть nil.
func NewFeedService(
	competitionRepo repository.CompetitionRepository,
	entryRepo repository.RoundEntryRepository,
	cacheRepo repository.CacheRepository,
	ttl time.Duration,
) *FeedService {
	return &FeedService{
		competitionRepo: competitionRepo,
		entryRepo:       entryRepo,
		cacheRepo:       cacheRepo,
		ttl:             ttl,
	}
}

func feedCacheKey(competitionID string, page, pageSize int) string {
	return fmt.Sprintf("%s%s:%d:%d", feedCachePrefix, competitionID, page, pageSize)
}

// CompetitionFeed возвращает видимые в ленте конкурса работы, отсортированные по лайкам.
// Завершенные конкурсы тоже отдают ленту.
func (s *FeedService) CompetitionFeed(ctx context.Context, competitionID string, page, pageSize int) (*FeedPage, error) {
	limit, offset := normalizePage(page, pageSize)
	page = offset/limit + 1
	key := feedCacheKey(competitionID, page, limit)

	if s.cacheRepo != nil && s.ttl > 0 {
		var cached FeedPage
		err := s.cacheRepo.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[FeedService] Cache read failed for %s: %v", key, err)
		}
	}

	if _, err := s.competitionRepo.GetByID(ctx, competitionID); err != nil {
		return nil, err
	}

	items, total, err := s.entryRepo.ListCompetitionFeed(ctx, competitionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed for competition %s: %w", competitionID, err)
	}
	if items == nil {
		items = []entity.FeedEntry{}
	}
	result := &FeedPage{Items: items, Total: total, Page: page, PageSize: limit}

	if s.cacheRepo != nil && s.ttl > 0 {
		if err := s.cacheRepo.SetJSON(ctx, key, result, s.ttl); err != nil {
			log.Printf("[FeedService] Cache write failed for %s: %v", key, err)
		}
	}
	return result, nil
}

// InvalidateCompetition удаляет все закешированные страницы ленты конкурса
func (s *FeedService) InvalidateCompetition(ctx context.Context, competitionID string) error {
	if s.cacheRepo == nil {
		return nil
	}
	removed, err := s.cacheRepo.DeleteByPrefix(ctx, feedCachePrefix+competitionID+":")
	if err != nil {
		return fmt.Errorf("failed to invalidate feed cache for competition %s: %w", competitionID, err)
	}
	if removed > 0 {
		log.Printf("[FeedService] Invalidated %d cached feed pages for competition %s", removed, competitionID)
	}
	return nil
}

// RoundResults возвращает все отправленные работы раунда с лайками и итогом квалификации
func (s *FeedService) RoundResults(ctx context.Context, competitionID, roundID string) (*entity.Round, []entity.FeedEntry, error) {
	competition, err := s.competitionRepo.GetWithRounds(ctx, competitionID)
	if err != nil {
		return nil, nil, err
	}
	pos, ok := competition.Schedule().Locate(roundID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: round %s not found in competition %s", apperrors.ErrNotFound, roundID, competitionID)
	}

	items, err := s.entryRepo.ListRoundResults(ctx, roundID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load results for round %s: %w", roundID, err)
	}
	if items == nil {
		items = []entity.FeedEntry{}
	}
	round := pos.Round
	return &round, items, nil
}

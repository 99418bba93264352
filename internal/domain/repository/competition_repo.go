package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
)

// CompetitionRepository определяет методы для работы с конкурсами
type CompetitionRepository interface {
	// WithTx возвращает копию репозитория, работающую внутри транзакции tx
	WithTx(tx *gorm.DB) CompetitionRepository
	Create(ctx context.Context, competition *entity.Competition) error
	GetByID(ctx context.Context, id string) (*entity.Competition, error)
	// GetWithRounds возвращает конкурс с раундами, упорядоченными по start_date
	GetWithRounds(ctx context.Context, id string) (*entity.Competition, error)
	// ListActiveWithRounds возвращает конкурсы is_active = true и completion_reason IS NULL
	ListActiveWithRounds(ctx context.Context) ([]entity.Competition, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]entity.Competition, int64, error)
	// Finalize атомарно выставляет completion_reason и is_active = false.
	// Возвращает false, если конкурс уже был завершен другим вызовом.
	Finalize(ctx context.Context, id, reason string, at time.Time) (bool, error)
}

// RoundRepository определяет методы для работы с раундами
type RoundRepository interface {
	WithTx(tx *gorm.DB) RoundRepository
	Create(ctx context.Context, round *entity.Round) error
	GetByID(ctx context.Context, id string) (*entity.Round, error)
	ListByCompetition(ctx context.Context, competitionID string) ([]entity.Round, error)
	// GetLastByCompetition возвращает раунд с максимальной start_date
	GetLastByCompetition(ctx context.Context, competitionID string) (*entity.Round, error)
}

// ParticipantRepository определяет методы для работы с участниками
type ParticipantRepository interface {
	WithTx(tx *gorm.DB) ParticipantRepository
	// Create возвращает ErrAlreadyJoined при нарушении уникальности (user_id, competition_id)
	Create(ctx context.Context, participant *entity.Participant) error
	GetByID(ctx context.Context, id string) (*entity.Participant, error)
	GetByUserAndCompetition(ctx context.Context, userID, competitionID string) (*entity.Participant, error)
	CountByCompetition(ctx context.Context, competitionID string) (int64, error)
	UpdateCurrentRound(ctx context.Context, participantID, roundID string) error
	// HasDisqualification проверяет, был ли участник дисквалифицирован хотя бы в одном раунде
	HasDisqualification(ctx context.Context, participantID string) (bool, error)
}

// RoundEntryRepository определяет методы для работы с записями раундов
type RoundEntryRepository interface {
	WithTx(tx *gorm.DB) RoundEntryRepository
	Create(ctx context.Context, entry *entity.RoundEntry) error
	GetByParticipantAndRound(ctx context.Context, participantID, roundID string) (*entity.RoundEntry, error)
	// AttachPost прикрепляет работу к пустой необработанной записи.
	// Возвращает false, если запись уже содержит работу или обработана.
	AttachPost(ctx context.Context, entryID, postID string) (bool, error)
	// CountForRound считает работы раунда, видимые в ленте конкурса, и обработанные из них
	CountForRound(ctx context.Context, roundID string) (entity.EntryCounts, error)
	// ListEvaluable возвращает необработанные работы раунда с количеством лайков
	ListEvaluable(ctx context.Context, roundID string) ([]entity.EntryEngagement, error)
	// MarkQualification выставляет итог квалификации, только если запись еще не обработана
	MarkQualification(ctx context.Context, entryID string, q entity.Qualification, at time.Time) (bool, error)
	// CountQualified возвращает количество прошедших квалификацию записей раунда
	CountQualified(ctx context.Context, roundID string) (int64, error)
	// HideFromCompetitionFeedAfter скрывает из ленты конкурса записи участника
	// в раундах, начинающихся строго после after
	HideFromCompetitionFeedAfter(ctx context.Context, participantID, competitionID string, after time.Time) (int64, error)
	// EnsureEntry создает пустую запись (participant, round), если ее еще нет.
	// Существующая запись не изменяется.
	EnsureEntry(ctx context.Context, participantID, roundID string) (bool, error)
	ListCompetitionFeed(ctx context.Context, competitionID string, limit, offset int) ([]entity.FeedEntry, int64, error)
	ListRoundResults(ctx context.Context, roundID string) ([]entity.FeedEntry, error)
}

// PostRepository определяет методы для работы с публикациями и лайками
type PostRepository interface {
	Create(ctx context.Context, post *entity.Post) error
	GetByID(ctx context.Context, id string) (*entity.Post, error)
	// AddLike идемпотентно добавляет лайк, возвращает true, если лайк новый
	AddLike(ctx context.Context, postID, userID string) (bool, error)
	RemoveLike(ctx context.Context, postID, userID string) (bool, error)
	CountLikes(ctx context.Context, postID string) (int64, error)
}

// SweepRunRepository хранит историю прогонов квалификации
type SweepRunRepository interface {
	Create(ctx context.Context, run *entity.SweepRun) error
	// ListRecent возвращает последние прогоны, новые первыми
	ListRecent(ctx context.Context, limit int) ([]entity.SweepRun, error)
}

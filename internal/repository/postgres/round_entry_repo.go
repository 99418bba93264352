package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
)

// RoundEntryRepo реализует repository.RoundEntryRepository
type RoundEntryRepo struct {
	db *gorm.DB
}

// NewRoundEntryRepo создает новый репозиторий записей раундов
func NewRoundEntryRepo(db *gorm.DB) *RoundEntryRepo {
	return &RoundEntryRepo{db: db}
}

// WithTx возвращает репозиторий, привязанный к транзакции
func (r *RoundEntryRepo) WithTx(tx *gorm.DB) repository.RoundEntryRepository {
	return &RoundEntryRepo{db: tx}
}

// Create создает запись раунда
func (r *RoundEntryRepo) Create(ctx context.Context, entry *entity.RoundEntry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: participant %s, round %s",
			repository.ErrEntryAlreadySubmitted, entry.ParticipantID, entry.RoundID)
	}
	return err
}

// GetByParticipantAndRound возвращает запись участника в раунде
func (r *RoundEntryRepo) GetByParticipantAndRound(ctx context.Context, participantID, roundID string) (*entity.RoundEntry, error) {
	var entry entity.RoundEntry
	err := r.db.WithContext(ctx).
		Where("participant_id = ? AND round_id = ?", participantID, roundID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// AttachPost заполняет post_id у пустой необработанной записи
func (r *RoundEntryRepo) AttachPost(ctx context.Context, entryID, postID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.RoundEntry{}).
		Where("id = ? AND post_id IS NULL AND qualification = ?", entryID, entity.QualificationUnprocessed).
		Update("post_id", postID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// evaluableScope: работы раунда, участвующие в квалификации.
// Записи, скрытые из ленты конкурса после выбывания участника, не оцениваются.
func evaluableScope(db *gorm.DB, alias string) *gorm.DB {
	return db.Where(
		alias+"post_id IS NOT NULL AND "+alias+"visible_in_competition_feed = ?", true,
	)
}

// CountForRound возвращает количество отправленных и обработанных работ раунда
func (r *RoundEntryRepo) CountForRound(ctx context.Context, roundID string) (entity.EntryCounts, error) {
	var counts entity.EntryCounts
	query := r.db.WithContext(ctx).Model(&entity.RoundEntry{}).
		Select("COUNT(*) AS submitted, COALESCE(SUM(CASE WHEN qualification <> ? THEN 1 ELSE 0 END), 0) AS processed",
			entity.QualificationUnprocessed).
		Where("round_id = ?", roundID)
	err := evaluableScope(query, "").Scan(&counts).Error
	if err != nil {
		return entity.EntryCounts{}, fmt.Errorf("count entries for round %s: %w", roundID, err)
	}
	return counts, nil
}

// ListEvaluable возвращает необработанные работы раунда вместе с лайками.
// Работы, скрытые из ленты конкурса после выбывания участника, сюда не попадают
// и навсегда остаются в состоянии unprocessed.
func (r *RoundEntryRepo) ListEvaluable(ctx context.Context, roundID string) ([]entity.EntryEngagement, error) {
	var rows []entity.EntryEngagement
	query := r.db.WithContext(ctx).
		Table("round_entries AS e").
		Select(`e.id AS entry_id, e.participant_id, p.user_id, e.round_id, e.post_id,
			e.qualification, COUNT(l.id) AS like_count`).
		Joins("JOIN participants p ON p.id = e.participant_id").
		Joins("LEFT JOIN likes l ON l.post_id = e.post_id").
		Where("e.round_id = ? AND e.qualification = ?", roundID, entity.QualificationUnprocessed)
	err := evaluableScope(query, "e.").
		Group("e.id, e.participant_id, p.user_id, e.round_id, e.post_id, e.qualification, e.created_at").
		Order("e.created_at ASC, e.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list evaluable entries for round %s: %w", roundID, err)
	}
	return rows, nil
}

// MarkQualification выставляет результат квалификации и делает запись видимой в обеих лентах.
// Уже обработанная запись не изменяется.
func (r *RoundEntryRepo) MarkQualification(ctx context.Context, entryID string, q entity.Qualification, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.RoundEntry{}).
		Where("id = ? AND qualification = ?", entryID, entity.QualificationUnprocessed).
		Updates(map[string]interface{}{
			"qualification":               q,
			"visible_in_normal_feed":      true,
			"visible_in_competition_feed": true,
			"processed_at":                at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("mark entry %s as %s: %w", entryID, q, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CountQualified возвращает количество прошедших квалификацию записей раунда
func (r *RoundEntryRepo) CountQualified(ctx context.Context, roundID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.RoundEntry{}).
		Where("round_id = ? AND qualification = ?", roundID, entity.QualificationQualified).
		Count(&count).Error
	return count, err
}

// HideFromCompetitionFeedAfter скрывает записи участника в более поздних раундах.
// visible_in_normal_feed не изменяется.
func (r *RoundEntryRepo) HideFromCompetitionFeedAfter(ctx context.Context, participantID, competitionID string, after time.Time) (int64, error) {
	db := r.db.WithContext(ctx)
	laterRounds := db.Model(&entity.Round{}).
		Select("id").
		Where("competition_id = ? AND start_date > ?", competitionID, after)

	result := db.Model(&entity.RoundEntry{}).
		Where("participant_id = ? AND round_id IN (?)", participantID, laterRounds).
		Update("visible_in_competition_feed", false)
	if result.Error != nil {
		return 0, fmt.Errorf("hide later entries of participant %s: %w", participantID, result.Error)
	}
	return result.RowsAffected, nil
}

// EnsureEntry создает пустую запись для (participant, round), если ее нет.
// ON CONFLICT DO NOTHING сохраняет post_id записи, отправленной заранее.
func (r *RoundEntryRepo) EnsureEntry(ctx context.Context, participantID, roundID string) (bool, error) {
	entry := entity.RoundEntry{
		ParticipantID:            participantID,
		RoundID:                  roundID,
		Qualification:            entity.QualificationUnprocessed,
		VisibleInNormalFeed:      true,
		VisibleInCompetitionFeed: true,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "participant_id"}, {Name: "round_id"}},
			DoNothing: true,
		}).
		Create(&entry)
	if result.Error != nil {
		return false, fmt.Errorf("ensure entry for participant %s in round %s: %w", participantID, roundID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

const feedSelect = `e.id AS entry_id, e.participant_id, p.user_id, e.round_id, ro.name AS round_name,
	e.post_id, po.content, po.media_url, e.qualification, e.created_at, COUNT(l.id) AS like_count`

const feedGroup = `e.id, e.participant_id, p.user_id, e.round_id, ro.name, e.post_id,
	po.content, po.media_url, e.qualification, e.created_at`

func (r *RoundEntryRepo) feedQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("round_entries AS e").
		Joins("JOIN participants p ON p.id = e.participant_id").
		Joins("JOIN rounds ro ON ro.id = e.round_id").
		Joins("JOIN posts po ON po.id = e.post_id").
		Joins("LEFT JOIN likes l ON l.post_id = e.post_id")
}

// ListCompetitionFeed возвращает ленту конкурса, отсортированную по лайкам
func (r *RoundEntryRepo) ListCompetitionFeed(ctx context.Context, competitionID string, limit, offset int) ([]entity.FeedEntry, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Table("round_entries AS e").
		Joins("JOIN rounds ro ON ro.id = e.round_id").
		Where("ro.competition_id = ? AND e.post_id IS NOT NULL AND e.visible_in_competition_feed = ?", competitionID, true).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var items []entity.FeedEntry
	err = r.feedQuery(ctx).
		Select(feedSelect).
		Where("ro.competition_id = ? AND e.visible_in_competition_feed = ?", competitionID, true).
		Group(feedGroup).
		Order("like_count DESC, e.created_at ASC, e.id ASC").
		Limit(limit).
		Offset(offset).
		Scan(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListRoundResults возвращает все отправленные работы раунда с лайками и результатом
func (r *RoundEntryRepo) ListRoundResults(ctx context.Context, roundID string) ([]entity.FeedEntry, error) {
	var items []entity.FeedEntry
	err := r.feedQuery(ctx).
		Select(feedSelect).
		Where("e.round_id = ?", roundID).
		Group(feedGroup).
		Order("like_count DESC, e.created_at ASC, e.id ASC").
		Scan(&items).Error
	return items, err
}

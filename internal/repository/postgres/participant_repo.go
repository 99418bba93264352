package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
)

// ParticipantRepo реализует repository.ParticipantRepository
type ParticipantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo создает новый репозиторий участников
func NewParticipantRepo(db *gorm.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// WithTx возвращает репозиторий, привязанный к транзакции
func (r *ParticipantRepo) WithTx(tx *gorm.DB) repository.ParticipantRepository {
	return &ParticipantRepo{db: tx}
}

// Create создает участника; повторное вступление возвращает ErrAlreadyJoined
func (r *ParticipantRepo) Create(ctx context.Context, participant *entity.Participant) error {
	err := r.db.WithContext(ctx).Create(participant).Error
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user %s, competition %s",
				repository.ErrAlreadyJoined, participant.UserID, participant.CompetitionID)
		}
		return err
	}
	return nil
}

// GetByID возвращает участника по ID
func (r *ParticipantRepo) GetByID(ctx context.Context, id string) (*entity.Participant, error) {
	var participant entity.Participant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &participant, nil
}

// GetByUserAndCompetition возвращает участие пользователя в конкурсе
func (r *ParticipantRepo) GetByUserAndCompetition(ctx context.Context, userID, competitionID string) (*entity.Participant, error) {
	var participant entity.Participant
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND competition_id = ?", userID, competitionID).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &participant, nil
}

// CountByCompetition возвращает количество участников конкурса
func (r *ParticipantRepo) CountByCompetition(ctx context.Context, competitionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Participant{}).
		Where("competition_id = ?", competitionID).
		Count(&count).Error
	return count, err
}

// UpdateCurrentRound перемещает участника в указанный раунд
func (r *ParticipantRepo) UpdateCurrentRound(ctx context.Context, participantID, roundID string) error {
	return r.db.WithContext(ctx).Model(&entity.Participant{}).
		Where("id = ?", participantID).
		Update("current_round_id", roundID).
		Error
}

// HasDisqualification проверяет наличие дисквалифицированных записей участника
func (r *ParticipantRepo) HasDisqualification(ctx context.Context, participantID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.RoundEntry{}).
		Where("participant_id = ? AND qualification = ?", participantID, entity.QualificationDisqualified).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

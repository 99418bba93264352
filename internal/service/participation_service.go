package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
)

// ParticipationService управляет участием пользователей в конкурсах
type ParticipationService struct {
	competitionRepo repository.CompetitionRepository
	participantRepo repository.ParticipantRepository
	entryRepo       repository.RoundEntryRepository
	postRepo        repository.PostRepository
	db              *gorm.DB
	clock           func() time.Time
}

// NewParticipationService создает новый сервис участия
func NewParticipationService(
	competitionRepo repository.CompetitionRepository,
	participantRepo repository.ParticipantRepository,
	entryRepo repository.RoundEntryRepository,
	postRepo repository.PostRepository,
	db *gorm.DB,
) *ParticipationService {
	return &ParticipationService{
		competitionRepo: competitionRepo,
		participantRepo: participantRepo,
		entryRepo:       entryRepo,
		postRepo:        postRepo,
		db:              db,
		clock:           time.Now,
	}
}

// WithClock подменяет источник времени
func (s *ParticipationService) WithClock(clock func() time.Time) *ParticipationService {
	s.clock = clock
	return s
}

// Join регистрирует пользователя в конкурсе.
// Текущим раундом участника становится первый раунд.
func (s *ParticipationService) Join(ctx context.Context, userID, competitionID string) (*entity.Participant, error) {
	competition, err := s.competitionRepo.GetWithRounds(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if !competition.IsOpen() {
		return nil, repository.ErrCompetitionClosed
	}

	first := competition.Schedule().First()
	if first == nil {
		return nil, fmt.Errorf("%w: competition has no rounds", repository.ErrCompetitionClosed)
	}
	if first.HasEnded(s.clock().UTC()) {
		return nil, fmt.Errorf("%w: first round has already ended", repository.ErrCompetitionClosed)
	}

	firstRoundID := first.ID
	participant := &entity.Participant{
		UserID:         userID,
		CompetitionID:  competitionID,
		CurrentRoundID: &firstRoundID,
	}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		return nil, err
	}
	log.Printf("[ParticipationService] User %s joined competition %s", userID, competitionID)
	return participant, nil
}

// Submit отправляет публикацию пользователя в раунд конкурса.
// Работа может быть отправлена в текущий раунд участника или заранее в более поздний.
func (s *ParticipationService) Submit(ctx context.Context, userID, competitionID, roundID, postID string) (*entity.RoundEntry, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, fmt.Errorf("%w: post belongs to another user", apperrors.ErrForbidden)
	}

	competition, err := s.competitionRepo.GetWithRounds(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if !competition.IsOpen() {
		return nil, repository.ErrCompetitionClosed
	}

	schedule := competition.Schedule()
	target, ok := schedule.Locate(roundID)
	if !ok {
		return nil, fmt.Errorf("%w: round %s not found in competition %s", apperrors.ErrNotFound, roundID, competitionID)
	}
	if !target.Round.IsOpen(s.clock().UTC()) {
		return nil, repository.ErrRoundNotOpen
	}

	participant, err := s.participantRepo.GetByUserAndCompetition(ctx, userID, competitionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, repository.ErrNotParticipant
		}
		return nil, err
	}

	eliminated, err := s.participantRepo.HasDisqualification(ctx, participant.ID)
	if err != nil {
		return nil, err
	}
	if eliminated {
		return nil, repository.ErrParticipantEliminated
	}

	if participant.CurrentRoundID != nil {
		current, found := schedule.Locate(*participant.CurrentRoundID)
		if found && target.Index < current.Index {
			return nil, fmt.Errorf("%w: round %q is behind the participant's current round", repository.ErrRoundNotOpen, target.Round.Name)
		}
	}

	var entry *entity.RoundEntry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entries := s.entryRepo.WithTx(tx)
		existing, err := entries.GetByParticipantAndRound(ctx, participant.ID, roundID)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			entry = &entity.RoundEntry{
				ParticipantID:            participant.ID,
				RoundID:                  roundID,
				PostID:                   &postID,
				Qualification:            entity.QualificationUnprocessed,
				VisibleInNormalFeed:      true,
				VisibleInCompetitionFeed: true,
			}
			return entries.Create(ctx, entry)
		case err != nil:
			return err
		}

		if existing.HasPost() || existing.Qualification.IsProcessed() {
			return repository.ErrEntryAlreadySubmitted
		}
		applied, err := entries.AttachPost(ctx, existing.ID, postID)
		if err != nil {
			return err
		}
		if !applied {
			return repository.ErrEntryAlreadySubmitted
		}
		existing.PostID = &postID
		entry = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[ParticipationService] Participant %s submitted post %s to round %s", participant.ID, postID, roundID)
	return entry, nil
}

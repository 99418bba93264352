package entity

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrRoundOutOfOrder означает, что новый раунд начинается не позже последнего существующего.
	ErrRoundOutOfOrder = errors.New("round must start after the previous round")
	// ErrRoundInvalidWindow означает, что раунд заканчивается раньше, чем начинается.
	ErrRoundInvalidWindow = errors.New("round end date must be after its start date")
	// ErrRoundInvalidThreshold означает отрицательный порог лайков.
	ErrRoundInvalidThreshold = errors.New("likes to pass must not be negative")
)

// Round представляет раунд конкурса
type Round struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	CompetitionID string    `gorm:"size:36;not null;index:idx_rounds_competition_start,priority:1" json:"competition_id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	StartDate     time.Time `gorm:"not null;index:idx_rounds_competition_start,priority:2" json:"start_date"`
	EndDate       time.Time `gorm:"not null" json:"end_date"`
	// LikesToPass: минимальное количество лайков для прохождения; 0 пропускает всех
	LikesToPass int       `gorm:"not null;default:0" json:"likes_to_pass"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Round) TableName() string {
	return "rounds"
}

// BeforeCreate генерирует ID, если он не задан
func (r *Round) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// HasEnded проверяет, что end_date раунда уже прошла
func (r *Round) HasEnded(now time.Time) bool {
	return r.EndDate.Before(now)
}

// IsOpen проверяет, принимает ли раунд работы в момент now
func (r *Round) IsOpen(now time.Time) bool {
	return !now.Before(r.StartDate) && now.Before(r.EndDate)
}

// Passes проверяет, достаточно ли лайков для прохождения раунда
func (r *Round) Passes(likes int64) bool {
	return likes >= int64(r.LikesToPass)
}

// RoundSchedule: упорядоченный по start_date список раундов конкурса
type RoundSchedule []Round

// RoundPosition описывает место раунда в расписании
type RoundPosition struct {
	Round   Round
	Index   int
	IsFirst bool
	IsLast  bool
	Next    *Round
}

// NewRoundSchedule сортирует раунды по start_date (при равенстве: по ID)
func NewRoundSchedule(rounds []Round) RoundSchedule {
	schedule := make(RoundSchedule, len(rounds))
	copy(schedule, rounds)
	sort.SliceStable(schedule, func(i, j int) bool {
		if schedule[i].StartDate.Equal(schedule[j].StartDate) {
			return schedule[i].ID < schedule[j].ID
		}
		return schedule[i].StartDate.Before(schedule[j].StartDate)
	})
	return schedule
}

// First возвращает первый раунд или nil для пустого расписания
func (s RoundSchedule) First() *Round {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

// Last возвращает последний раунд или nil для пустого расписания
func (s RoundSchedule) Last() *Round {
	if len(s) == 0 {
		return nil
	}
	return &s[len(s)-1]
}

// Locate находит раунд по ID и вычисляет его позицию
func (s RoundSchedule) Locate(roundID string) (RoundPosition, bool) {
	for i := range s {
		if s[i].ID != roundID {
			continue
		}
		pos := RoundPosition{
			Round:   s[i],
			Index:   i,
			IsFirst: i == 0,
			IsLast:  i == len(s)-1,
		}
		if !pos.IsLast {
			next := s[i+1]
			pos.Next = &next
		}
		return pos, true
	}
	return RoundPosition{}, false
}

// Ended возвращает раунды, чья end_date уже прошла, в порядке расписания
func (s RoundSchedule) Ended(now time.Time) []Round {
	ended := make([]Round, 0, len(s))
	for _, r := range s {
		if r.HasEnded(now) {
			ended = append(ended, r)
		}
	}
	return ended
}

// ValidateAppend проверяет, что раунд можно добавить в конец расписания
func (s RoundSchedule) ValidateAppend(candidate *Round) error {
	if candidate.LikesToPass < 0 {
		return ErrRoundInvalidThreshold
	}
	if !candidate.EndDate.After(candidate.StartDate) {
		return ErrRoundInvalidWindow
	}
	if last := s.Last(); last != nil && !candidate.StartDate.After(last.StartDate) {
		return ErrRoundOutOfOrder
	}
	return nil
}

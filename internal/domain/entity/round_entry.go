package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Qualification: состояние квалификации участника в раунде
type Qualification string

// Возможные состояния квалификации
const (
	QualificationUnprocessed  Qualification = "unprocessed"
	QualificationQualified    Qualification = "qualified"
	QualificationDisqualified Qualification = "disqualified"
)

// QualificationFor переводит результат сравнения лайков с порогом в состояние
func QualificationFor(passed bool) Qualification {
	if passed {
		return QualificationQualified
	}
	return QualificationDisqualified
}

// IsProcessed проверяет, что запись уже прошла квалификацию
func (q Qualification) IsProcessed() bool {
	return q == QualificationQualified || q == QualificationDisqualified
}

// RoundEntry представляет участие в конкретном раунде (с работой или без)
type RoundEntry struct {
	ID            string  `gorm:"primaryKey;size:36" json:"id"`
	ParticipantID string  `gorm:"size:36;not null;uniqueIndex:idx_entry_participant_round,priority:1" json:"participant_id"`
	RoundID       string  `gorm:"size:36;not null;index;uniqueIndex:idx_entry_participant_round,priority:2" json:"round_id"`
	PostID        *string `gorm:"size:36" json:"post_id,omitempty"`
	// Qualification меняется только из unprocessed, повторная обработка невозможна
	Qualification            Qualification `gorm:"size:16;not null;default:'unprocessed';index" json:"qualification"`
	VisibleInNormalFeed      bool          `gorm:"not null" json:"visible_in_normal_feed"`
	VisibleInCompetitionFeed bool          `gorm:"not null" json:"visible_in_competition_feed"`
	ProcessedAt              *time.Time    `json:"processed_at,omitempty"`
	CreatedAt                time.Time     `json:"created_at"`
	UpdatedAt                time.Time     `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (RoundEntry) TableName() string {
	return "round_entries"
}

// BeforeCreate генерирует ID и выставляет состояние по умолчанию
func (e *RoundEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Qualification == "" {
		e.Qualification = QualificationUnprocessed
	}
	return nil
}

// HasPost проверяет, прикреплена ли работа к записи
func (e *RoundEntry) HasPost() bool {
	return e.PostID != nil && *e.PostID != ""
}

// EntryEngagement: запись раунда вместе с количеством лайков ее работы
type EntryEngagement struct {
	EntryID       string
	ParticipantID string
	UserID        string
	RoundID       string
	PostID        string
	Qualification Qualification
	LikeCount     int64
}

// FeedEntry: элемент ленты конкурса или таблицы результатов раунда
type FeedEntry struct {
	EntryID       string        `json:"entry_id"`
	ParticipantID string        `json:"participant_id"`
	UserID        string        `json:"user_id"`
	RoundID       string        `json:"round_id"`
	RoundName     string        `json:"round_name"`
	PostID        string        `json:"post_id"`
	Content       string        `json:"content"`
	MediaURL      string        `json:"media_url"`
	Qualification Qualification `json:"qualification"`
	LikeCount     int64         `json:"like_count"`
	CreatedAt     time.Time     `json:"created_at"`
}

// EntryCounts: счетчики работ раунда
type EntryCounts struct {
	Submitted int64
	Processed int64
}

// FullyProcessed проверяет, что раунд уже полностью обработан
func (c EntryCounts) FullyProcessed() bool {
	return c.Submitted > 0 && c.Submitted == c.Processed
}

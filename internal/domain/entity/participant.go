package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Participant представляет участие пользователя в конкурсе
type Participant struct {
	ID            string `gorm:"primaryKey;size:36" json:"id"`
	UserID        string `gorm:"size:36;not null;uniqueIndex:idx_participant_user_competition,priority:1" json:"user_id"`
	CompetitionID string `gorm:"size:36;not null;index;uniqueIndex:idx_participant_user_competition,priority:2" json:"competition_id"`
	// CurrentRoundID сдвигается вперед при каждом прохождении раунда
	CurrentRoundID *string   `gorm:"size:36" json:"current_round_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Participant) TableName() string {
	return "participants"
}

// BeforeCreate генерирует ID, если он не задан
func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

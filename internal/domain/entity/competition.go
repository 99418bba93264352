package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Competition представляет многораундовый конкурс на выбывание
type Competition struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`
	IsActive    bool   `gorm:"not null;index" json:"is_active"`
	// CompletionReason выставляется ровно один раз и делает конкурс терминальным
	CompletionReason *string    `gorm:"type:text" json:"completion_reason,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Rounds           []Round    `gorm:"foreignKey:CompetitionID" json:"rounds,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Competition) TableName() string {
	return "competitions"
}

// BeforeCreate генерирует ID, если он не задан
func (c *Competition) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// IsTerminal проверяет, завершен ли конкурс
func (c *Competition) IsTerminal() bool {
	return c.CompletionReason != nil
}

// IsOpen проверяет, что конкурс активен и еще не завершен
func (c *Competition) IsOpen() bool {
	return c.IsActive && c.CompletionReason == nil
}

// Schedule возвращает раунды конкурса в порядке start_date
func (c *Competition) Schedule() RoundSchedule {
	return NewRoundSchedule(c.Rounds)
}

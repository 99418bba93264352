package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SweepRun: сохраненный отчет одного прогона квалификации
type SweepRun struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	StartedAt      time.Time      `gorm:"not null;index" json:"started_at"`
	FinishedAt     time.Time      `gorm:"not null" json:"finished_at"`
	ProcessedCount int            `gorm:"not null;default:0" json:"processed_count"`
	ErrorCount     int            `gorm:"not null;default:0" json:"error_count"`
	Items          datatypes.JSON `json:"items"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (SweepRun) TableName() string {
	return "sweep_runs"
}

// BeforeCreate генерирует ID, если он не задан
func (s *SweepRun) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

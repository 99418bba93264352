package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post представляет пользовательскую публикацию
type Post struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null;default:''" json:"content"`
	MediaURL  string    `gorm:"size:500;not null;default:''" json:"media_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Post) TableName() string {
	return "posts"
}

// BeforeCreate генерирует ID, если он не задан
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Like: отметка "нравится" от пользователя
type Like struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"size:36;not null;index;uniqueIndex:idx_like_post_user,priority:1" json:"post_id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_like_post_user,priority:2" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Like) TableName() string {
	return "likes"
}

// BeforeCreate генерирует ID, если он не задан
func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

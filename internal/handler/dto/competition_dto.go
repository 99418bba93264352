package dto

import (
	"time"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
)

// Состояния раунда относительно текущего времени
const (
	RoundStatusUpcoming = "upcoming"
	RoundStatusOpen     = "open"
	RoundStatusEnded    = "ended"
)

// CreateCompetitionRequest: запрос на создание конкурса
type CreateCompetitionRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=200"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

// CreateRoundRequest: запрос на добавление раунда
type CreateRoundRequest struct {
	Name      string    `json:"name" binding:"required,max=100"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
	// LikesToPass не обязателен, по умолчанию 0
	LikesToPass *int `json:"likes_to_pass"`
}

// SubmitEntryRequest: запрос на отправку работы в раунд
type SubmitEntryRequest struct {
	PostID string `json:"post_id" binding:"required,uuid"`
}

// CreatePostRequest: запрос на создание публикации
type CreatePostRequest struct {
	Content  string `json:"content" binding:"max=5000"`
	MediaURL string `json:"media_url" binding:"omitempty,url,max=500"`
}

// RoundResponse представляет раунд для клиента
type RoundResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	LikesToPass int       `json:"likes_to_pass"`
	Status      string    `json:"status"`
}

// CompetitionResponse представляет конкурс для клиента
type CompetitionResponse struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	IsActive         bool            `json:"is_active"`
	CompletionReason *string         `json:"completion_reason,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	Rounds           []RoundResponse `json:"rounds"`
	CreatedAt        time.Time       `json:"created_at"`
}

// PaginatedCompetitionResponse: страница конкурсов
type PaginatedCompetitionResponse struct {
	Competitions []*CompetitionResponse `json:"competitions"`
	Total        int64                  `json:"total"`
	Page         int                    `json:"page"`
	PerPage      int                    `json:"per_page"`
}

// ParticipantResponse представляет участника
type ParticipantResponse struct {
	ID             string    `json:"id"`
	CompetitionID  string    `json:"competition_id"`
	CurrentRoundID *string   `json:"current_round_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// EntryResponse представляет запись участника в раунде
type EntryResponse struct {
	ID            string               `json:"id"`
	RoundID       string               `json:"round_id"`
	PostID        *string              `json:"post_id,omitempty"`
	Qualification entity.Qualification `json:"qualification"`
	CreatedAt     time.Time            `json:"created_at"`
}

// LikeResponse: количество лайков публикации после операции
type LikeResponse struct {
	PostID    string `json:"post_id"`
	LikeCount int64  `json:"like_count"`
}

// RoundResultsResponse: результаты раунда
type RoundResultsResponse struct {
	Round   RoundResponse      `json:"round"`
	Entries []entity.FeedEntry `json:"entries"`
}

// NewRoundResponse создает DTO раунда, статус вычисляется относительно now
func NewRoundResponse(r *entity.Round, now time.Time) RoundResponse {
	status := RoundStatusUpcoming
	switch {
	case r.HasEnded(now):
		status = RoundStatusEnded
	case r.IsOpen(now):
		status = RoundStatusOpen
	}
	return RoundResponse{
		ID:          r.ID,
		Name:        r.Name,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		LikesToPass: r.LikesToPass,
		Status:      status,
	}
}

// NewCompetitionResponse создает DTO конкурса с раундами в порядке расписания
func NewCompetitionResponse(c *entity.Competition, now time.Time) *CompetitionResponse {
	schedule := c.Schedule()
	rounds := make([]RoundResponse, 0, len(schedule))
	for i := range schedule {
		rounds = append(rounds, NewRoundResponse(&schedule[i], now))
	}
	return &CompetitionResponse{
		ID:               c.ID,
		Title:            c.Title,
		Description:      c.Description,
		IsActive:         c.IsActive,
		CompletionReason: c.CompletionReason,
		CompletedAt:      c.CompletedAt,
		Rounds:           rounds,
		CreatedAt:        c.CreatedAt,
	}
}

// NewParticipantResponse создает DTO участника
func NewParticipantResponse(p *entity.Participant) *ParticipantResponse {
	return &ParticipantResponse{
		ID:             p.ID,
		CompetitionID:  p.CompetitionID,
		CurrentRoundID: p.CurrentRoundID,
		CreatedAt:      p.CreatedAt,
	}
}

// NewEntryResponse создает DTO записи раунда
func NewEntryResponse(e *entity.RoundEntry) *EntryResponse {
	return &EntryResponse{
		ID:            e.ID,
		RoundID:       e.RoundID,
		PostID:        e.PostID,
		Qualification: e.Qualification,
		CreatedAt:     e.CreatedAt,
	}
}

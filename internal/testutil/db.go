// Package testutil содержит общие помощники для тестов с базой данных.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
)

// NewSQLiteDB открывает in-memory SQLite с полной схемой приложения.
// Одно соединение: каждое новое соединение к :memory: получило бы пустую базу.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&entity.Competition{},
		&entity.Round{},
		&entity.Participant{},
		&entity.Post{},
		&entity.Like{},
		&entity.RoundEntry{},
		&entity.SweepRun{},
	)
	require.NoError(t, err)
	return db
}

// Fixtures создает тестовые данные напрямую через GORM
type Fixtures struct {
	t  *testing.T
	db *gorm.DB
}

// NewFixtures создает помощник наполнения базы
func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

// Competition создает активный незавершенный конкурс
func (f *Fixtures) Competition(title string) *entity.Competition {
	f.t.Helper()
	c := &entity.Competition{Title: title, IsActive: true}
	require.NoError(f.t, f.db.Omit("Rounds").Create(c).Error)
	return c
}

// Round создает раунд конкурса
func (f *Fixtures) Round(competitionID, name string, start, end time.Time, likesToPass int) *entity.Round {
	f.t.Helper()
	r := &entity.Round{
		CompetitionID: competitionID,
		Name:          name,
		StartDate:     start.UTC(),
		EndDate:       end.UTC(),
		LikesToPass:   likesToPass,
	}
	require.NoError(f.t, f.db.Create(r).Error)
	return r
}

// Participant создает участника, текущий раунд может быть пустым
func (f *Fixtures) Participant(userID, competitionID string, currentRoundID *string) *entity.Participant {
	f.t.Helper()
	p := &entity.Participant{UserID: userID, CompetitionID: competitionID, CurrentRoundID: currentRoundID}
	require.NoError(f.t, f.db.Create(p).Error)
	return p
}

// PostWithLikes создает публикацию пользователя и likes лайков от разных пользователей
func (f *Fixtures) PostWithLikes(userID string, likes int) *entity.Post {
	f.t.Helper()
	post := &entity.Post{UserID: userID, Content: "post by " + userID}
	require.NoError(f.t, f.db.Create(post).Error)
	for i := 0; i < likes; i++ {
		like := &entity.Like{PostID: post.ID, UserID: fmt.Sprintf("liker-%s-%d", post.ID, i)}
		require.NoError(f.t, f.db.Create(like).Error)
	}
	return post
}

// Entry создает видимую в обеих лентах необработанную запись раунда
func (f *Fixtures) Entry(participantID, roundID string, postID *string) *entity.RoundEntry {
	f.t.Helper()
	e := &entity.RoundEntry{
		ParticipantID:            participantID,
		RoundID:                  roundID,
		PostID:                   postID,
		Qualification:            entity.QualificationUnprocessed,
		VisibleInNormalFeed:      true,
		VisibleInCompetitionFeed: true,
	}
	require.NoError(f.t, f.db.Create(e).Error)
	return e
}

// Submission создает участника, публикацию с likes лайками и запись раунда с ней
func (f *Fixtures) Submission(userID, competitionID, roundID string, likes int) (*entity.Participant, *entity.RoundEntry) {
	f.t.Helper()
	p := f.Participant(userID, competitionID, &roundID)
	post := f.PostWithLikes(userID, likes)
	e := f.Entry(p.ID, roundID, &post.ID)
	return p, e
}

// ReloadEntry перечитывает запись раунда
func (f *Fixtures) ReloadEntry(id string) *entity.RoundEntry {
	f.t.Helper()
	var e entity.RoundEntry
	require.NoError(f.t, f.db.Where("id = ?", id).First(&e).Error)
	return &e
}

// ReloadCompetition перечитывает конкурс
func (f *Fixtures) ReloadCompetition(id string) *entity.Competition {
	f.t.Helper()
	var c entity.Competition
	require.NoError(f.t, f.db.Where("id = ?", id).First(&c).Error)
	return &c
}

// ReloadParticipant перечитывает участника
func (f *Fixtures) ReloadParticipant(id string) *entity.Participant {
	f.t.Helper()
	var p entity.Participant
	require.NoError(f.t, f.db.Where("id = ?", id).First(&p).Error)
	return &p
}

// EntriesFor возвращает все записи участника в раунде
func (f *Fixtures) EntriesFor(participantID, roundID string) []entity.RoundEntry {
	f.t.Helper()
	var entries []entity.RoundEntry
	require.NoError(f.t, f.db.Where("participant_id = ? AND round_id = ?", participantID, roundID).Find(&entries).Error)
	return entries
}

package qualification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	"github.com/vibtrix/vibtrix-api/internal/observability/metrics"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
	"github.com/vibtrix/vibtrix-api/internal/repository/postgres"
	"github.com/vibtrix/vibtrix-api/internal/testutil"
)

// ============================================================================
// Вспомогательные типы
// ============================================================================

var sweepNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type publishedEvent struct {
	CompetitionID string
	Type          string
}

// recordingPublisher запоминает отправленные события
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishToCompetition(competitionID string, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{CompetitionID: competitionID, Type: eventType})
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// recordingInvalidator запоминает сброшенные конкурсы
type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (i *recordingInvalidator) InvalidateCompetition(ctx context.Context, competitionID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids = append(i.ids, competitionID)
	return nil
}

type memoryReports struct {
	reports []*SweepReport
}

func (m *memoryReports) SaveReport(ctx context.Context, report *SweepReport) error {
	m.reports = append(m.reports, report)
	return nil
}

type testEnv struct {
	db          *gorm.DB
	fx          *testutil.Fixtures
	processor   *Processor
	events      *recordingPublisher
	invalidator *recordingInvalidator
	reports     *memoryReports
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	env := &testEnv{
		db:          db,
		fx:          testutil.NewFixtures(t, db),
		events:      &recordingPublisher{},
		invalidator: &recordingInvalidator{},
		reports:     &memoryReports{},
	}
	env.processor = NewProcessor(&Config{Concurrency: 2}, &Dependencies{
		DB:              db,
		CompetitionRepo: postgres.NewCompetitionRepo(db),
		ParticipantRepo: postgres.NewParticipantRepo(db),
		EntryRepo:       postgres.NewRoundEntryRepo(db),
		Events:          env.events,
		Cache:           env.invalidator,
		Reports:         env.reports,
		Clock:           func() time.Time { return sweepNow },
	})
	return env
}

func hoursAgo(h int) time.Time {
	return sweepNow.Add(-time.Duration(h) * time.Hour)
}

func hoursAhead(h int) time.Time {
	return sweepNow.Add(time.Duration(h) * time.Hour)
}

// ============================================================================
// Сценарии
// ============================================================================

func TestSweep_SingleRoundQualifierKeepsCompetitionActive(t *testing.T) {
	// Arrange: один раунд, порог 10, работа с 15 лайками
	env := newTestEnv(t)
	c := env.fx.Competition("Solo")
	r := env.fx.Round(c.ID, "Final", hoursAgo(48), hoursAgo(1), 10)
	p, e := env.fx.Submission("user-1", c.ID, r.ID, 15)

	// Act
	report, err := env.processor.Sweep(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "Processed 1 entries: 1 qualified, 0 disqualified", report.Items[0].Result)
	assert.Nil(t, report.Items[0].CompletionReason)

	entry := env.fx.ReloadEntry(e.ID)
	assert.Equal(t, entity.QualificationQualified, entry.Qualification)
	assert.NotNil(t, entry.ProcessedAt)

	competition := env.fx.ReloadCompetition(c.ID)
	assert.True(t, competition.IsActive, "Последний раунд не завершает конкурс, победитель определяется отдельно")
	assert.Nil(t, competition.CompletionReason)

	participant := env.fx.ReloadParticipant(p.ID)
	require.NotNil(t, participant.CurrentRoundID)
	assert.Equal(t, r.ID, *participant.CurrentRoundID, "Следующего раунда нет, текущий раунд не меняется")

	var total int64
	require.NoError(t, env.db.Model(&entity.RoundEntry{}).Count(&total).Error)
	assert.Equal(t, int64(1), total, "Для последнего раунда записи следующего раунда не создаются")
}

func TestSweep_NoParticipantsFinalizesCompetition(t *testing.T) {
	env := newTestEnv(t)
	c := env.fx.Competition("Empty")
	first := env.fx.Round(c.ID, "Round 1", hoursAgo(48), hoursAgo(2), 0)
	env.fx.Round(c.ID, "Round 2", hoursAgo(1), hoursAhead(24), 0)

	report, err := env.processor.Sweep(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	item := report.Items[0]
	assert.Equal(t, c.ID, item.CompetitionID)
	assert.Equal(t, first.ID, item.RoundID)
	require.NotNil(t, item.CompletionReason)
	assert.Equal(t, "No one joined this competition, that's why it ended.", *item.CompletionReason)

	competition := env.fx.ReloadCompetition(c.ID)
	assert.False(t, competition.IsActive)
	require.NotNil(t, competition.CompletionReason)
	assert.Equal(t, "No one joined this competition, that's why it ended.", *competition.CompletionReason)
	assert.NotNil(t, competition.CompletedAt)
	assert.Equal(t, 1, env.events.count(EventCompetitionFinished))
}

func TestSweep_FirstRoundNotEndedWithoutParticipantsIsLeftAlone(t *testing.T) {
	env := newTestEnv(t)
	c := env.fx.Competition("Upcoming")
	env.fx.Round(c.ID, "Round 1", hoursAgo(1), hoursAhead(24), 0)

	report, err := env.processor.Sweep(context.Background())

	require.NoError(t, err)
	assert.Empty(t, report.Items)
	assert.True(t, env.fx.ReloadCompetition(c.ID).IsActive)
}

func TestSweep_MixedResultsAdvanceAndHide(t *testing.T) {
	// Arrange: порог 5, лайки [10, 3, 5]
	env := newTestEnv(t)
	c := env.fx.Competition("Mixed")
	r1 := env.fx.Round(c.ID, "Round 1", hoursAgo(72), hoursAgo(24), 5)
	r2 := env.fx.Round(c.ID, "Round 2", hoursAgo(23), hoursAhead(24), 0)
	r3 := env.fx.Round(c.ID, "Round 3", hoursAhead(25), hoursAhead(48), 0)

	pA, eA := env.fx.Submission("user-a", c.ID, r1.ID, 10)
	pB, eB := env.fx.Submission("user-b", c.ID, r1.ID, 3)
	pC, eC := env.fx.Submission("user-c", c.ID, r1.ID, 5)

	// Проигравший заранее отправил работу в раунд 2 и имеет заготовку в раунде 3
	earlyPost := env.fx.PostWithLikes("user-b", 0)
	laterB := env.fx.Entry(pB.ID, r2.ID, &earlyPost.ID)
	placeholderB := env.fx.Entry(pB.ID, r3.ID, nil)

	// Act
	report, err := env.processor.Sweep(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, r1.ID, report.Items[0].RoundID)
	assert.Equal(t, "Processed 3 entries: 2 qualified, 1 disqualified", report.Items[0].Result)

	assert.Equal(t, entity.QualificationQualified, env.fx.ReloadEntry(eA.ID).Qualification)
	assert.Equal(t, entity.QualificationDisqualified, env.fx.ReloadEntry(eB.ID).Qualification)
	assert.Equal(t, entity.QualificationQualified, env.fx.ReloadEntry(eC.ID).Qualification, "Ровно на пороге проходит")

	for _, p := range []*entity.Participant{pA, pC} {
		next := env.fx.EntriesFor(p.ID, r2.ID)
		require.Len(t, next, 1, "У каждого прошедшего ровно одна запись следующего раунда")
		assert.Nil(t, next[0].PostID)
		assert.True(t, next[0].VisibleInNormalFeed)
		assert.True(t, next[0].VisibleInCompetitionFeed)
		assert.Equal(t, entity.QualificationUnprocessed, next[0].Qualification)

		reloaded := env.fx.ReloadParticipant(p.ID)
		require.NotNil(t, reloaded.CurrentRoundID)
		assert.Equal(t, r2.ID, *reloaded.CurrentRoundID)
	}

	hiddenLater := env.fx.ReloadEntry(laterB.ID)
	assert.False(t, hiddenLater.VisibleInCompetitionFeed, "Будущие записи выбывшего скрыты из ленты конкурса")
	assert.True(t, hiddenLater.VisibleInNormalFeed, "Обычная лента не зависит от квалификации")
	assert.False(t, env.fx.ReloadEntry(placeholderB.ID).VisibleInCompetitionFeed)

	disqualified := env.fx.ReloadEntry(eB.ID)
	assert.True(t, disqualified.VisibleInCompetitionFeed, "Сама оцененная запись остается видимой")
	assert.True(t, disqualified.VisibleInNormalFeed)

	reloadedB := env.fx.ReloadParticipant(pB.ID)
	assert.Equal(t, r1.ID, *reloadedB.CurrentRoundID, "Выбывший участник не продвигается")

	assert.True(t, env.fx.ReloadCompetition(c.ID).IsActive)
	assert.Equal(t, 1, env.events.count(EventRoundProcessed))
	assert.Contains(t, env.invalidator.ids, c.ID)
}

func TestSweep_AllFailNotLastRoundFinalizes(t *testing.T) {
	env := newTestEnv(t)
	c := env.fx.Competition("Tough")
	r1 := env.fx.Round(c.ID, "Round 1", hoursAgo(72), hoursAgo(48), 0)
	r2 := env.fx.Round(c.ID, "Semi-final", hoursAgo(47), hoursAgo(2), 100)
	env.fx.Round(c.ID, "Final", hoursAgo(1), hoursAhead(24), 0)

	p1, _ := env.fx.Submission("user-1", c.ID, r1.ID, 5)
	p2, _ := env.fx.Submission("user-2", c.ID, r1.ID, 7)
	post1 := env.fx.PostWithLikes("user-1", 3)
	post2 := env.fx.PostWithLikes("user-2", 4)
	env.fx.Entry(p1.ID, r2.ID, &post1.ID)
	env.fx.Entry(p2.ID, r2.ID, &post2.ID)

	report, err := env.processor.Sweep(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Items, 2, "Раунд 1 и полуфинал обрабатываются в одном прогоне по порядку")
	assert.Equal(t, r1.ID, report.Items[0].RoundID)
	assert.Nil(t, report.Items[0].CompletionReason)
	assert.Equal(t, r2.ID, report.Items[1].RoundID)
	require.NotNil(t, report.Items[1].CompletionReason)
	assert.Equal(t, "No participants qualified from Semi-final. No winner declared.", *report.Items[1].CompletionReason)

	competition := env.fx.ReloadCompetition(c.ID)
	assert.False(t, competition.IsActive)
	require.NotNil(t, competition.CompletionReason)
	assert.Equal(t, "No participants qualified from Semi-final. No winner declared.", *competition.CompletionReason)
}

func TestSweep_AllFailFirstRoundUsesFirstRoundMessage(t *testing.T) {
	env := newTestEnv(t)
	c := env.fx.Competition("Tough start")
	r1 := env.fx.Round(c.ID, "Round 1", hoursAgo(72), hoursAgo(48), 10)
	env.fx.Round(c.ID, "Round 2", hoursAgo(47), hoursAhead(24), 0)
	env.fx.Submission("user-1", c.ID, r1.ID, 2)

	report, err := env.processor.Sweep(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	require.NotNil(t, report.Items[0].CompletionReason)
	assert.Equal(t,
		"No participants met the minimum requirements to pass the first round. No winner declared.",
		*report.Items[0].CompletionReason)
}

func TestSweep_NoSubmissions(t *testing.T) {
	t.Run("первый раунд", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.fx.Competition("Silent")
		r1 := env.fx.Round(c.ID, "Round 1", hoursAgo(72), hoursAgo(48), 0)
		env.fx.Round(c.ID, "Round 2", hoursAgo(47), hoursAhead(24), 0)
		p := env.fx.Participant("user-1", c.ID, &r1.ID)
		env.fx.Entry(p.ID, r1.ID, nil)

		report, err := env.processor.Sweep(context.Background())

		require.NoError(t, err)
		require.Len(t, report.Items, 1)
		require.NotNil(t, report.Items[0].CompletionReason)
		assert.Equal(t,
			"No participants submitted posts for the competition. No winner declared.",
			*report.Items[0].CompletionReason)
		assert.False(t, env.fx.ReloadCompetition(c.ID).IsActive)
	})

	t.Run("следующий раунд", func(t *testing.T) {
		env := newTestEnv(t)
		c := env.fx.Competition("Fading")
		r1 := env.fx.Round(c.ID, "Round 1", hoursAgo(72), hoursAgo(48), 0)
		env.fx.Round(c.ID, "Round 2", hoursAgo(47), hoursAgo(1), 0)
		env.fx.Submission("user-1", c.ID, r1.ID, 1)

		report, err := env.processor.Sweep(context.Background())

		require.NoError(t, err)
		require.Len(t, report.Items, 2)
		assert.Nil(t, report.Items[0].CompletionReason)
		require.NotNil(t, report.Items[1].CompletionReason)
		assert.Equal(t, "No participants available in Round 2. No winner declared.", *report.Items[1].CompletionReason)
	})
}

// ============================================================================
// Свойства
// ============================================================================

func TestSweep_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	c := env.fx.Competition("Twice")
	r1 := env.fx.Round(c.ID, "Round 1", hoursAgo(72), hoursAgo(24), 2)
	env.fx.Round(c.ID, "Round 2", hoursAgo(23), hoursAhead(24), 0)
	env.fx.Submission("user-1", c.ID, r1.ID, 5)
	env.fx.Submission("user-2", c.ID, r1.ID, 1)

	first, err := env.processor.Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Items, 1)

	second, err := env.processor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Items, "Повторный прогон без изменений ничего не обрабатывает")
	assert.NotNil(t, second.Items, "Пустой отчет сериализуется как [], а не null")

	var entries int64
	require.NoError(t, env.db.Model(&entity.RoundEntry{}).Count(&entries).Error)
	assert.Equal(t, int64(3), entries, "Повторный прогон не создает дублей")
	assert.Len(t, env.reports.reports, 2)
}

func TestSweep_FinalizedCompetitionIsNeverTouchedAgain(t *testing.T) {
	env := newTestEnv(t)
	c := env.fx.Competition("Done")
	r1 := env.fx.Round(c.ID, "Round 1", hoursAgo(72), hoursAgo(48), 50)
	env.fx.Round(c.ID, "Round 2", hoursAgo(47), hoursAgo(2), 0)
	env.fx.Submission("user-1", c.ID, r1.ID, 1)

	_, err := env.processor.Sweep(context.Background())
	require.NoError(t, err)
	before := env.fx.ReloadCompetition(c.ID)
	require.NotNil(t, before.CompletionReason)

	// Даже если кто-то вернет is_active, completion_reason остается терминальным маркером
	require.NoError(t, env.db.Model(&entity.Competition{}).Where("id = ?", c.ID).Update("is_active", true).Error)

	report, err := env.processor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Items)

	after := env.fx.ReloadCompetition(c.ID)
	assert.Equal(t, *before.CompletionReason, *after.CompletionReason)
	assert.Equal(t, before.CompletedAt.Unix(), after.CompletedAt.Unix())
}

func TestSweep_EarlySubmissionIsNotClobbered(t *testing.T) {
	env := newTestEnv(t)
	c := env.fx.Competition("Early bird")
	r1 := env.fx.Round(c.ID, "Round 1", hoursAgo(72), hoursAgo(24), 0)
	r2 := env.fx.Round(c.ID, "Round 2", hoursAgo(23), hoursAhead(24), 0)
	p, _ := env.fx.Submission("user-1", c.ID, r1.ID, 1)
	early := env.fx.PostWithLikes("user-1", 0)
	existing := env.fx.Entry(p.ID, r2.ID, &early.ID)

	_, err := env.processor.Sweep(context.Background())
	require.NoError(t, err)

	next := env.fx.EntriesFor(p.ID, r2.ID)
	require.Len(t, next, 1)
	assert.Equal(t, existing.ID, next[0].ID)
	require.NotNil(t, next[0].PostID)
	assert.Equal(t, early.ID, *next[0].PostID, "post_id ранней работы сохраняется")
	assert.Equal(t, r2.ID, *env.fx.ReloadParticipant(p.ID).CurrentRoundID)
}

func TestSweep_EntriesWithoutPostAreIgnored(t *testing.T) {
	env := newTestEnv(t)
	c := env.fx.Competition("Partial")
	r1 := env.fx.Round(c.ID, "Round 1", hoursAgo(72), hoursAgo(24), 0)
	env.fx.Round(c.ID, "Round 2", hoursAgo(23), hoursAhead(24), 0)
	env.fx.Submission("user-1", c.ID, r1.ID, 0)
	idle := env.fx.Participant("user-2", c.ID, &r1.ID)
	empty := env.fx.Entry(idle.ID, r1.ID, nil)

	report, err := env.processor.Sweep(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "Processed 1 entries: 1 qualified, 0 disqualified", report.Items[0].Result)
	assert.Equal(t, entity.QualificationUnprocessed, env.fx.ReloadEntry(empty.ID).Qualification)
}

func TestSweep_EliminatedParticipantLaterEntryIsNotEvaluated(t *testing.T) {
	env := newTestEnv(t)
	c := env.fx.Competition("Cascade")
	r1 := env.fx.Round(c.ID, "Round 1", hoursAgo(96), hoursAgo(72), 5)
	r2 := env.fx.Round(c.ID, "Round 2", hoursAgo(71), hoursAgo(2), 0)
	env.fx.Round(c.ID, "Round 3", hoursAgo(1), hoursAhead(24), 0)

	winner, _ := env.fx.Submission("user-w", c.ID, r1.ID, 9)
	loser, _ := env.fx.Submission("user-l", c.ID, r1.ID, 1)
	winnerPost := env.fx.PostWithLikes("user-w", 1)
	loserPost := env.fx.PostWithLikes("user-l", 50)
	env.fx.Entry(winner.ID, r2.ID, &winnerPost.ID)
	loserLater := env.fx.Entry(loser.ID, r2.ID, &loserPost.ID)

	report, err := env.processor.Sweep(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Items, 2)
	assert.Equal(t, "Processed 1 entries: 1 qualified, 0 disqualified", report.Items[1].Result)

	reloaded := env.fx.ReloadEntry(loserLater.ID)
	assert.Equal(t, entity.QualificationUnprocessed, reloaded.Qualification, "Работа выбывшего не оценивается")
	assert.False(t, reloaded.VisibleInCompetitionFeed)
	assert.True(t, reloaded.VisibleInNormalFeed)

	again, err := env.processor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again.Items, "Повторный прогон не возвращается к скрытой работе")
	assert.Equal(t, entity.QualificationUnprocessed, env.fx.ReloadEntry(loserLater.ID).Qualification,
		"Скрытая работа навсегда остается необработанной")
}

// panickingParticipants паникует при подсчете участников одного конкурса
type panickingParticipants struct {
	repository.ParticipantRepository
	competitionID string
}

func (p *panickingParticipants) CountByCompetition(ctx context.Context, competitionID string) (int64, error) {
	if competitionID == p.competitionID {
		panic("participants storage exploded")
	}
	return p.ParticipantRepository.CountByCompetition(ctx, competitionID)
}

func TestSweep_PanicInOneCompetitionDoesNotStopSweep(t *testing.T) {
	env := newTestEnv(t)
	broken := env.fx.Competition("Broken")
	env.fx.Round(broken.ID, "Round 1", hoursAgo(48), hoursAgo(1), 0)
	healthy := env.fx.Competition("Healthy")
	healthyRound := env.fx.Round(healthy.ID, "Round 1", hoursAgo(48), hoursAgo(1), 0)
	env.fx.Submission("user-1", healthy.ID, healthyRound.ID, 1)

	m, err := metrics.NewQualificationMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	processor := NewProcessor(&Config{Concurrency: 2}, &Dependencies{
		DB:              env.db,
		CompetitionRepo: postgres.NewCompetitionRepo(env.db),
		ParticipantRepo: &panickingParticipants{
			ParticipantRepository: postgres.NewParticipantRepo(env.db),
			competitionID:         broken.ID,
		},
		EntryRepo: postgres.NewRoundEntryRepo(env.db),
		Metrics:   m,
		Clock:     func() time.Time { return sweepNow },
	})

	var report *SweepReport
	require.NotPanics(t, func() {
		report, err = processor.Sweep(context.Background())
	}, "Паника в конкурсе не должна ронять прогон")

	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, healthy.ID, report.Items[0].CompetitionID)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.SweepErrorsTotal.WithLabelValues("competition")))
	assert.True(t, env.fx.ReloadCompetition(broken.ID).IsActive, "Сломанный конкурс не завершается")
}

func TestSweep_ProcessesCompetitionsIndependently(t *testing.T) {
	env := newTestEnv(t)
	var ids []string
	for i := 0; i < 5; i++ {
		c := env.fx.Competition("Parallel")
		r := env.fx.Round(c.ID, "Round 1", hoursAgo(48), hoursAgo(1), 0)
		env.fx.Submission("user-"+c.ID, c.ID, r.ID, 1)
		ids = append(ids, c.ID)
	}

	report, err := env.processor.Sweep(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Items, 5)
	got := make([]string, 0, len(report.Items))
	for _, item := range report.Items {
		got = append(got, item.CompetitionID)
	}
	assert.ElementsMatch(t, ids, got)
}

// ============================================================================
// Ручная обработка раунда
// ============================================================================

func TestProcessRound_Validation(t *testing.T) {
	env := newTestEnv(t)
	c := env.fx.Competition("Manual")
	ended := env.fx.Round(c.ID, "Round 1", hoursAgo(48), hoursAgo(1), 0)
	running := env.fx.Round(c.ID, "Round 2", hoursAgo(0), hoursAhead(24), 0)
	env.fx.Submission("user-1", c.ID, ended.ID, 1)

	_, err := env.processor.ProcessRound(context.Background(), c.ID, running.ID)
	assert.ErrorIs(t, err, repository.ErrRoundNotEnded)

	_, err = env.processor.ProcessRound(context.Background(), c.ID, "missing-round")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = env.processor.ProcessRound(context.Background(), "missing-competition", ended.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	outcome, err := env.processor.ProcessRound(context.Background(), c.ID, ended.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Qualified)
	assert.Equal(t, 1, outcome.Advanced)

	_, err = env.processor.ProcessRound(context.Background(), c.ID, ended.ID)
	assert.ErrorIs(t, err, repository.ErrRoundAlreadyProcessed)
}

func TestProcessRound_FinalizedCompetitionIsRejected(t *testing.T) {
	env := newTestEnv(t)
	c := env.fx.Competition("Closed")
	r := env.fx.Round(c.ID, "Round 1", hoursAgo(48), hoursAgo(1), 0)
	_, err := postgres.NewCompetitionRepo(env.db).Finalize(context.Background(), c.ID, "manual", sweepNow)
	require.NoError(t, err)

	_, err = env.processor.ProcessRound(context.Background(), c.ID, r.ID)

	assert.True(t, errors.Is(err, repository.ErrCompetitionFinalized))
}

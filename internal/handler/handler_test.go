package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibtrix/vibtrix-api/internal/domain/entity"
	"github.com/vibtrix/vibtrix-api/internal/domain/repository"
	"github.com/vibtrix/vibtrix-api/internal/handler/dto"
	"github.com/vibtrix/vibtrix-api/internal/middleware"
	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
	"github.com/vibtrix/vibtrix-api/internal/repository/postgres"
	"github.com/vibtrix/vibtrix-api/internal/service"
	"github.com/vibtrix/vibtrix-api/internal/service/qualification"
	"github.com/vibtrix/vibtrix-api/internal/testutil"
	"github.com/vibtrix/vibtrix-api/internal/websocket"
	"github.com/vibtrix/vibtrix-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSweeper struct {
	report *qualification.SweepReport
	err    error
}

func (f *fakeSweeper) Sweep(ctx context.Context) (*qualification.SweepReport, error) {
	return f.report, f.err
}

type fakeProcessor struct {
	outcome *qualification.RoundOutcome
	err     error
}

func (f *fakeProcessor) ProcessRound(ctx context.Context, competitionID, roundID string) (*qualification.RoundOutcome, error) {
	return f.outcome, f.err
}

type fakeReports struct {
	last *qualification.SweepReport
	runs []entity.SweepRun
}

func (f *fakeReports) LastReport(ctx context.Context) (*qualification.SweepReport, error) {
	if f.last == nil {
		return nil, apperrors.ErrNotFound
	}
	return f.last, nil
}

func (f *fakeReports) RecentRuns(ctx context.Context, limit int) ([]entity.SweepRun, error) {
	return f.runs, nil
}

type testEnv struct {
	router     *gin.Engine
	fx         *testutil.Fixtures
	jwt        *auth.JWTService
	sweeper    *fakeSweeper
	processor  *fakeProcessor
	reports    *fakeReports
	userToken  string
	adminToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	competitionRepo := postgres.NewCompetitionRepo(db)
	roundRepo := postgres.NewRoundRepo(db)
	participantRepo := postgres.NewParticipantRepo(db)
	entryRepo := postgres.NewRoundEntryRepo(db)
	postRepo := postgres.NewPostRepo(db)

	competitionService := service.NewCompetitionService(competitionRepo, roundRepo, db)
	participationService := service.NewParticipationService(competitionRepo, participantRepo, entryRepo, postRepo, db)
	postService := service.NewPostService(postRepo)
	feedService := service.NewFeedService(competitionRepo, entryRepo, nil, 0)

	jwtService, err := auth.NewJWTService("handler-test-secret-0123456789abcdef", 1, 30)
	require.NoError(t, err)

	hub := websocket.NewHub()
	t.Cleanup(hub.Close)
	manager := websocket.NewManager(hub, competitionService.ValidateSubscription)

	env := &testEnv{
		fx:        testutil.NewFixtures(t, db),
		jwt:       jwtService,
		sweeper:   &fakeSweeper{},
		processor: &fakeProcessor{},
		reports:   &fakeReports{},
	}

	routes := &Routes{
		Competition:   NewCompetitionHandler(competitionService, env.processor),
		Participation: NewParticipationHandler(participationService),
		Post:          NewPostHandler(postService),
		Feed:          NewFeedHandler(feedService),
		Cron:          NewCronHandler(env.sweeper, env.reports),
		WS:            NewWSHandler(hub, manager, jwtService, competitionService.ValidateSubscription, nil),
		Auth:          middleware.NewAuthMiddleware(jwtService),
		CronSecret:    "cron-secret",
	}
	env.router = gin.New()
	routes.Register(env.router)

	env.userToken, err = jwtService.GenerateToken("user-1", auth.RoleUser)
	require.NoError(t, err)
	env.adminToken, err = jwtService.GenerateToken("admin-1", auth.RoleAdmin)
	require.NoError(t, err)
	return env
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "", nil).Code)
}

func TestCompetitionHandler_AdminFlow(t *testing.T) {
	env := newTestEnv(t)

	req := dto.CreateCompetitionRequest{Title: "Summer Dance"}
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/api/admin/competitions", "", req).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/api/admin/competitions", env.userToken, req).Code,
		"создавать конкурсы может только администратор")

	w := env.do(http.MethodPost, "/api/admin/competitions", env.adminToken, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created dto.CompetitionResponse
	decode(t, w, &created)
	assert.Equal(t, "Summer Dance", created.Title)
	assert.True(t, created.IsActive)
	assert.Empty(t, created.Rounds)

	now := time.Now().UTC()
	roundPath := "/api/admin/competitions/" + created.ID + "/rounds"
	first := dto.CreateRoundRequest{Name: "Round 1", StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)}
	w = env.do(http.MethodPost, roundPath, env.adminToken, first)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var round dto.RoundResponse
	decode(t, w, &round)
	assert.Equal(t, dto.RoundStatusOpen, round.Status)
	assert.Equal(t, 0, round.LikesToPass, "порог по умолчанию равен нулю")

	outOfOrder := dto.CreateRoundRequest{Name: "Round 0", StartDate: now.Add(-2 * time.Hour), EndDate: now.Add(time.Hour)}
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, roundPath, env.adminToken, outOfOrder).Code,
		"раунд не может начинаться раньше последнего")

	w = env.do(http.MethodGet, "/api/competitions/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched dto.CompetitionResponse
	decode(t, w, &fetched)
	require.Len(t, fetched.Rounds, 1)
	assert.Equal(t, round.ID, fetched.Rounds[0].ID)

	w = env.do(http.MethodGet, "/api/competitions?active=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page dto.PaginatedCompetitionResponse
	decode(t, w, &page)
	assert.Equal(t, int64(1), page.Total)
}

func TestCompetitionHandler_NotFoundAndBadID(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusNotFound,
		env.do(http.MethodGet, "/api/competitions/8c3f4f9e-2b7a-4c1e-9f55-0a1b2c3d4e5f", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/competitions/not-a-uuid", "", nil).Code)
}

func TestCompetitionHandler_ProcessRound(t *testing.T) {
	env := newTestEnv(t)
	competition := env.fx.Competition("Contest")
	now := time.Now()
	round := env.fx.Round(competition.ID, "Round 1", now.Add(-2*time.Hour), now.Add(-time.Hour), 1)
	path := "/api/admin/competitions/" + competition.ID + "/rounds/" + round.ID + "/process"

	env.processor.outcome = &qualification.RoundOutcome{
		CompetitionID: competition.ID,
		Round:         *round,
		Processed:     2,
		Qualified:     1,
		Disqualified:  1,
	}
	w := env.do(http.MethodPost, path, env.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, float64(2), body["processed"])

	env.processor.err = fmt.Errorf("process: %w", repository.ErrRoundAlreadyProcessed)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, path, env.adminToken, nil).Code)
}

func TestParticipationAndPostHandlers(t *testing.T) {
	env := newTestEnv(t)
	competition := env.fx.Competition("Contest")
	now := time.Now()
	round := env.fx.Round(competition.ID, "Round 1", now.Add(-time.Hour), now.Add(time.Hour), 1)
	base := "/api/competitions/" + competition.ID

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, base+"/join", "", nil).Code)

	w := env.do(http.MethodPost, base+"/join", env.userToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var participant dto.ParticipantResponse
	decode(t, w, &participant)
	require.NotNil(t, participant.CurrentRoundID)
	assert.Equal(t, round.ID, *participant.CurrentRoundID)

	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, base+"/join", env.userToken, nil).Code,
		"повторное вступление запрещено")

	w = env.do(http.MethodPost, "/api/posts", env.userToken, dto.CreatePostRequest{Content: "my dance"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post entity.Post
	decode(t, w, &post)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/posts", env.userToken, dto.CreatePostRequest{}).Code,
		"пустая публикация невалидна")

	entriesPath := base + "/rounds/" + round.ID + "/entries"
	w = env.do(http.MethodPost, entriesPath, env.userToken, dto.SubmitEntryRequest{PostID: post.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var entry dto.EntryResponse
	decode(t, w, &entry)
	assert.Equal(t, entity.QualificationUnprocessed, entry.Qualification)

	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, entriesPath, env.userToken, dto.SubmitEntryRequest{PostID: post.ID}).Code,
		"вторая работа в тот же раунд запрещена")

	otherToken, err := env.jwt.GenerateToken("user-2", auth.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, entriesPath, otherToken, dto.SubmitEntryRequest{PostID: post.ID}).Code,
		"нельзя отправить чужую публикацию")

	w = env.do(http.MethodPost, "/api/posts/"+post.ID+"/like", otherToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var like dto.LikeResponse
	decode(t, w, &like)
	assert.Equal(t, int64(1), like.LikeCount)

	w = env.do(http.MethodPost, "/api/posts/"+post.ID+"/like", otherToken, nil)
	decode(t, w, &like)
	assert.Equal(t, int64(1), like.LikeCount, "повторный лайк не учитывается")

	w = env.do(http.MethodDelete, "/api/posts/"+post.ID+"/like", otherToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &like)
	assert.Equal(t, int64(0), like.LikeCount)

	w = env.do(http.MethodGet, base+"/feed", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var feed service.FeedPage
	decode(t, w, &feed)
	assert.Equal(t, int64(1), feed.Total)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, post.ID, feed.Items[0].PostID)
}

func TestFeedHandler_ResultsAndExport(t *testing.T) {
	env := newTestEnv(t)
	competition := env.fx.Competition("Contest")
	now := time.Now()
	round := env.fx.Round(competition.ID, "Round 1", now.Add(-2*time.Hour), now.Add(-time.Hour), 2)
	env.fx.Submission("user-a", competition.ID, round.ID, 3)
	env.fx.Submission("user-b", competition.ID, round.ID, 1)

	base := "/api/competitions/" + competition.ID + "/rounds/" + round.ID + "/results"
	w := env.do(http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var results dto.RoundResultsResponse
	decode(t, w, &results)
	assert.Equal(t, dto.RoundStatusEnded, results.Round.Status)
	require.Len(t, results.Entries, 2)
	assert.Equal(t, int64(3), results.Entries[0].LikeCount, "результаты отсортированы по лайкам")

	w = env.do(http.MethodGet, base+"/export", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.Equal(t, 3, strings.Count(w.Body.String(), "\n"), "заголовок и две строки")

	w = env.do(http.MethodGet, base+"/export?format=xlsx", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx является zip-архивом")

	other := env.fx.Competition("Other")
	assert.Equal(t, http.StatusNotFound,
		env.do(http.MethodGet, "/api/competitions/"+other.ID+"/rounds/"+round.ID+"/results", "", nil).Code,
		"раунд другого конкурса не отдается")
}

func TestCronHandler(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/api/cron/process-rounds", "wrong", nil).Code)

	env.sweeper.report = &qualification.SweepReport{Items: []qualification.ReportItem{
		{CompetitionID: "c1", RoundID: "r1", Result: "Processed 2 entries: 1 qualified, 1 disqualified"},
	}}
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := env.do(method, "/api/cron/process-rounds", "cron-secret", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp dto.CronResponse
		decode(t, w, &resp)
		assert.Equal(t, dto.CronStatusSuccess, resp.Status)
		require.Len(t, resp.ProcessedCompetitions, 1)
		assert.Equal(t, "c1", resp.ProcessedCompetitions[0].CompetitionID)
	}

	env.sweeper.err = errors.New("database is down")
	w := env.do(http.MethodPost, "/api/cron/process-rounds", "cron-secret", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var failed dto.CronResponse
	decode(t, w, &failed)
	assert.Equal(t, dto.CronStatusError, failed.Status)
	assert.Equal(t, "database is down", failed.Error)
	assert.NotNil(t, failed.ProcessedCompetitions)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/cron/last-report", "cron-secret", nil).Code,
		"до первого прогона отчета нет")
	env.reports.last = env.sweeper.report
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/cron/last-report", "cron-secret", nil).Code)

	env.reports.runs = []entity.SweepRun{{ID: "run-1", ProcessedCount: 1, Items: []byte(`[{"competitionId":"c1"}]`)}}
	w = env.do(http.MethodGet, "/api/cron/runs?limit=500", "cron-secret", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var runs struct {
		Runs []dto.SweepRunResponse `json:"runs"`
	}
	decode(t, w, &runs)
	require.Len(t, runs.Runs, 1)
	require.Len(t, runs.Runs[0].Items, 1)
	assert.Equal(t, "c1", runs.Runs[0].Items[0].CompetitionID)
}

func TestWSHandler_Ticket(t *testing.T) {
	env := newTestEnv(t)
	competition := env.fx.Competition("Contest")

	w := env.do(http.MethodPost, "/api/ws/ticket", env.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	decode(t, w, &body)
	require.NotEmpty(t, body["ticket"])

	claims, err := env.jwt.ParseWSTicket(body["ticket"])
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/ws/competitions/"+competition.ID, "", nil).Code,
		"без тикета подключение запрещено")
	assert.Equal(t, http.StatusUnauthorized,
		env.do(http.MethodGet, "/ws/competitions/"+competition.ID+"?ticket="+env.userToken, "", nil).Code,
		"обычный токен не подходит как тикет")
	assert.Equal(t, http.StatusNotFound,
		env.do(http.MethodGet, "/ws/competitions/8c3f4f9e-2b7a-4c1e-9f55-0a1b2c3d4e5f?ticket="+body["ticket"], "", nil).Code)
}

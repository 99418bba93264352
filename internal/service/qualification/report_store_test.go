package qualification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vibtrix/vibtrix-api/internal/pkg/errors"
	"github.com/vibtrix/vibtrix-api/internal/repository/postgres"
	"github.com/vibtrix/vibtrix-api/internal/testutil"
)

func sampleReport() *SweepReport {
	reason := "No one joined this competition, that's why it ended."
	return &SweepReport{
		StartedAt:  sweepNow,
		FinishedAt: sweepNow.Add(time.Second),
		Items: []ReportItem{
			{CompetitionID: "c1", CompetitionTitle: "One", RoundID: "r1", RoundName: "Round 1", Result: "Competition finalized", CompletionReason: &reason},
			{CompetitionID: "c2", CompetitionTitle: "Two", RoundID: "r2", RoundName: "Round 1", Result: "Failed to process round", Error: "boom"},
		},
	}
}

func TestReportStore_SaveWritesCacheAndHistory(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	runs := postgres.NewSweepRunRepo(db)
	cache := new(testutil.MockCacheRepo)
	report := sampleReport()
	cache.On("SetJSON", mock.Anything, lastReportKey, report, 30*time.Minute).Return(nil).Once()

	store := NewReportStore(cache, runs, 30*time.Minute)
	require.NoError(t, store.SaveReport(context.Background(), report))

	cache.AssertExpectations(t)
	history, err := store.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].ProcessedCount)
	assert.Equal(t, 1, history[0].ErrorCount)
}

func TestReportStore_CacheFailureStillStoresHistory(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	cache := new(testutil.MockCacheRepo)
	cache.On("SetJSON", mock.Anything, lastReportKey, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	store := NewReportStore(cache, postgres.NewSweepRunRepo(db), time.Minute)
	err := store.SaveReport(context.Background(), sampleReport())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
	history, err := store.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, history, 1, "История в БД пишется независимо от Redis")
}

func TestReportStore_LastReportFallsBackToHistory(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	cache := new(testutil.MockCacheRepo)
	cache.On("SetJSON", mock.Anything, lastReportKey, mock.Anything, mock.Anything).Return(nil)
	cache.On("GetJSON", mock.Anything, lastReportKey, mock.Anything).Return(apperrors.ErrNotFound)

	store := NewReportStore(cache, postgres.NewSweepRunRepo(db), time.Minute)
	require.NoError(t, store.SaveReport(context.Background(), sampleReport()))

	last, err := store.LastReport(context.Background())

	require.NoError(t, err)
	require.Len(t, last.Items, 2)
	assert.Equal(t, "c1", last.Items[0].CompetitionID)
	require.NotNil(t, last.Items[0].CompletionReason)
	assert.Equal(t, "boom", last.Items[1].Error)
}

func TestReportStore_LastReportEmpty(t *testing.T) {
	store := NewReportStore(nil, postgres.NewSweepRunRepo(testutil.NewSQLiteDB(t)), time.Minute)

	_, err := store.LastReport(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

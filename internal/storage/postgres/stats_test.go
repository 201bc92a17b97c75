package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/drawguess/internal/stats"
	"github.com/cory-johannsen/drawguess/internal/storage/postgres"
	"github.com/cory-johannsen/drawguess/internal/testutil"
)

func setupStatsRepo(t *testing.T) (*postgres.StatsRepository, *testutil.PostgresContainer) {
	t.Helper()
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return postgres.NewStatsRepository(pc.RawPool), pc
}

func TestStatsRepository_EmptyTable(t *testing.T) {
	repo, _ := setupStatsRepo(t)
	records, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestStatsRepository_SaveReplacesSet(t *testing.T) {
	repo, pc := setupStatsRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, []stats.Record{
		{Nickname: "Bob", TotalScore: 10, GamesPlayed: 1},
		{Nickname: "Anna", TotalScore: 0, GamesPlayed: 1},
	}))
	require.NoError(t, repo.Save(ctx, []stats.Record{
		{Nickname: "Anna", TotalScore: 20, GamesPlayed: 2},
	}))

	records, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []stats.Record{{Nickname: "Anna", TotalScore: 20, GamesPlayed: 2}}, records)

	require.NoError(t, pc.Pool.Health(ctx, time.Second))
}

func TestStatsRepository_DuplicateNicknamesCollapse(t *testing.T) {
	repo, _ := setupStatsRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, []stats.Record{
		{Nickname: "Anna", TotalScore: 10, GamesPlayed: 1},
		{Nickname: "Anna", TotalScore: 30, GamesPlayed: 3},
	}))
	records, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []stats.Record{{Nickname: "Anna", TotalScore: 30, GamesPlayed: 3}}, records)
}

func TestStatsRepository_ThroughStore(t *testing.T) {
	repo, _ := setupStatsRepo(t)
	ctx := context.Background()
	store := stats.NewStore(repo, zaptest.NewLogger(t))

	store.RecordRound(ctx, []stats.PlayerScore{{Nickname: "Anna", Score: 0}, {Nickname: "Bob", Score: 10}})
	store.RecordRound(ctx, []stats.PlayerScore{{Nickname: "Bob", Score: 20}})

	assert.Equal(t, []stats.Record{
		{Nickname: "Anna", TotalScore: 0, GamesPlayed: 1},
		{Nickname: "Bob", TotalScore: 20, GamesPlayed: 2},
	}, store.Load(ctx))
}

func TestStatsRepository_LoadWithoutTable(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	_, err := postgres.NewStatsRepository(pc.RawPool).Load(context.Background())
	assert.Error(t, err)
}

func TestPool_SessionSettingsAndStats(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	ctx := context.Background()

	var appName string
	require.NoError(t, pc.RawPool.QueryRow(ctx, `SELECT current_setting('application_name')`).Scan(&appName))
	assert.Equal(t, "drawguess_test", appName)

	require.NoError(t, pc.Pool.Health(ctx, 5*time.Second))
	repo := pc.Pool.Stats()
	require.NoError(t, repo.Save(ctx, []stats.Record{{Nickname: "Anna", GamesPlayed: 1}}))
	records, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []stats.Record{{Nickname: "Anna", GamesPlayed: 1}}, records)
}

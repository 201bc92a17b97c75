package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/drawguess/internal/config"
	"github.com/cory-johannsen/drawguess/internal/stats"
)

const testKey = "drawguess:stats"

type StatsStoreSuite struct {
	suite.Suite
	mini  *miniredis.Miniredis
	store *StatsStore
	ctx   context.Context
}

func TestStatsStoreSuite(t *testing.T) {
	suite.Run(t, new(StatsStoreSuite))
}

func (s *StatsStoreSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	s.store = NewWithClient(client, testKey)
	s.ctx = context.Background()
}

func (s *StatsStoreSuite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func (s *StatsStoreSuite) TestLoadMissingHash() {
	records, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.NotNil(records)
	s.Empty(records)
}

func (s *StatsStoreSuite) TestSaveAndLoadSorted() {
	err := s.store.Save(s.ctx, []stats.Record{
		{Nickname: "Bob", TotalScore: 10, GamesPlayed: 1},
		{Nickname: "Anna", TotalScore: 0, GamesPlayed: 1},
	})
	s.Require().NoError(err)

	records, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal([]stats.Record{
		{Nickname: "Anna", TotalScore: 0, GamesPlayed: 1},
		{Nickname: "Bob", TotalScore: 10, GamesPlayed: 1},
	}, records)

	raw := s.mini.HGet(testKey, "Bob")
	s.JSONEq(`{"nickname":"Bob","totalScore":10,"gamesPlayed":1}`, raw)
}

func (s *StatsStoreSuite) TestSaveReplacesHash() {
	s.Require().NoError(s.store.Save(s.ctx, []stats.Record{{Nickname: "Anna"}, {Nickname: "Bob"}}))
	s.Require().NoError(s.store.Save(s.ctx, []stats.Record{{Nickname: "Carl", TotalScore: 10, GamesPlayed: 3}}))

	keys, err := s.mini.HKeys(testKey)
	s.Require().NoError(err)
	s.Equal([]string{"Carl"}, keys)
}

func (s *StatsStoreSuite) TestSaveEmptyDeletesHash() {
	s.Require().NoError(s.store.Save(s.ctx, []stats.Record{{Nickname: "Anna"}}))
	s.Require().NoError(s.store.Save(s.ctx, nil))
	s.False(s.mini.Exists(testKey))
}

func (s *StatsStoreSuite) TestLoadCorruptValue() {
	s.mini.HSet(testKey, "Anna", "{broken")
	_, err := s.store.Load(s.ctx)
	s.Error(err)
}

func (s *StatsStoreSuite) TestLoadNicknameMismatch() {
	s.mini.HSet(testKey, "Anna", `{"nickname":"Bob","totalScore":10,"gamesPlayed":1}`)
	_, err := s.store.Load(s.ctx)
	s.Require().Error(err)
	s.Contains(err.Error(), `"Anna"`)
	s.Contains(err.Error(), `"Bob"`)
}

func (s *StatsStoreSuite) TestLoadServerDown() {
	s.mini.Close()
	_, err := s.store.Load(s.ctx)
	s.Error(err)
}

func (s *StatsStoreSuite) TestRecordRoundThroughStore() {
	st := stats.NewStore(s.store, zaptest.NewLogger(s.T()))
	st.RecordRound(s.ctx, []stats.PlayerScore{{Nickname: "Anna", Score: 0}, {Nickname: "Bob", Score: 10}})
	st.RecordRound(s.ctx, []stats.PlayerScore{{Nickname: "Anna", Score: 10}, {Nickname: "Bob", Score: 10}})

	s.Equal([]stats.Record{
		{Nickname: "Anna", TotalScore: 10, GamesPlayed: 2},
		{Nickname: "Bob", TotalScore: 10, GamesPlayed: 2},
	}, st.Load(s.ctx))
}

func TestNew_ConnectsByURL(t *testing.T) {
	mini := miniredis.RunT(t)
	store, err := New(context.Background(), config.RedisConfig{URL: "redis://" + mini.Addr() + "/0", Key: testKey})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	if err := store.Save(context.Background(), []stats.Record{{Nickname: "Anna", TotalScore: 10, GamesPlayed: 1}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := mini.HGet(testKey, "Anna"); got == "" {
		t.Fatal("expected Anna field in hash")
	}
}

func TestNew_BadURL(t *testing.T) {
	if _, err := New(context.Background(), config.RedisConfig{URL: "http://nope", Key: testKey}); err == nil {
		t.Fatal("expected error for non-redis url")
	}
}

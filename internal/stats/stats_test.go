package stats

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"
)

// memBackend is an in-memory Backend with injectable failures.
type memBackend struct {
	mu      sync.Mutex
	records []Record
	loadErr error
	saveErr error
	saves   int
}

func (m *memBackend) Load(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memBackend) Save(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append([]Record(nil), records...)
	return nil
}

func TestStore_LoadFailureYieldsEmpty(t *testing.T) {
	s := NewStore(&memBackend{loadErr: errors.New("disk on fire")}, zaptest.NewLogger(t))
	got := s.Load(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_RecordRound_CreatesAndUpdates(t *testing.T) {
	b := &memBackend{records: []Record{{Nickname: "Anna", TotalScore: 30, GamesPlayed: 4}}}
	s := NewStore(b, zaptest.NewLogger(t))

	s.RecordRound(context.Background(), []PlayerScore{{"Anna", 0}, {"Bob", 10}})

	assert.Equal(t, []Record{
		{Nickname: "Anna", TotalScore: 0, GamesPlayed: 5},
		{Nickname: "Bob", TotalScore: 10, GamesPlayed: 1},
	}, b.records)
}

func TestStore_RecordRound_NoPlayersSkipsSave(t *testing.T) {
	b := &memBackend{}
	NewStore(b, zaptest.NewLogger(t)).RecordRound(context.Background(), nil)
	assert.Zero(t, b.saves)
}

func TestStore_RecordRound_LoadFailureStillSaves(t *testing.T) {
	b := &memBackend{loadErr: errors.New("corrupt")}
	NewStore(b, zaptest.NewLogger(t)).RecordRound(context.Background(), []PlayerScore{{"Anna", 10}})
	assert.Equal(t, 1, b.saves)
	assert.Equal(t, []Record{{Nickname: "Anna", TotalScore: 10, GamesPlayed: 1}}, b.records)
}

func TestStore_SaveFailureIsReturned(t *testing.T) {
	boom := errors.New("read-only")
	s := NewStore(&memBackend{saveErr: boom}, zaptest.NewLogger(t))
	err := s.Save(context.Background(), []Record{{Nickname: "Anna"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// RecordRound swallows the error.
	s.RecordRound(context.Background(), []PlayerScore{{"Anna", 10}})
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	in := []Record{{Nickname: "Anna", TotalScore: 5, GamesPlayed: 1}}
	out := Merge(in, []PlayerScore{{"Anna", 20}})
	assert.Equal(t, 5, in[0].TotalScore)
	assert.Equal(t, 20, out[0].TotalScore)
	assert.Equal(t, 2, out[0].GamesPlayed)
}

// Property: Merge increments gamesPlayed by exactly one per distinct player
// and leaves other records untouched.
func TestPropertyMergeIncrementsOnce(t *testing.T) {
	nick := rapid.StringMatching(`[A-Za-z]{1,6}`)
	rapid.Check(t, func(t *rapid.T) {
		existing := rapid.SliceOfNDistinct(nick, 0, 5, func(s string) string { return s }).Draw(t, "existing")
		records := make([]Record, len(existing))
		for i, n := range existing {
			records[i] = Record{Nickname: n, GamesPlayed: rapid.IntRange(0, 50).Draw(t, "games")}
		}
		names := rapid.SliceOfNDistinct(nick, 1, 2, func(s string) string { return s }).Draw(t, "players")
		players := make([]PlayerScore, len(names))
		for i, n := range names {
			players[i] = PlayerScore{Nickname: n, Score: rapid.IntRange(0, 100).Draw(t, "score")}
		}

		out := Merge(records, players)

		before := map[string]int{}
		for _, r := range records {
			before[r.Nickname] = r.GamesPlayed
		}
		playing := map[string]int{}
		for _, p := range players {
			playing[p.Nickname] = p.Score
		}
		for _, r := range out {
			if score, ok := playing[r.Nickname]; ok {
				assert.Equal(t, before[r.Nickname]+1, r.GamesPlayed)
				assert.Equal(t, score, r.TotalScore)
			} else {
				assert.Equal(t, before[r.Nickname], r.GamesPlayed)
			}
		}
	})
}

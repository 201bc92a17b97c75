package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/drawguess/internal/stats"
)

func TestLoad_MissingFile(t *testing.T) {
	b := New(filepath.Join(t.TempDir(), "game_stats.json"))
	records, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestLoad_BlankFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game_stats.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0644))
	records, err := New(path).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game_stats.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := New(path).Load(context.Background())
	assert.Error(t, err)
}

func TestLoad_OriginalDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game_stats.json")
	doc := `[
  {
    "nickname": "Anna",
    "totalScore": 20,
    "gamesPlayed": 3
  }
]`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	records, err := New(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []stats.Record{{Nickname: "Anna", TotalScore: 20, GamesPlayed: 3}}, records)
}

func TestSave_WritesIndentedArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game_stats.json")
	b := New(path)
	require.NoError(t, b.Save(context.Background(), []stats.Record{{Nickname: "Bob", TotalScore: 10, GamesPlayed: 1}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"nickname\": \"Bob\"")
	assert.Contains(t, string(data), "\"totalScore\": 10")
	assert.Contains(t, string(data), "\"gamesPlayed\": 1")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestSave_NilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game_stats.json")
	require.NoError(t, New(path).Save(context.Background(), nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestSave_MissingDirectory(t *testing.T) {
	b := New(filepath.Join(t.TempDir(), "nope", "game_stats.json"))
	assert.Error(t, b.Save(context.Background(), []stats.Record{{Nickname: "Anna"}}))
}

func TestStoreRecordRound_ThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game_stats.json")
	store := stats.NewStore(New(path), zaptest.NewLogger(t))
	ctx := context.Background()

	store.RecordRound(ctx, []stats.PlayerScore{{Nickname: "Anna", Score: 0}, {Nickname: "Bob", Score: 10}})
	store.RecordRound(ctx, []stats.PlayerScore{{Nickname: "Anna", Score: 10}, {Nickname: "Bob", Score: 10}})

	assert.Equal(t, []stats.Record{
		{Nickname: "Anna", TotalScore: 10, GamesPlayed: 2},
		{Nickname: "Bob", TotalScore: 10, GamesPlayed: 2},
	}, store.Load(ctx))
}

// Property: Save followed by Load returns the saved records.
func TestPropertySaveLoad(t *testing.T) {
	dir := t.TempDir()
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 5).Draw(t, "n")
		records := make([]stats.Record, n)
		for i := range records {
			records[i] = stats.Record{
				Nickname:    rapid.String().Draw(t, "nickname"),
				TotalScore:  rapid.IntRange(0, 1000).Draw(t, "score"),
				GamesPlayed: rapid.IntRange(0, 1000).Draw(t, "games"),
			}
		}
		b := New(filepath.Join(dir, "stats.json"))
		require.NoError(t, b.Save(context.Background(), records))
		got, err := b.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, records, got)
	})
}

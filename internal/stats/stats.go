// Package stats keeps cumulative per-nickname player statistics across
// sessions and process restarts.
package stats

import (
	"context"

	"go.uber.org/zap"
)

// Record is the persisted statistics for one nickname.
//
// The JSON names match the original game_stats.json document.
type Record struct {
	Nickname    string `json:"nickname"`
	TotalScore  int    `json:"totalScore"`
	GamesPlayed int    `json:"gamesPlayed"`
}

// PlayerScore is a live player's nickname and current session score.
type PlayerScore struct {
	Nickname string
	Score    int
}

// Backend loads and saves the full set of records.
//
// Implementations MUST treat Save as a replacement of the whole set.
type Backend interface {
	// Load returns every stored record. An absent store yields an empty slice.
	Load(ctx context.Context) ([]Record, error)
	// Save replaces the stored set with records.
	Save(ctx context.Context, records []Record) error
}

// Store wraps a Backend with best-effort semantics: failures are logged and
// never reach the game.
type Store struct {
	backend Backend
	logger  *zap.Logger
}

// NewStore creates a Store.
//
// Precondition: backend and logger must be non-nil.
func NewStore(backend Backend, logger *zap.Logger) *Store {
	return &Store{backend: backend, logger: logger}
}

// Load returns all records, or an empty slice if the backend fails.
//
// Postcondition: Never returns nil.
func (s *Store) Load(ctx context.Context) []Record {
	records, err := s.backend.Load(ctx)
	if err != nil {
		s.logger.Warn("loading stats failed, starting empty", zap.Error(err))
		return []Record{}
	}
	if records == nil {
		return []Record{}
	}
	return records
}

// Save persists records, logging any failure.
//
// Postcondition: Returns the backend error, already logged, for callers that care.
func (s *Store) Save(ctx context.Context, records []Record) error {
	if err := s.backend.Save(ctx, records); err != nil {
		s.logger.Error("saving stats failed", zap.Int("records", len(records)), zap.Error(err))
		return err
	}
	return nil
}

// RecordRound folds the players' current scores into the stored set: each
// nickname's totalScore is overwritten with its session score and its
// gamesPlayed is incremented. Unknown nicknames get a fresh record.
//
// Concurrent writers are last-writer-wins.
func (s *Store) RecordRound(ctx context.Context, players []PlayerScore) {
	if len(players) == 0 {
		return
	}
	records := Merge(s.Load(ctx), players)
	_ = s.Save(ctx, records)
	s.logger.Debug("stats recorded", zap.Int("players", len(players)), zap.Int("records", len(records)))
}

// Merge applies players to records and returns the updated set. Existing
// record order is preserved; new nicknames are appended in player order.
//
// Postcondition: len(result) >= len(records); each distinct player's
// gamesPlayed is one higher than before.
func Merge(records []Record, players []PlayerScore) []Record {
	out := make([]Record, len(records), len(records)+len(players))
	copy(out, records)

	index := make(map[string]int, len(out))
	for i, r := range out {
		if _, ok := index[r.Nickname]; !ok {
			index[r.Nickname] = i
		}
	}
	for _, p := range players {
		i, ok := index[p.Nickname]
		if !ok {
			out = append(out, Record{Nickname: p.Nickname})
			i = len(out) - 1
			index[p.Nickname] = i
		}
		out[i].TotalScore = p.Score
		out[i].GamesPlayed++
	}
	return out
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/drawguess/internal/stats"
)

// StatsRepository is a stats.Backend over the player_stats table.
type StatsRepository struct {
	db *pgxpool.Pool
}

// NewStatsRepository creates a StatsRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the
// player_stats migration applied.
func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// Load returns every row ordered by nickname.
//
// Postcondition: Returns a non-nil slice or a non-nil error.
func (r *StatsRepository) Load(ctx context.Context) ([]stats.Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT nickname, total_score, games_played FROM player_stats ORDER BY nickname`)
	if err != nil {
		return nil, fmt.Errorf("querying player stats: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (stats.Record, error) {
		var rec stats.Record
		err := row.Scan(&rec.Nickname, &rec.TotalScore, &rec.GamesPlayed)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning player stats: %w", err)
	}
	if records == nil {
		records = []stats.Record{}
	}
	return records, nil
}

// Save replaces the table contents with records in a single transaction.
//
// Postcondition: On success the table holds exactly one row per distinct
// nickname in records; on failure it is unchanged.
func (r *StatsRepository) Save(ctx context.Context, records []stats.Record) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning stats transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM player_stats`); err != nil {
		return fmt.Errorf("clearing player stats: %w", err)
	}

	if len(records) > 0 {
		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(
				`INSERT INTO player_stats (nickname, total_score, games_played, updated_at)
				 VALUES ($1, $2, $3, NOW())
				 ON CONFLICT (nickname) DO UPDATE
				 SET total_score = EXCLUDED.total_score,
				     games_played = EXCLUDED.games_played,
				     updated_at = NOW()`,
				rec.Nickname, rec.TotalScore, rec.GamesPlayed,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting player stats: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing player stats: %w", err)
	}
	return nil
}

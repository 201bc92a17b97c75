// Package redis stores player statistics in a single Redis hash keyed by nickname.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/drawguess/internal/config"
	"github.com/cory-johannsen/drawguess/internal/stats"
)

// StatsStore is a stats.Backend over one Redis hash. Each field is a
// nickname and each value the JSON-encoded stats.Record.
type StatsStore struct {
	client *redis.Client
	key    string
}

// New connects to the server named by cfg.URL and verifies it with a ping.
//
// Postcondition: Returns a connected StatsStore or a non-nil error.
func New(ctx context.Context, cfg config.RedisConfig) (*StatsStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return NewWithClient(client, cfg.Key), nil
}

// NewWithClient wraps an existing client.
//
// Precondition: client must be non-nil and key non-empty.
func NewWithClient(client *redis.Client, key string) *StatsStore {
	return &StatsStore{client: client, key: key}
}

// Close closes the Redis connection.
func (s *StatsStore) Close() error {
	return s.client.Close()
}

// Load returns every record sorted by nickname. A missing hash yields an
// empty slice. A value whose embedded nickname disagrees with its field is
// reported as a decode error.
func (s *StatsStore) Load(ctx context.Context) ([]stats.Record, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading stats hash %s: %w", s.key, err)
	}

	records := make([]stats.Record, 0, len(fields))
	for nickname, raw := range fields {
		var rec stats.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decoding stats for %q: %w", nickname, err)
		}
		if rec.Nickname != nickname {
			return nil, fmt.Errorf("decoding stats for %q: value names %q", nickname, rec.Nickname)
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Nickname < records[j].Nickname })
	return records, nil
}

// Save replaces the hash with records atomically via MULTI/EXEC.
//
// Postcondition: On success the hash holds one field per distinct nickname.
func (s *StatsStore) Save(ctx context.Context, records []stats.Record) error {
	values := make([]interface{}, 0, len(records)*2)
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding stats for %q: %w", rec.Nickname, err)
		}
		values = append(values, rec.Nickname, string(data))
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing stats hash %s: %w", s.key, err)
	}
	return nil
}

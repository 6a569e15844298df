package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	keyGames      = "stats:games"
	keyWins       = "stats:wins"
	keyDraws      = "stats:draws"
	keyAbandoned  = "stats:abandoned"
	keyPlayerWins = "stats:player_wins"
	keyRecent     = "stats:recent"

	recentLimit = 20
)

// GameResult is the record of one finished game, written once the session
// reaches a terminal state. Winner holds a username and is empty for draws
// and abandonments.
type GameResult struct {
	GameID     string    `json:"game_id"`
	Status     string    `json:"status"`
	Winner     string    `json:"winner,omitempty"`
	Players    [2]string `json:"players"`
	FinishedAt time.Time `json:"finished_at"`
}

// Stats aggregates every recorded result.
type Stats struct {
	Games     int64 `json:"games"`
	Wins      int64 `json:"wins"`
	Draws     int64 `json:"draws"`
	Abandoned int64 `json:"abandoned"`
}

type StatsRepository interface {
	RecordResult(ctx context.Context, result *GameResult) error
	Totals(ctx context.Context) (*Stats, error)
	PlayerWins(ctx context.Context, username string) (int64, error)
	Recent(ctx context.Context, limit int64) ([]GameResult, error)
}

type dbStats struct {
	client *redis.Client
}

func NewStatsRepository(client *redis.Client) StatsRepository {
	return &dbStats{
		client: client,
	}
}

func (that *dbStats) RecordResult(ctx context.Context, result *GameResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal result: %w", err)
	}

	if err = that.client.Incr(ctx, keyGames).Err(); err != nil {
		return fmt.Errorf("failed to count game: %w", err)
	}

	switch result.Status {
	case entity.StatusWon:
		if err = that.client.Incr(ctx, keyWins).Err(); err != nil {
			return fmt.Errorf("failed to count win: %w", err)
		}
		if err = that.client.HIncrBy(ctx, keyPlayerWins, result.Winner, 1).Err(); err != nil {
			return fmt.Errorf("failed to count player win: %w", err)
		}
	case entity.StatusDraw:
		if err = that.client.Incr(ctx, keyDraws).Err(); err != nil {
			return fmt.Errorf("failed to count draw: %w", err)
		}
	default:
		if err = that.client.Incr(ctx, keyAbandoned).Err(); err != nil {
			return fmt.Errorf("failed to count abandonment: %w", err)
		}
	}

	if err = that.client.LPush(ctx, keyRecent, resultJSON).Err(); err != nil {
		return fmt.Errorf("failed to push result: %w", err)
	}

	if err = that.client.LTrim(ctx, keyRecent, 0, recentLimit-1).Err(); err != nil {
		return fmt.Errorf("failed to trim results: %w", err)
	}

	return nil
}

func (that *dbStats) Totals(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	for _, item := range []struct {
		key  string
		into *int64
	}{
		{keyGames, &stats.Games},
		{keyWins, &stats.Wins},
		{keyDraws, &stats.Draws},
		{keyAbandoned, &stats.Abandoned},
	} {
		value, err := that.counter(ctx, item.key)
		if err != nil {
			return nil, err
		}
		*item.into = value
	}

	return stats, nil
}

func (that *dbStats) PlayerWins(ctx context.Context, username string) (int64, error) {
	wins, err := that.client.HGet(ctx, keyPlayerWins, username).Int64()

	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get player wins: %w", err)
	}

	return wins, nil
}

func (that *dbStats) Recent(ctx context.Context, limit int64) ([]GameResult, error) {
	if limit <= 0 || limit > recentLimit {
		limit = recentLimit
	}

	raw, err := that.client.LRange(ctx, keyRecent, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range results: %w", err)
	}

	results := make([]GameResult, 0, len(raw))
	for _, item := range raw {
		var result GameResult
		if err = json.Unmarshal([]byte(item), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		results = append(results, result)
	}

	return results, nil
}

func (that *dbStats) counter(ctx context.Context, key string) (int64, error) {
	value, err := that.client.Get(ctx, key).Int64()

	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get counter %s: %w", key, err)
	}

	return value, nil
}

package repository

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// memoryStats keeps the aggregates in process memory. It backs the server
// when no redis address is configured; the numbers vanish on restart, which
// is acceptable for a stats surface.
type memoryStats struct {
	mu         sync.RWMutex
	stats      Stats
	playerWins map[string]int64
	recent     []GameResult
}

func NewMemoryStatsRepository() StatsRepository {
	return &memoryStats{
		playerWins: make(map[string]int64),
	}
}

func (that *memoryStats) RecordResult(_ context.Context, result *GameResult) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.stats.Games++

	switch result.Status {
	case entity.StatusWon:
		that.stats.Wins++
		that.playerWins[result.Winner]++
	case entity.StatusDraw:
		that.stats.Draws++
	default:
		that.stats.Abandoned++
	}

	that.recent = append([]GameResult{*result}, that.recent...)
	if len(that.recent) > recentLimit {
		that.recent = that.recent[:recentLimit]
	}

	return nil
}

func (that *memoryStats) Totals(_ context.Context) (*Stats, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	stats := that.stats

	return &stats, nil
}

func (that *memoryStats) PlayerWins(_ context.Context, username string) (int64, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.playerWins[username], nil
}

func (that *memoryStats) Recent(_ context.Context, limit int64) ([]GameResult, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if limit <= 0 || limit > int64(len(that.recent)) {
		limit = int64(len(that.recent))
	}

	results := make([]GameResult, limit)
	copy(results, that.recent[:limit])

	return results, nil
}

// Package store persists the outcome of finished games.
//
// Only results are kept; a game in progress lives in memory with the
// session that owns it.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ssk4988/nim/internal/domain"
)

// ErrInvalidResult is returned for a result missing its game ID or winner.
var ErrInvalidResult = errors.New("invalid result")

// Result is one finished game.
type Result struct {
	GameID     string        `json:"gameId"`
	Kind       domain.Kind   `json:"kind"`
	Winner     domain.Player `json:"winner"`
	Moves      int           `json:"moves"`
	FinishedAt time.Time     `json:"finishedAt"`
}

// Stats aggregates results for one game kind.
type Stats struct {
	Kind         domain.Kind `json:"kind"`
	Games        int         `json:"games"`
	HumanWins    int         `json:"humanWins"`
	ComputerWins int         `json:"computerWins"`
}

// Store records finished games and answers aggregate queries.
// Implementations may be backed by memory (this package) or SQLite.
type Store interface {
	// RecordResult stores r. Recording the same GameID twice keeps the first.
	RecordResult(ctx context.Context, r Result) error

	// Stats aggregates every result of the given kind.
	Stats(ctx context.Context, kind domain.Kind) (Stats, error)

	// Recent returns up to limit results, newest first. limit is clamped
	// to [1, 100]; zero or negative selects 20.
	Recent(ctx context.Context, limit int) ([]Result, error)

	Close() error
}

func (r Result) validate() error {
	if r.GameID == "" || r.Winner == domain.Nobody {
		return ErrInvalidResult
	}
	return nil
}

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// clampLimit maps a caller's limit into [1, maxRecentLimit]; zero or
// negative means the default.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultRecentLimit
	case limit > maxRecentLimit:
		return maxRecentLimit
	}
	return limit
}

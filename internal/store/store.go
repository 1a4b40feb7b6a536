// Package store defines the persistence contract for player score records.
package store

import (
	"context"

	"github.com/score-tracker/internal/domain"
)

// Store persists one record per player.
//
// Implementations must enforce player name uniqueness themselves: Insert
// returns domain.ErrPlayerExists rather than relying on callers to check
// first. Top returns records ordered by score descending, ties broken by
// player name ascending.
type Store interface {
	FindByName(ctx context.Context, playerName string) (*domain.PlayerRecord, error)
	Insert(ctx context.Context, record *domain.PlayerRecord) error
	UpdateScore(ctx context.Context, playerName string, score int64, timeTaken float64) error
	Delete(ctx context.Context, playerName string) error
	Top(ctx context.Context, n int) ([]domain.PlayerRecord, error)

	Ping(ctx context.Context) error
	Close() error
}

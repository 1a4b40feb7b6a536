package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/score-tracker/internal/domain"
	"github.com/score-tracker/internal/store"
)

// Store is an in-memory implementation of the score store
type Store struct {
	mu      sync.RWMutex
	players map[string]domain.PlayerRecord
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		players: make(map[string]domain.PlayerRecord),
	}
}

// Ensure Store implements the interface
var _ store.Store = (*Store)(nil)

func (s *Store) FindByName(ctx context.Context, playerName string) (*domain.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.players[playerName]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return &record, nil
}

func (s *Store) Insert(ctx context.Context, record *domain.PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[record.PlayerName]; ok {
		return domain.ErrPlayerExists
	}

	now := time.Now()
	record.ID = uuid.New().String()
	record.CreatedAt = now
	record.UpdatedAt = now
	s.players[record.PlayerName] = *record
	return nil
}

func (s *Store) UpdateScore(ctx context.Context, playerName string, score int64, timeTaken float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.players[playerName]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	record.Score = score
	record.TimeTaken = timeTaken
	record.UpdatedAt = time.Now()
	s.players[playerName] = record
	return nil
}

func (s *Store) Delete(ctx context.Context, playerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[playerName]; !ok {
		return domain.ErrPlayerNotFound
	}
	delete(s.players, playerName)
	return nil
}

func (s *Store) Top(ctx context.Context, n int) ([]domain.PlayerRecord, error) {
	s.mu.RLock()
	records := make([]domain.PlayerRecord, 0, len(s.players))
	for _, record := range s.players {
		records = append(records, record)
	}
	s.mu.RUnlock()

	domain.SortRanking(records)
	if n >= 0 && len(records) > n {
		records = records[:n]
	}
	return records, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

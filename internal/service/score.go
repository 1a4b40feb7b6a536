package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/score-tracker/internal/auth"
	"github.com/score-tracker/internal/config"
	"github.com/score-tracker/internal/domain"
	"github.com/score-tracker/internal/store"
)

// Notifier receives score changes for live delivery
type Notifier interface {
	BroadcastPlayerUpdate(update domain.PlayerScore)
}

// ScoreService provides business logic for score and account operations
type ScoreService struct {
	store    store.Store
	hasher   *auth.Hasher
	config   *config.LeaderboardConfig
	notifier Notifier
	logger   *slog.Logger
}

// NewScoreService creates a new score service
func NewScoreService(
	store store.Store,
	hasher *auth.Hasher,
	cfg *config.LeaderboardConfig,
	logger *slog.Logger,
) *ScoreService {
	return &ScoreService{
		store:  store,
		hasher: hasher,
		config: cfg,
		logger: logger,
	}
}

// SetNotifier sets the receiver of player score updates
func (s *ScoreService) SetNotifier(n Notifier) {
	s.notifier = n
}

// GetScore returns a player's score and time taken
func (s *ScoreService) GetScore(ctx context.Context, playerName string) (*domain.PlayerScore, error) {
	record, err := s.store.FindByName(ctx, playerName)
	if err != nil {
		return nil, err
	}
	view := record.ScoreView()
	return &view, nil
}

// GetLeaderboard returns the top players, best first
func (s *ScoreService) GetLeaderboard(ctx context.Context) ([]domain.PlayerRecord, error) {
	records, err := s.store.Top(ctx, s.config.Limit)
	if err != nil {
		return nil, fmt.Errorf("getting leaderboard: %w", err)
	}
	return records, nil
}

// UpdateScore overwrites a player's score and time taken
func (s *ScoreService) UpdateScore(ctx context.Context, submission domain.ScoreSubmission) error {
	if err := s.store.UpdateScore(ctx, submission.PlayerName, submission.Score, submission.TimeTaken); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.BroadcastPlayerUpdate(domain.PlayerScore{
			PlayerName: submission.PlayerName,
			Score:      submission.Score,
			TimeTaken:  submission.TimeTaken,
		})
	}
	return nil
}

// UpdateScoreBatch applies multiple updates, skipping the ones that fail
func (s *ScoreService) UpdateScoreBatch(ctx context.Context, batch domain.BatchScoreSubmission) error {
	for _, submission := range batch.Scores {
		if err := s.UpdateScore(ctx, submission); err != nil {
			s.logger.Error("failed to update score in batch",
				"player_name", submission.PlayerName,
				"error", err,
			)
			// Continue processing other scores
		}
	}
	return nil
}

// Signup registers a new player
func (s *ScoreService) Signup(ctx context.Context, req domain.SignupRequest) error {
	if req.PlayerName == "" || req.Password == "" {
		return domain.ErrInvalidRequest
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return err
	}

	record := &domain.PlayerRecord{
		PlayerName:   req.PlayerName,
		PasswordHash: hash,
		Score:        req.Score,
		TimeTaken:    req.TimeTaken,
	}
	if err := s.store.Insert(ctx, record); err != nil {
		return err
	}

	s.logger.Info("player registered", "player_name", record.PlayerName, "id", record.ID)
	return nil
}

// Login checks a player's credentials
func (s *ScoreService) Login(ctx context.Context, req domain.LoginRequest) error {
	record, err := s.store.FindByName(ctx, req.PlayerName)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(record.PasswordHash, req.Password)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidPassword
	}
	return nil
}

// DeleteScore removes a player and their score
func (s *ScoreService) DeleteScore(ctx context.Context, playerName string) error {
	if err := s.store.Delete(ctx, playerName); err != nil {
		return err
	}
	s.logger.Info("player deleted", "player_name", playerName)
	return nil
}

// Ready reports whether the store is reachable
func (s *ScoreService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

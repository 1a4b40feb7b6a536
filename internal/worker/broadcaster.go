package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/score-tracker/internal/config"
	"github.com/score-tracker/internal/domain"
	"github.com/score-tracker/internal/websocket"
)

// LeaderboardSource supplies the current leaderboard
type LeaderboardSource interface {
	GetLeaderboard(ctx context.Context) ([]domain.PlayerRecord, error)
}

// LeaderboardPublisher delivers leaderboard snapshots to subscribers
type LeaderboardPublisher interface {
	BroadcastLeaderboardUpdate(entries []domain.PlayerRecord)
	GetSubscriberCount(topic string) int
}

// Broadcaster periodically pushes the leaderboard to websocket subscribers.
// A snapshot is sent when the ranking changed or new subscribers joined.
type Broadcaster struct {
	source    LeaderboardSource
	publisher LeaderboardPublisher
	config    *config.BroadcastConfig
	logger    *slog.Logger
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.Mutex
	running   bool

	last        []domain.PlayerRecord
	sent        bool
	subscribers int
}

// NewBroadcaster creates a new leaderboard broadcaster
func NewBroadcaster(
	source LeaderboardSource,
	publisher LeaderboardPublisher,
	cfg *config.BroadcastConfig,
	logger *slog.Logger,
) *Broadcaster {
	return &Broadcaster{
		source:    source,
		publisher: publisher,
		config:    cfg,
		logger:    logger,
	}
}

// Start begins the background broadcast loop
func (b *Broadcaster) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = true
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	stopCh, doneCh := b.stopCh, b.doneCh
	b.mu.Unlock()

	b.logger.Info("leaderboard broadcaster started", "interval", b.config.Interval)

	go b.run(ctx, stopCh, doneCh)
	return nil
}

// Stop stops the background broadcast loop
func (b *Broadcaster) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	stopCh, doneCh := b.stopCh, b.doneCh
	b.mu.Unlock()

	close(stopCh)
	<-doneCh

	b.mu.Lock()
	b.running = false
	b.mu.Unlock()

	b.logger.Info("leaderboard broadcaster stopped")
	return nil
}

// run is the main worker loop
func (b *Broadcaster) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(b.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			b.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single broadcast cycle and reports whether a snapshot was sent
func (b *Broadcaster) RunOnce(ctx context.Context) bool {
	subscribers := b.publisher.GetSubscriberCount(websocket.LeaderboardTopic)

	b.mu.Lock()
	defer b.mu.Unlock()

	joined := subscribers > b.subscribers
	b.subscribers = subscribers
	if subscribers == 0 {
		return false
	}

	entries, err := b.source.GetLeaderboard(ctx)
	if err != nil {
		b.logger.Error("failed to load leaderboard for broadcast", "error", err)
		return false
	}

	if !joined && b.sent && sameRanking(b.last, entries) {
		return false
	}

	b.publisher.BroadcastLeaderboardUpdate(entries)
	b.last = entries
	b.sent = true
	b.logger.Debug("leaderboard broadcast", "entries", len(entries), "subscribers", subscribers)
	return true
}

// IsRunning returns whether the worker is currently running
func (b *Broadcaster) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func sameRanking(a, b []domain.PlayerRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID ||
			a[i].PlayerName != b[i].PlayerName ||
			a[i].Score != b[i].Score ||
			a[i].TimeTaken != b[i].TimeTaken {
			return false
		}
	}
	return true
}

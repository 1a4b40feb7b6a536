package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/score-tracker/internal/config"
	"github.com/score-tracker/internal/domain"
	"github.com/score-tracker/internal/store"
)

// Record hash fields
const (
	fieldID         = "id"
	fieldPlayerName = "playerName"
	fieldPassword   = "password"
	fieldScore      = "score"
	fieldTimeTaken  = "timeTaken"
	fieldCreatedAt  = "createdAt"
	fieldUpdatedAt  = "updatedAt"
)

// insertScript creates the record hash and ranking entry only when the
// player key is absent.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1],
	'id', ARGV[1], 'playerName', ARGV[2], 'password', ARGV[3],
	'score', ARGV[4], 'timeTaken', ARGV[5],
	'createdAt', ARGV[6], 'updatedAt', ARGV[6])
redis.call('ZADD', KEYS[2], ARGV[4], ARGV[2])
return 1
`)

var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'score', ARGV[2], 'timeTaken', ARGV[3], 'updatedAt', ARGV[4])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
return 1
`)

var deleteScript = redis.NewScript(`
local removed = redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
return removed
`)

// Store is a Redis-backed score store. Each player is a hash; the
// ranking sorted set indexes player names by score.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// NewStore connects to Redis and verifies the connection
func NewStore(cfg *config.RedisConfig, logger *slog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewWithClient(client, logger), nil
}

// NewWithClient creates a store around an existing client (for testing)
func NewWithClient(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
	}
}

// Ensure Store implements the interface
var _ store.Store = (*Store)(nil)

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// FindByName returns the record stored for playerName
func (s *Store) FindByName(ctx context.Context, playerName string) (*domain.PlayerRecord, error) {
	fields, err := s.client.HGetAll(ctx, playerKey(playerName)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrPlayerNotFound
	}
	return parseRecord(fields)
}

// Insert stores a new record, assigning its ID
func (s *Store) Insert(ctx context.Context, record *domain.PlayerRecord) error {
	now := time.Now().UTC()
	id := uuid.New().String()

	created, err := insertScript.Run(ctx, s.client,
		[]string{playerKey(record.PlayerName), rankingKey()},
		id,
		record.PlayerName,
		record.PasswordHash,
		strconv.FormatInt(record.Score, 10),
		formatFloat(record.TimeTaken),
		now.Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		return fmt.Errorf("inserting player: %w", err)
	}
	if created == 0 {
		return domain.ErrPlayerExists
	}

	record.ID = id
	record.CreatedAt = now
	record.UpdatedAt = now
	return nil
}

// UpdateScore overwrites a player's score and time taken
func (s *Store) UpdateScore(ctx context.Context, playerName string, score int64, timeTaken float64) error {
	updated, err := updateScript.Run(ctx, s.client,
		[]string{playerKey(playerName), rankingKey()},
		playerName,
		strconv.FormatInt(score, 10),
		formatFloat(timeTaken),
		time.Now().UTC().Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		return fmt.Errorf("updating score: %w", err)
	}
	if updated == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// Delete removes a player's record and ranking entry
func (s *Store) Delete(ctx context.Context, playerName string) error {
	removed, err := deleteScript.Run(ctx, s.client,
		[]string{playerKey(playerName), rankingKey()},
		playerName,
	).Int()
	if err != nil {
		return fmt.Errorf("deleting player: %w", err)
	}
	if removed == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// Top returns the n best records.
//
// The sorted set orders equal scores by member descending, so every member
// tied with the last candidate is fetched and the cut is re-applied after
// sorting by name.
func (s *Store) Top(ctx context.Context, n int) ([]domain.PlayerRecord, error) {
	if n <= 0 {
		return []domain.PlayerRecord{}, nil
	}

	key := rankingKey()
	head, err := s.client.ZRevRangeWithScores(ctx, key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}
	if len(head) == 0 {
		return []domain.PlayerRecord{}, nil
	}

	candidates := head
	if len(head) == n {
		lowest := head[len(head)-1].Score
		candidates, err = s.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
			Max: "+inf",
			Min: strconv.FormatFloat(lowest, 'f', -1, 64),
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("getting tied scores: %w", err)
		}
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(candidates))
	for i, z := range candidates {
		cmds[i] = pipe.HGetAll(ctx, playerKey(z.Member.(string)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("loading ranked players: %w", err)
	}

	records := make([]domain.PlayerRecord, 0, len(cmds))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// Ranking entry without a record hash
			s.logger.Warn("ranking entry without player record", "player_name", candidates[i].Member)
			continue
		}
		record, err := parseRecord(fields)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	domain.SortRanking(records)
	if len(records) > n {
		records = records[:n]
	}
	return records, nil
}

func parseRecord(fields map[string]string) (*domain.PlayerRecord, error) {
	score, err := strconv.ParseInt(fields[fieldScore], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing score: %w", err)
	}
	timeTaken, err := strconv.ParseFloat(fields[fieldTimeTaken], 64)
	if err != nil {
		return nil, fmt.Errorf("parsing time taken: %w", err)
	}

	record := &domain.PlayerRecord{
		ID:           fields[fieldID],
		PlayerName:   fields[fieldPlayerName],
		PasswordHash: fields[fieldPassword],
		Score:        score,
		TimeTaken:    timeTaken,
	}
	record.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	record.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt])
	return record, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/score-tracker/internal/config"
	"github.com/score-tracker/internal/domain"
	"github.com/score-tracker/internal/store"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures
const uniqueViolation = "23505"

// Store provides PostgreSQL-based score storage
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a connection pool and verifies the connection
func NewStore(cfg *config.PostgresConfig, logger *slog.Logger) (*Store, error) {
	return NewStoreFromURL(cfg.ConnectionString(), cfg, logger)
}

// NewStoreFromURL is NewStore with an explicit connection string; pool
// limits are taken from cfg when it is non-nil.
func NewStoreFromURL(connString string, cfg *config.PostgresConfig, logger *slog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	if cfg != nil {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
		poolConfig.MinConns = int32(cfg.MinConnections)
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Store{
		pool:   pool,
		logger: logger,
	}, nil
}

// Ensure Store implements the interface
var _ store.Store = (*Store)(nil)

// Close closes the database connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RunMigrations creates the score table and its indexes
func (s *Store) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS player_scores (
			id VARCHAR(36) PRIMARY KEY,
			player_name VARCHAR(255) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			score BIGINT NOT NULL DEFAULT 0,
			time_taken DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_player_scores_ranking ON player_scores(score DESC, player_name ASC)`,
	}

	for _, migration := range migrations {
		if _, err := s.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	s.logger.Info("database migrations completed")
	return nil
}

const recordColumns = `id, player_name, password_hash, score, time_taken, created_at, updated_at`

func scanRecord(row pgx.Row) (*domain.PlayerRecord, error) {
	var record domain.PlayerRecord
	err := row.Scan(
		&record.ID,
		&record.PlayerName,
		&record.PasswordHash,
		&record.Score,
		&record.TimeTaken,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByName retrieves a player's record
func (s *Store) FindByName(ctx context.Context, playerName string) (*domain.PlayerRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM player_scores WHERE player_name = $1`
	record, err := scanRecord(s.pool.QueryRow(ctx, query, playerName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return record, nil
}

// Insert creates a player's record; the UNIQUE constraint rejects duplicates
func (s *Store) Insert(ctx context.Context, record *domain.PlayerRecord) error {
	query := `
		INSERT INTO player_scores (id, player_name, password_hash, score, time_taken, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, query, id, record.PlayerName, record.PasswordHash, record.Score, record.TimeTaken, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrPlayerExists
		}
		return fmt.Errorf("inserting player: %w", err)
	}

	record.ID = id
	record.CreatedAt = now
	record.UpdatedAt = now
	return nil
}

// UpdateScore overwrites a player's score and time taken
func (s *Store) UpdateScore(ctx context.Context, playerName string, score int64, timeTaken float64) error {
	query := `UPDATE player_scores SET score = $2, time_taken = $3, updated_at = $4 WHERE player_name = $1`
	result, err := s.pool.Exec(ctx, query, playerName, score, timeTaken, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("updating score: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// Delete removes a player's record
func (s *Store) Delete(ctx context.Context, playerName string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM player_scores WHERE player_name = $1`, playerName)
	if err != nil {
		return fmt.Errorf("deleting player: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// Top returns the n best records
func (s *Store) Top(ctx context.Context, n int) ([]domain.PlayerRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM player_scores
		ORDER BY score DESC, player_name COLLATE "C" ASC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}
	defer rows.Close()

	records := make([]domain.PlayerRecord, 0, n)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating players: %w", err)
	}
	return records, nil
}

// truncate removes every record; used by integration tests
func (s *Store) truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE player_scores`)
	return err
}

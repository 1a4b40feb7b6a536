package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/score-tracker/internal/config"
	"github.com/score-tracker/internal/domain"
	"github.com/score-tracker/internal/store"
)

// playerDocument is the stored shape of a record in the scores collection
type playerDocument struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	PlayerName string        `bson:"playerName"`
	Password   string        `bson:"password"`
	Score      int64         `bson:"score"`
	TimeTaken  float64       `bson:"timeTaken"`
	CreatedAt  time.Time     `bson:"createdAt,omitempty"`
	UpdatedAt  time.Time     `bson:"updatedAt,omitempty"`
}

func (d *playerDocument) toRecord() *domain.PlayerRecord {
	return &domain.PlayerRecord{
		ID:           d.ID.Hex(),
		PlayerName:   d.PlayerName,
		PasswordHash: d.Password,
		Score:        d.Score,
		TimeTaken:    d.TimeTaken,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Store is a MongoDB-backed score store
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewStore connects to MongoDB, verifies the connection and ensures the
// collection indexes exist
func NewStore(ctx context.Context, cfg *config.MongoConfig, logger *slog.Logger) (*Store, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetMaxPoolSize(cfg.MaxPoolSize)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("creating mongo client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	s := &Store{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logger,
	}

	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

// Ensure Store implements the interface
var _ store.Store = (*Store)(nil)

// EnsureIndexes creates the unique player name index and the ranking index.
// Creating an index that already exists is a no-op.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "playerName", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("playerName_unique"),
		},
		{
			Keys:    bson.D{{Key: "score", Value: -1}, {Key: "playerName", Value: 1}},
			Options: options.Index().SetName("ranking"),
		},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}
	s.logger.Info("mongo indexes ensured", "collection", s.collection.Name())
	return nil
}

// Close disconnects the client
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks the server connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func byName(playerName string) bson.D {
	return bson.D{{Key: "playerName", Value: playerName}}
}

// FindByName returns the record stored for playerName
func (s *Store) FindByName(ctx context.Context, playerName string) (*domain.PlayerRecord, error) {
	var doc playerDocument
	err := s.collection.FindOne(ctx, byName(playerName)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("finding player: %w", err)
	}
	return doc.toRecord(), nil
}

// Insert stores a new record; the unique index rejects duplicate names
func (s *Store) Insert(ctx context.Context, record *domain.PlayerRecord) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := playerDocument{
		ID:         bson.NewObjectID(),
		PlayerName: record.PlayerName,
		Password:   record.PasswordHash,
		Score:      record.Score,
		TimeTaken:  record.TimeTaken,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrPlayerExists
		}
		return fmt.Errorf("inserting player: %w", err)
	}

	record.ID = doc.ID.Hex()
	record.CreatedAt = now
	record.UpdatedAt = now
	return nil
}

// UpdateScore overwrites a player's score and time taken
func (s *Store) UpdateScore(ctx context.Context, playerName string, score int64, timeTaken float64) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "score", Value: score},
		{Key: "timeTaken", Value: timeTaken},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}

	result, err := s.collection.UpdateOne(ctx, byName(playerName), update)
	if err != nil {
		return fmt.Errorf("updating score: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// Delete removes a player's record
func (s *Store) Delete(ctx context.Context, playerName string) error {
	result, err := s.collection.DeleteOne(ctx, byName(playerName))
	if err != nil {
		return fmt.Errorf("deleting player: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// Top returns the n best records
func (s *Store) Top(ctx context.Context, n int) ([]domain.PlayerRecord, error) {
	// A zero limit means unlimited to the server
	if n <= 0 {
		return []domain.PlayerRecord{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "score", Value: -1}, {Key: "playerName", Value: 1}}).
		SetLimit(int64(n))

	cursor, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	var docs []playerDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding top n: %w", err)
	}

	records := make([]domain.PlayerRecord, 0, len(docs))
	for i := range docs {
		records = append(records, *docs[i].toRecord())
	}
	return records, nil
}

// drop removes the collection; used by integration tests
func (s *Store) drop(ctx context.Context) error {
	return s.collection.Drop(ctx)
}

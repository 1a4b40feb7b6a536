package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/score-tracker/internal/domain"
	"github.com/score-tracker/internal/store"
	"github.com/score-tracker/internal/store/storetest"
	"github.com/score-tracker/internal/testutil"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	return NewWithClient(client, testutil.NopLogger()), mini
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, _ := newTestStore(t)
		return s
	})
}

func TestInsertWritesHashAndRanking(t *testing.T) {
	s, mini := newTestStore(t)
	ctx := context.Background()

	record := &domain.PlayerRecord{PlayerName: "alice", PasswordHash: "hash", Score: 100, TimeTaken: 12.3}
	require.NoError(t, s.Insert(ctx, record))

	assert.Equal(t, "100", mini.HGet(playerKey("alice"), fieldScore))
	assert.Equal(t, "12.3", mini.HGet(playerKey("alice"), fieldTimeTaken))
	assert.Equal(t, record.ID, mini.HGet(playerKey("alice"), fieldID))

	score, err := mini.ZScore(rankingKey(), "alice")
	require.NoError(t, err)
	assert.Equal(t, float64(100), score)
}

func TestDeleteRemovesRankingEntry(t *testing.T) {
	s, mini := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &domain.PlayerRecord{PlayerName: "alice", Score: 1}))
	require.NoError(t, s.Delete(ctx, "alice"))

	assert.False(t, mini.Exists(playerKey("alice")))
	members, err := mini.ZMembers(rankingKey())
	if err == nil {
		assert.NotContains(t, members, "alice")
	}
}

func TestTopSkipsOrphanedRankingEntries(t *testing.T) {
	s, mini := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &domain.PlayerRecord{PlayerName: "alice", Score: 10}))
	_, err := mini.ZAdd(rankingKey(), 50, "ghost")
	require.NoError(t, err)

	top, err := s.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "alice", top[0].PlayerName)
}

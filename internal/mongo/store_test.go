package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/score-tracker/internal/config"
	"github.com/score-tracker/internal/store"
	"github.com/score-tracker/internal/store/storetest"
	"github.com/score-tracker/internal/testutil"
)

// TestStoreContract runs against a real server when MONGO_TEST_URI is set,
// e.g. mongodb://localhost:27017
func TestStoreContract(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	cfg := config.DefaultConfig().Mongo
	cfg.URI = uri
	cfg.Database = "scoreboard_test"

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := NewStore(ctx, &cfg, testutil.NopLogger())
		require.NoError(t, err)
		require.NoError(t, s.drop(ctx))
		require.NoError(t, s.EnsureIndexes(ctx))
		return s
	})
}

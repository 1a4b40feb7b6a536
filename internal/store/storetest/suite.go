// Package storetest holds the behavioural contract every store.Store
// implementation is tested against.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/score-tracker/internal/domain"
	"github.com/score-tracker/internal/store"
)

// Factory returns an empty store for a single test
type Factory func(t *testing.T) store.Store

// Run executes the contract suite against stores built by newStore
func Run(t *testing.T, newStore Factory) {
	suite.Run(t, &Suite{newStore: newStore})
}

// Suite is the shared store contract
type Suite struct {
	suite.Suite
	newStore Factory
	store    store.Store
	ctx      context.Context
}

func (s *Suite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func (s *Suite) insert(name string, score int64, timeTaken float64) *domain.PlayerRecord {
	record := &domain.PlayerRecord{
		PlayerName:   name,
		PasswordHash: "hash-" + name,
		Score:        score,
		TimeTaken:    timeTaken,
	}
	s.Require().NoError(s.store.Insert(s.ctx, record))
	return record
}

func (s *Suite) TestInsertAndFind() {
	inserted := s.insert("alice", 100, 12.3)
	s.NotEmpty(inserted.ID)

	found, err := s.store.FindByName(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(inserted.ID, found.ID)
	s.Equal("alice", found.PlayerName)
	s.Equal("hash-alice", found.PasswordHash)
	s.Equal(int64(100), found.Score)
	s.InDelta(12.3, found.TimeTaken, 1e-9)
}

func (s *Suite) TestFindMissing() {
	_, err := s.store.FindByName(s.ctx, "nobody")
	s.ErrorIs(err, domain.ErrPlayerNotFound)
}

func (s *Suite) TestInsertDuplicate() {
	first := s.insert("alice", 100, 12.3)

	err := s.store.Insert(s.ctx, &domain.PlayerRecord{PlayerName: "alice", PasswordHash: "other", Score: 1})
	s.ErrorIs(err, domain.ErrPlayerExists)

	found, err := s.store.FindByName(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(first.ID, found.ID)
	s.Equal(int64(100), found.Score)
}

func (s *Suite) TestConcurrentInsertSameName() {
	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.store.Insert(s.ctx, &domain.PlayerRecord{PlayerName: "racer", Score: int64(i)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrPlayerExists):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, succeeded)
	s.Equal(attempts-1, conflicts)
}

func (s *Suite) TestUpdateScore() {
	inserted := s.insert("alice", 100, 12.3)

	s.Require().NoError(s.store.UpdateScore(s.ctx, "alice", 250, 8.75))

	found, err := s.store.FindByName(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(inserted.ID, found.ID)
	s.Equal(int64(250), found.Score)
	s.InDelta(8.75, found.TimeTaken, 1e-9)
	s.Equal("hash-alice", found.PasswordHash)
}

func (s *Suite) TestUpdateScoreMissing() {
	err := s.store.UpdateScore(s.ctx, "nobody", 1, 1)
	s.ErrorIs(err, domain.ErrPlayerNotFound)

	_, err = s.store.FindByName(s.ctx, "nobody")
	s.ErrorIs(err, domain.ErrPlayerNotFound)
}

func (s *Suite) TestDelete() {
	s.insert("alice", 100, 12.3)

	s.Require().NoError(s.store.Delete(s.ctx, "alice"))

	_, err := s.store.FindByName(s.ctx, "alice")
	s.ErrorIs(err, domain.ErrPlayerNotFound)

	top, err := s.store.Top(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(top)
}

func (s *Suite) TestDeleteMissing() {
	err := s.store.Delete(s.ctx, "nobody")
	s.ErrorIs(err, domain.ErrPlayerNotFound)
}

func (s *Suite) TestDeletedNameCanSignUpAgain() {
	first := s.insert("alice", 100, 12.3)
	s.Require().NoError(s.store.Delete(s.ctx, "alice"))

	second := s.insert("alice", 5, 1)
	s.NotEqual(first.ID, second.ID)
}

func (s *Suite) TestTopEmpty() {
	top, err := s.store.Top(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(top)
}

func (s *Suite) TestTopOrderAndLimit() {
	for i := 0; i < 15; i++ {
		s.insert(fmt.Sprintf("player%02d", i), int64(i*10), float64(i))
	}

	top, err := s.store.Top(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 10)

	s.Equal("player14", top[0].PlayerName)
	s.Equal(int64(140), top[0].Score)
	s.InDelta(14.0, top[0].TimeTaken, 1e-9)
	s.NotEmpty(top[0].ID)
	for i := 1; i < len(top); i++ {
		s.GreaterOrEqual(top[i-1].Score, top[i].Score)
	}
	s.Equal("player05", top[9].PlayerName)
}

func (s *Suite) TestTopBreaksTiesByName() {
	s.insert("dave", 50, 1)
	s.insert("carol", 100, 1)
	s.insert("bob", 100, 2)
	s.insert("erin", 100, 3)
	s.insert("alice", 10, 4)

	top, err := s.store.Top(s.ctx, 3)
	s.Require().NoError(err)

	var names []string
	for _, r := range top {
		names = append(names, r.PlayerName)
	}
	s.Equal([]string{"bob", "carol", "erin"}, names)
}

func (s *Suite) TestTopReflectsUpdates() {
	s.insert("alice", 10, 1)
	s.insert("bob", 20, 1)

	s.Require().NoError(s.store.UpdateScore(s.ctx, "alice", 30, 2))

	top, err := s.store.Top(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("alice", top[0].PlayerName)
	s.Equal(int64(30), top[0].Score)
	s.Equal("bob", top[1].PlayerName)
}

func (s *Suite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

package users

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
)

type UserRepositorySuite struct {
	suite.Suite
	db   *sqlx.DB
	repo *UserRepositoryImpl
	now  time.Time
}

func (s *UserRepositorySuite) SetupTest() {
	db, err := postgres.OpenSQLite(":memory:")
	s.Require().NoError(err)
	s.Require().NoError(postgres.RunMigrations(db))

	s.db = db
	s.now = time.Date(2099, 1, 1, 10, 0, 0, 0, time.UTC)
	s.repo = NewUserRepository(db).WithClock(func() time.Time { return s.now })
}

func (s *UserRepositorySuite) TearDownTest() {
	s.db.Close()
}

func (s *UserRepositorySuite) TestGetOrCreate_CreatesOnce() {
	ctx := context.Background()

	user, err := s.repo.GetOrCreate(ctx, 42, "alice", "Alice")
	s.Require().NoError(err)
	s.Equal(int64(42), user.UserID)
	s.Equal(0, user.MessageCount)
	s.Equal("Alice", user.FirstName)

	again, err := s.repo.GetOrCreate(ctx, 42, "renamed", "Other")
	s.Require().NoError(err)
	s.Equal("alice", again.Username)

	total, err := s.repo.GetTotalCount(ctx)
	s.Require().NoError(err)
	s.Equal(1, total)
}

func (s *UserRepositorySuite) TestTouchIncrementsAndStamps() {
	ctx := context.Background()
	_, err := s.repo.GetOrCreate(ctx, 7, "", "Bob")
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour)
	s.Require().NoError(s.repo.Touch(ctx, 7))
	s.Require().NoError(s.repo.Touch(ctx, 7))

	user, err := s.repo.FindByID(ctx, 7)
	s.Require().NoError(err)
	s.Equal(2, user.MessageCount)
	s.True(user.LastInteraction.Equal(s.now), "got %v", user.LastInteraction)
}

func (s *UserRepositorySuite) TestResetDailyCount() {
	ctx := context.Background()
	_, err := s.repo.GetOrCreate(ctx, 7, "", "Bob")
	s.Require().NoError(err)
	s.Require().NoError(s.repo.Touch(ctx, 7))

	s.Require().NoError(s.repo.ResetDailyCount(ctx, 7))

	count, err := s.repo.GetCount(ctx, 7)
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *UserRepositorySuite) TestMissingUser() {
	ctx := context.Background()

	_, err := s.repo.FindByID(ctx, 999)
	s.ErrorIs(err, sql.ErrNoRows)
	s.ErrorIs(s.repo.Touch(ctx, 999), sql.ErrNoRows)
	_, err = s.repo.GetCount(ctx, 999)
	s.ErrorIs(err, sql.ErrNoRows)
}

func (s *UserRepositorySuite) TestConcurrentTouchIsAtomic() {
	ctx := context.Background()
	_, err := s.repo.GetOrCreate(ctx, 1, "", "")
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.repo.Touch(ctx, 1))
		}()
	}
	wg.Wait()

	count, err := s.repo.GetCount(ctx, 1)
	s.Require().NoError(err)
	s.Equal(25, count)
}

func TestUserRepositorySuite(t *testing.T) {
	suite.Run(t, new(UserRepositorySuite))
}

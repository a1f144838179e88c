package alerts

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres"
	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/models"
	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/repository/users"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
)

type AlertRepositorySuite struct {
	suite.Suite
	db    *sqlx.DB
	repo  *AlertRepositoryImpl
	users *users.UserRepositoryImpl
	now   time.Time
}

func (s *AlertRepositorySuite) SetupTest() {
	db, err := postgres.OpenSQLite(":memory:")
	s.Require().NoError(err)
	s.Require().NoError(postgres.RunMigrations(db))

	s.db = db
	s.now = time.Date(2099, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }
	s.repo = NewAlertRepository(db).WithClock(clock)
	s.users = users.NewUserRepository(db).WithClock(clock)

	for _, id := range []int64{42, 99} {
		_, err := s.users.GetOrCreate(context.Background(), id, "", "")
		s.Require().NoError(err)
	}
}

func (s *AlertRepositorySuite) TearDownTest() {
	s.db.Close()
}

func (s *AlertRepositorySuite) newAlert(userID int64) *models.Alert {
	return &models.Alert{
		UserID:   userID,
		Area:     "Westminster ",
		CheckIn:  "2099-01-10",
		CheckOut: "2099-01-12",
		MaxPrice: 150,
	}
}

func (s *AlertRepositorySuite) TestCreateAlert_DefaultsAndNormalisation() {
	ctx := context.Background()

	id, err := s.repo.CreateAlert(ctx, s.newAlert(42))
	s.Require().NoError(err)
	s.Positive(id)

	alert, err := s.repo.FindByID(ctx, id)
	s.Require().NoError(err)
	s.Equal("westminster", alert.Area)
	s.Equal(2, alert.Guests)
	s.Equal(1, alert.Rooms)
	s.True(alert.IsActive)
	s.False(alert.HotelName.Valid)
	s.False(alert.LastChecked.Valid)
	s.Equal("any hotel", alert.HotelLabel())
	s.InDelta(150.0, alert.MaxPrice, 0.001)
}

func (s *AlertRepositorySuite) TestListActiveAlerts_NewestFirst() {
	ctx := context.Background()

	first, err := s.repo.CreateAlert(ctx, s.newAlert(42))
	s.Require().NoError(err)
	s.now = s.now.Add(time.Minute)
	withHotel := s.newAlert(42)
	withHotel.HotelName = sql.NullString{String: "The Savoy", Valid: true}
	second, err := s.repo.CreateAlert(ctx, withHotel)
	s.Require().NoError(err)
	_, err = s.repo.CreateAlert(ctx, s.newAlert(99))
	s.Require().NoError(err)

	list, err := s.repo.ListActiveAlerts(ctx, 42)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(second, list[0].ID)
	s.Equal(first, list[1].ID)
	s.Equal("The Savoy", list[0].HotelLabel())

	all, err := s.repo.ListAllActiveAlerts(ctx)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *AlertRepositorySuite) TestSoftDelete_EnforcesOwnership() {
	ctx := context.Background()

	id, err := s.repo.CreateAlert(ctx, s.newAlert(99))
	s.Require().NoError(err)

	ok, err := s.repo.SoftDelete(ctx, id, 42)
	s.Require().NoError(err)
	s.False(ok)

	alert, err := s.repo.FindByID(ctx, id)
	s.Require().NoError(err)
	s.True(alert.IsActive)

	ok, err = s.repo.SoftDelete(ctx, id, 99)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.repo.SoftDelete(ctx, id, 99)
	s.Require().NoError(err)
	s.False(ok, "second delete must report not found")

	list, err := s.repo.ListActiveAlerts(ctx, 99)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *AlertRepositorySuite) TestSoftDelete_UnknownAlert() {
	ok, err := s.repo.SoftDelete(context.Background(), 12345, 42)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *AlertRepositorySuite) TestPriceObservations() {
	ctx := context.Background()
	id, err := s.repo.CreateAlert(ctx, s.newAlert(42))
	s.Require().NoError(err)

	_, err = s.repo.LatestObservation(ctx, id)
	s.ErrorIs(err, sql.ErrNoRows)

	s.Require().NoError(s.repo.RecordPriceObservation(ctx, id, 180, "Hotel A", ""))
	s.now = s.now.Add(6 * time.Hour)
	s.Require().NoError(s.repo.RecordPriceObservation(ctx, id, 140.5, "Hotel B", "GBP"))

	latest, err := s.repo.LatestObservation(ctx, id)
	s.Require().NoError(err)
	s.InDelta(140.5, latest.Price, 0.001)
	s.Equal("Hotel B", latest.Provider)
	s.Equal("GBP", latest.Currency)

	alert, err := s.repo.FindByID(ctx, id)
	s.Require().NoError(err)
	s.Require().True(alert.LastChecked.Valid)
	s.True(alert.LastChecked.Time.Equal(s.now))

	history, err := s.repo.PriceHistory(ctx, id, 7)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("GBP", history[0].Currency)
	s.InDelta(180.0, history[0].Price, 0.001)

	s.now = s.now.AddDate(0, 0, 10)
	history, err = s.repo.PriceHistory(ctx, id, 7)
	s.Require().NoError(err)
	s.Empty(history)
}

func TestAlertRepositorySuite(t *testing.T) {
	suite.Run(t, new(AlertRepositorySuite))
}

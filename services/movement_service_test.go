package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtlelab/labtrack/models"
)

type MovementServiceTestSuite struct {
	suite.Suite
	env    *testEnv
	ctx    context.Context
	sample string
	box    string
}

func (s *MovementServiceTestSuite) SetupTest() {
	s.env = newTestEnv(s.T())
	s.ctx = context.Background()
	fixedClock(s.T(), time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))

	for _, condition := range []string{"-80", "RT"} {
		_, err := s.env.services.Conditions.Create(s.ctx, "doej", &models.ConditionForm{Condition: condition})
		s.Require().NoError(err)
	}
	_, err := s.env.services.Accounts.Create(s.ctx, "doej", &models.AccountForm{
		Account: "acc-1", FreezeCondition: "-80", FreezeTime: 30, FreezeUOM: "d",
		ThawCondition: "RT", ThawTime: 2, ThawUOM: "h", ThawCount: 3,
	})
	s.Require().NoError(err)

	s.createLocation("Freezer 1", "-80")
	s.createLocation("Bench", "RT")

	sample, err := s.env.services.Samples.Create(s.ctx, "doej", &models.SampleForm{
		Name: "Plasma A", Account: "acc-1", Type: "Internal", Volume: "500", UOM: "ul",
	})
	s.Require().NoError(err)
	s.sample, _ = sample.Fields["sample"].(string)

	box, err := s.env.services.Boxes.Create(s.ctx, "doej", &models.BoxForm{
		Name: "Box 1", Alignment: "Horizontal", RowType: "Numeric", Rows: 9,
		ColumnType: "Alphabetic", Columns: 9, Origin: "Top Left",
	})
	s.Require().NoError(err)
	s.box, _ = box.Fields["box"].(string)
}

func (s *MovementServiceTestSuite) createLocation(name, condition string) {
	_, err := s.env.services.Locations.Create(s.ctx, "doej", &models.LocationForm{
		Name: name, Condition: condition, MaxBoxes: 10,
	})
	s.Require().NoError(err)
}

func (s *MovementServiceTestSuite) locationByName(name string) string {
	locations, err := s.env.services.Locations.List(s.ctx, models.Fields{"name": name}, "")
	s.Require().NoError(err)
	s.Require().Len(locations, 1)
	unique, _ := locations[0].Fields["location"].(string)
	return unique
}

func (s *MovementServiceTestSuite) times() []models.Record {
	rows, err := s.env.services.Times.List(s.ctx, nil, "id")
	s.Require().NoError(err)
	return rows
}

func (s *MovementServiceTestSuite) TestFirstMoveOpensInterval() {
	freezer := s.locationByName("Freezer 1")
	s.Require().NoError(s.env.services.Movements.Move(s.ctx, "doej", s.sample, freezer))

	location, err := s.env.services.Movements.CurrentLocation(s.ctx, s.sample)
	s.Require().NoError(err)
	s.Equal(freezer, location)

	rows := s.times()
	s.Require().Len(rows, 1)
	s.Equal(models.MethodFreeze, rows[0].Fields["method"])
	s.Equal(int64(1), rows[0].Fields["id_second"])
	s.Nil(rows[0].Fields["duration"], "the first interval stays open")
	s.True(rows[0].Verified)
}

func (s *MovementServiceTestSuite) TestConditionChangeClosesPreviousInterval() {
	freezer := s.locationByName("Freezer 1")
	bench := s.locationByName("Bench")

	s.Require().NoError(s.env.services.Movements.Move(s.ctx, "doej", s.sample, freezer))
	s.Require().NoError(s.env.services.Movements.Move(s.ctx, "doej", s.sample, bench))

	rows := s.times()
	s.Require().Len(rows, 2)

	// The freeze interval is closed with the elapsed duration and re-hashed.
	s.Equal(models.MethodFreeze, rows[0].Fields["method"])
	duration, ok := rows[0].Fields["duration"].(time.Duration)
	s.Require().True(ok)
	s.Greater(duration, time.Duration(0))
	s.True(rows[0].Verified, "closing an interval must rewrite its checksum")

	s.Equal(models.MethodThaw, rows[1].Fields["method"])
	s.Equal(int64(2), rows[1].Fields["id_second"])
	s.Nil(rows[1].Fields["duration"])
	s.True(rows[1].Verified)
}

func (s *MovementServiceTestSuite) TestMoveWithinSameConditionAddsNoInterval() {
	s.createLocation("Freezer 2", "-80")
	freezer1 := s.locationByName("Freezer 1")
	freezer2 := s.locationByName("Freezer 2")

	s.Require().NoError(s.env.services.Movements.Move(s.ctx, "doej", s.sample, freezer1))
	s.Require().NoError(s.env.services.Movements.Move(s.ctx, "doej", s.sample, freezer2))

	s.Require().Len(s.times(), 1)

	movements, err := s.env.services.MovementLog.List(s.ctx, nil, "")
	s.Require().NoError(err)
	s.Len(movements, 2)
}

func (s *MovementServiceTestSuite) TestMoveToCurrentLocationConflicts() {
	freezer := s.locationByName("Freezer 1")
	s.Require().NoError(s.env.services.Movements.Move(s.ctx, "doej", s.sample, freezer))
	s.ErrorIs(s.env.services.Movements.Move(s.ctx, "doej", s.sample, freezer), ErrConflict)
}

func (s *MovementServiceTestSuite) TestBoxMoveSkipsIntervals() {
	freezer := s.locationByName("Freezer 1")
	s.Require().NoError(s.env.services.Movements.Move(s.ctx, "doej", s.box, freezer))

	s.Empty(s.times())

	movements, err := s.env.services.MovementLog.List(s.ctx, nil, "")
	s.Require().NoError(err)
	s.Require().Len(movements, 1)
	s.Equal(ObjectBox, movements[0].Fields["type"])
	s.True(movements[0].Verified)
}

func (s *MovementServiceTestSuite) TestPlaceSample() {
	s.Require().NoError(s.env.services.Movements.PlaceSample(s.ctx, "doej", s.sample, s.box, "A1"))

	rows, err := s.env.services.BoxingLog.List(s.ctx, nil, "")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(s.sample, rows[0].Fields["sample"])
	s.Equal("A1", rows[0].Fields["position"])
	s.True(rows[0].Verified)
}

func TestMovementServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MovementServiceTestSuite))
}

// mockLogStore is a testify mock of the log store, used where the store
// behavior itself is the subject.
type mockLogStore struct {
	mock.Mock
	schema models.Schema
}

func (m *mockLogStore) Schema() models.Schema {
	return m.schema
}

func (m *mockLogStore) Append(ctx context.Context, fields models.Fields, checksum string) (int64, error) {
	args := m.Called(ctx, fields, checksum)
	return int64(args.Int(0)), args.Error(1)
}

func (m *mockLogStore) Filter(ctx context.Context, criteria models.Fields, orderBy string) ([]models.Record, error) {
	args := m.Called(ctx, criteria, orderBy)
	records, _ := args.Get(0).([]models.Record)
	return records, args.Error(1)
}

func (m *mockLogStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

package services

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/turtlelab/labtrack/database"
	"github.com/turtlelab/labtrack/integrity"
	"github.com/turtlelab/labtrack/metrics"
	"github.com/turtlelab/labtrack/repositories"
)

// testProfile keeps argon2 cheap in tests.
var testProfile = integrity.Profile{Time: 1, Memory: 8 * 1024, Threads: 1}

type testEnv struct {
	db       *sql.DB
	repos    *repositories.Repositories
	services *Services
	engine   *integrity.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db))

	engine, err := integrity.NewEngine("test-secret",
		integrity.WithFastProfile(testProfile),
		integrity.WithSlowProfile(testProfile))
	require.NoError(t, err)

	repos := repositories.New(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	return &testEnv{
		db:       db,
		repos:    repos,
		services: New(repos, engine, logger, m),
		engine:   engine,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// fixedClock pins timeNow to a deterministic sequence, one hour per call
func fixedClock(t *testing.T, base time.Time) {
	t.Helper()
	calls := 0
	timeNow = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Hour)
	}
	t.Cleanup(func() {
		timeNow = func() time.Time { return time.Now().UTC() }
	})
}

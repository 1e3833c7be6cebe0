package services

import (
	"context"
	"log/slog"

	"github.com/turtlelab/labtrack/integrity"
	"github.com/turtlelab/labtrack/metrics"
	"github.com/turtlelab/labtrack/models"
	"github.com/turtlelab/labtrack/repositories"
)

// LogService is the verified read path over one append-only event log.
type LogService interface {
	Schema() models.Schema
	List(ctx context.Context, criteria models.Fields, orderBy string) ([]models.Record, error)
}

// logService implements LogService
type logService struct {
	store   repositories.LogStore
	engine  *integrity.Engine
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewLogService creates the verified reader for one event log
func NewLogService(store repositories.LogStore, engine *integrity.Engine, logger *slog.Logger, m *metrics.Metrics) LogService {
	return &logService{store: store, engine: engine, logger: logger, metrics: m}
}

func (s *logService) Schema() models.Schema {
	return s.store.Schema()
}

// List retrieves log rows and verifies each row's checksum
func (s *logService) List(ctx context.Context, criteria models.Fields, orderBy string) ([]models.Record, error) {
	rows, err := s.store.Filter(ctx, criteria, orderBy)
	if err != nil {
		return nil, err
	}
	schema := s.store.Schema()
	for i := range rows {
		serial, err := logSerial(schema, rows[i].Fields)
		if err != nil {
			continue
		}
		rows[i].Verified = s.engine.Verify(serial, rows[i].Checksum)
		if !rows[i].Verified {
			s.metrics.VerifyFailures.WithLabelValues(schema.Table).Inc()
			s.logger.Warn("log row checksum mismatch", "table", schema.Table, "id", rows[i].ID)
		}
	}
	return rows, nil
}

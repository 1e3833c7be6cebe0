package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/turtlelab/labtrack/integrity"
	"github.com/turtlelab/labtrack/models"
	"github.com/turtlelab/labtrack/repositories"
)

// LabelActionPrint is the only label log action.
const LabelActionPrint = "print"

// LabelService records label print jobs. The rendering and the printer
// protocol live outside the application; what matters here is the immutable
// record that a label for an identifier left the system, tied to a job id.
type LabelService interface {
	Print(ctx context.Context, user, label string) (string, error)
}

// labelService implements LabelService
type labelService struct {
	labelLog repositories.LogStore
	engine   *integrity.Engine
	logger   *slog.Logger
}

// NewLabelService creates a new label service
func NewLabelService(labelLog repositories.LogStore, engine *integrity.Engine, logger *slog.Logger) LabelService {
	return &labelService{labelLog: labelLog, engine: engine, logger: logger}
}

// Print logs one label print job and returns the job id
func (s *labelService) Print(ctx context.Context, user, label string) (string, error) {
	if label == "" {
		return "", &ValidationError{Messages: []string{"Label is required"}}
	}

	job := uuid.NewString()
	fields := models.Fields{
		"label": label, "action": LabelActionPrint, "job": job,
		"user": user, "timestamp": timeNow(),
	}
	serial, err := logSerial(s.labelLog.Schema(), fields)
	if err != nil {
		return "", err
	}
	checksum, err := s.engine.Checksum(serial)
	if err != nil {
		return "", err
	}
	if _, err := s.labelLog.Append(ctx, fields, checksum); err != nil {
		return "", err
	}
	s.logger.Info("label printed", "label", label, "job", job, "user", user)
	return job, nil
}

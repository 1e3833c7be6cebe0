package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtlelab/labtrack/integrity"
	"github.com/turtlelab/labtrack/models"
)

func TestPrintLogsJob(t *testing.T) {
	engine, err := integrity.NewEngine("test-secret",
		integrity.WithFastProfile(testProfile))
	require.NoError(t, err)

	store := &mockLogStore{schema: models.LabelLogSchema}
	store.On("Append", mock.Anything, mock.MatchedBy(func(fields models.Fields) bool {
		return fields["label"] == "S000001" &&
			fields["action"] == LabelActionPrint &&
			fields["user"] == "doej"
	}), mock.AnythingOfType("string")).Return(1, nil)

	service := NewLabelService(store, engine, slog.New(slog.NewTextHandler(io.Discard, nil)))

	job, err := service.Print(context.Background(), "doej", "S000001")
	require.NoError(t, err)
	_, err = uuid.Parse(job)
	assert.NoError(t, err, "job ids are UUIDs")

	store.AssertExpectations(t)
}

func TestPrintRequiresLabel(t *testing.T) {
	engine, err := integrity.NewEngine("test-secret")
	require.NoError(t, err)

	service := NewLabelService(&mockLogStore{schema: models.LabelLogSchema}, engine,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err = service.Print(context.Background(), "doej", "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

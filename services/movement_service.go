package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/turtlelab/labtrack/integrity"
	"github.com/turtlelab/labtrack/metrics"
	"github.com/turtlelab/labtrack/models"
	"github.com/turtlelab/labtrack/repositories"
)

// Object types recorded in the movement log.
const (
	ObjectSample = "sample"
	ObjectBox    = "box"
)

// MovementService moves samples and boxes between locations. Sample moves
// across condition boundaries additionally maintain the freeze/thaw interval
// table against the sample's freeze-thaw account.
type MovementService interface {
	Move(ctx context.Context, user, object, newLocation string) error
	PlaceSample(ctx context.Context, user, sample, box, position string) error
	CurrentLocation(ctx context.Context, object string) (string, error)
}

// movementService implements MovementService
type movementService struct {
	samples     RecordService
	boxes       RecordService
	locations   RecordService
	accounts    RecordService
	movementLog repositories.LogStore
	boxingLog   repositories.LogStore
	times       repositories.TimesStore
	engine      *integrity.Engine
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewMovementService creates a new movement service
func NewMovementService(
	samples, boxes, locations, accounts RecordService,
	movementLog, boxingLog repositories.LogStore,
	times repositories.TimesStore,
	engine *integrity.Engine,
	logger *slog.Logger,
	m *metrics.Metrics,
) MovementService {
	return &movementService{
		samples: samples, boxes: boxes, locations: locations, accounts: accounts,
		movementLog: movementLog, boxingLog: boxingLog, times: times,
		engine: engine, logger: logger, metrics: m,
	}
}

// CurrentLocation derives an object's location from its latest movement log
// row; an object never moved has no location.
func (s *movementService) CurrentLocation(ctx context.Context, object string) (string, error) {
	rows, err := s.movementLog.Filter(ctx, models.Fields{"object": object}, "-id")
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	location, _ := rows[0].Fields["new_location"].(string)
	return location, nil
}

// Move relocates a sample or box. The move itself is one movement log row;
// for samples, crossing from the account's thaw condition to its freeze
// condition (or back) opens a new freeze/thaw interval and closes the
// previous one by filling in its duration.
func (s *movementService) Move(ctx context.Context, user, object, newLocation string) error {
	objectType, err := s.objectType(object)
	if err != nil {
		return err
	}

	location, err := s.locations.Get(ctx, newLocation)
	if err != nil {
		return fmt.Errorf("unknown location %q: %w", newLocation, err)
	}

	initial, err := s.CurrentLocation(ctx, object)
	if err != nil {
		return err
	}
	if initial == newLocation {
		return fmt.Errorf("%w: %q is already at %q", ErrConflict, object, newLocation)
	}

	now := timeNow()
	if err := s.appendMovement(ctx, object, objectType, initial, newLocation, user, now); err != nil {
		return err
	}
	s.logger.Info("object moved", "object", object, "from", initial, "to", newLocation, "user", user)

	if objectType != ObjectSample {
		return nil
	}
	newCondition, _ := location.Fields["condition"].(string)
	return s.recordInterval(ctx, object, initial, newCondition, now)
}

// PlaceSample records a sample being placed into a box position
func (s *movementService) PlaceSample(ctx context.Context, user, sample, box, position string) error {
	if position == "" {
		return &ValidationError{Messages: []string{"Position is required"}}
	}
	if _, err := s.samples.Get(ctx, sample); err != nil {
		return err
	}
	if _, err := s.boxes.Get(ctx, box); err != nil {
		return err
	}

	fields := models.Fields{
		"sample": sample, "box": box, "position": position,
		"user": user, "timestamp": timeNow(),
	}
	if err := s.appendLog(ctx, s.boxingLog, fields); err != nil {
		return err
	}
	s.logger.Info("sample boxed", "sample", sample, "box", box, "position", position, "user", user)
	return nil
}

// recordInterval maintains the times table for one sample move. The first
// move opens interval one; later moves only act when the storage condition
// changed, opening the next interval and closing the previous one.
func (s *movementService) recordInterval(ctx context.Context, sample, initialLocation, newCondition string, now time.Time) error {
	record, err := s.samples.Get(ctx, sample)
	if err != nil {
		return err
	}
	accountName, _ := record.Fields["account"].(string)
	account, err := s.accounts.Get(ctx, accountName)
	if err != nil {
		return fmt.Errorf("unknown freeze-thaw account %q: %w", accountName, err)
	}
	freezeCondition, _ := account.Fields["freeze_condition"].(string)

	method := func(condition string) string {
		if condition == freezeCondition {
			return models.MethodFreeze
		}
		return models.MethodThaw
	}

	if initialLocation == "" {
		return s.appendInterval(ctx, record.ID, 1, sample, method(newCondition), now)
	}

	initial, err := s.locations.Get(ctx, initialLocation)
	if err != nil {
		return err
	}
	initialCondition, _ := initial.Fields["condition"].(string)
	if initialCondition == newCondition {
		return nil
	}

	previous, err := s.times.LastByRef(ctx, record.ID)
	if err != nil {
		return err
	}
	count, err := s.times.CountByRef(ctx, record.ID)
	if err != nil {
		return err
	}
	if err := s.appendInterval(ctx, record.ID, count+1, sample, method(newCondition), now); err != nil {
		return err
	}

	// Close the previous interval. Its checksum covers the duration, so the
	// row is re-hashed with the duration filled in.
	previousTime, _ := previous.Fields["time"].(time.Time)
	duration := now.Sub(previousTime)
	closed := previous.Fields.Clone()
	closed["duration"] = duration
	serial, err := logSerial(models.TimesSchema, closed)
	if err != nil {
		return err
	}
	checksum, err := s.engine.Checksum(serial)
	if err != nil {
		return err
	}
	return s.times.CloseInterval(ctx, previous.ID, duration, checksum)
}

func (s *movementService) appendInterval(ctx context.Context, idRef int64, idSecond int, item, method string, now time.Time) error {
	fields := models.Fields{
		"id_ref": idRef, "id_second": idSecond, "item": item,
		"method": method, "time": now, "duration": nil,
	}
	return s.appendLog(ctx, s.times, fields)
}

func (s *movementService) appendMovement(ctx context.Context, object, objectType, initial, newLocation, user string, now time.Time) error {
	return s.appendLog(ctx, s.movementLog, models.Fields{
		"object": object, "type": objectType,
		"initial_location": initial, "new_location": newLocation,
		"user": user, "timestamp": now,
	})
}

func (s *movementService) appendLog(ctx context.Context, store repositories.LogStore, fields models.Fields) error {
	serial, err := logSerial(store.Schema(), fields)
	if err != nil {
		return err
	}
	checksum, err := s.engine.Checksum(serial)
	if err != nil {
		return err
	}
	_, err = store.Append(ctx, fields, checksum)
	return err
}

// objectType derives sample or box from the identifier prefix
func (s *movementService) objectType(object string) (string, error) {
	switch {
	case strings.HasPrefix(object, models.SampleSchema.Prefix):
		return ObjectSample, nil
	case strings.HasPrefix(object, models.BoxSchema.Prefix):
		return ObjectBox, nil
	default:
		return "", &ValidationError{Messages: []string{fmt.Sprintf("Unknown object identifier %q", object)}}
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/turtlelab/labtrack/integrity"
	"github.com/turtlelab/labtrack/metrics"
	"github.com/turtlelab/labtrack/models"
	"github.com/turtlelab/labtrack/repositories"
)

var timeNow = func() time.Time {
	return time.Now().UTC()
}

// RecordService is the manipulation engine for one versioned entity. Every
// successful create, update and delete writes exactly one audit trail entry;
// the read path re-verifies checksums and flags failures without blocking
// the read.
type RecordService interface {
	Schema() models.Schema
	List(ctx context.Context, criteria models.Fields, orderBy string) ([]models.Record, error)
	Get(ctx context.Context, unique string) (*models.Record, error)
	Create(ctx context.Context, user string, form models.RecordForm) (*models.Record, error)
	Update(ctx context.Context, user, unique string, form models.RecordForm) (*models.Record, error)
	Delete(ctx context.Context, user, unique string) error
	DeleteBatch(ctx context.Context, user string, uniques []string) []models.Outcome
	AuditTrail(ctx context.Context, unique string) ([]models.AuditEntry, error)
	AuditLog(ctx context.Context) ([]models.AuditEntry, error)

	// Dynamic attributes, only wired for entities with configurable columns.
	Attributes(ctx context.Context, unique string) ([]models.DynamicAttribute, error)
	SetAttribute(ctx context.Context, user, unique string, form *models.AttributeForm) (*models.DynamicAttribute, error)
	DeleteAttribute(ctx context.Context, user, unique, name string) error
}

// recordService implements RecordService
type recordService struct {
	records repositories.RecordStore
	audit   repositories.AuditStore
	attrs   repositories.DynamicStore
	attrLog repositories.LogStore
	engine  *integrity.Engine
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// RecordOption configures a record service
type RecordOption func(*recordService)

// WithAttributes enables the dynamic attribute side table for this entity
func WithAttributes(attrs repositories.DynamicStore, attrLog repositories.LogStore) RecordOption {
	return func(s *recordService) {
		s.attrs = attrs
		s.attrLog = attrLog
	}
}

// NewRecordService creates the manipulation engine for one entity
func NewRecordService(
	stores repositories.EntityStores,
	engine *integrity.Engine,
	logger *slog.Logger,
	m *metrics.Metrics,
	opts ...RecordOption,
) RecordService {
	s := &recordService{
		records: stores.Records,
		audit:   stores.Audit,
		engine:  engine,
		logger:  logger,
		metrics: m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *recordService) Schema() models.Schema {
	return s.records.Schema()
}

// List retrieves records matching the criteria and verifies each one
func (s *recordService) List(ctx context.Context, criteria models.Fields, orderBy string) ([]models.Record, error) {
	records, err := s.records.Filter(ctx, criteria, orderBy)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Verified = s.verifyRecord(ctx, &records[i])
	}
	return records, nil
}

// Get retrieves one record by its unique value and verifies it. For entities
// with dynamic attributes the verification is composite: the record only
// verifies if the main row and every attribute row verify.
func (s *recordService) Get(ctx context.Context, unique string) (*models.Record, error) {
	record, err := s.records.GetByUnique(ctx, unique)
	if err != nil {
		return nil, err
	}
	record.Verified = s.verifyRecord(ctx, record)
	return record, nil
}

// Create inserts a new record at version 1 and writes its Create audit
// entry. For minted entities the identifier derives from the primary key, so
// the flow is insert, assign identifier, recompute checksum, then the single
// audit entry with the final values.
func (s *recordService) Create(ctx context.Context, user string, form models.RecordForm) (*models.Record, error) {
	if err := validate(form); err != nil {
		return nil, err
	}
	schema := s.Schema()
	fields := form.Fields()

	if schema.Prefix == "" {
		unique, _ := fields[schema.Unique].(string)
		exists, err := s.records.Exists(ctx, unique)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %s %q already exists", ErrConflict, schema.Table, unique)
		}
	} else {
		// Placeholder until the primary key is known; unique per insert so
		// concurrent creates cannot collide.
		fields[schema.Unique] = "pending-" + uuid.NewString()
	}

	checksum, err := s.recordChecksum(fields, 1)
	if err != nil {
		return nil, err
	}

	var id int64
	if schema.Prefix == "" {
		id, err = s.records.Create(ctx, fields, 1, checksum)
		if err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				// The existence check raced a concurrent create.
				unique, _ := fields[schema.Unique].(string)
				return nil, fmt.Errorf("%w: %s %q already exists", ErrConflict, schema.Table, unique)
			}
			return nil, err
		}
	} else {
		// Insert, mint and checksum rewrite run in one transaction: a failed
		// mint leaves no placeholder row behind.
		id, _, err = s.records.CreateMinted(ctx, fields, 1, checksum, func(id int64) (string, string, error) {
			identifier, err := integrity.Identifier(schema.Prefix, id)
			if err != nil {
				return "", "", fmt.Errorf("failed to mint %s identifier: %w", schema.Table, err)
			}
			fields[schema.Unique] = identifier
			minted, err := s.recordChecksum(fields, 1)
			if err != nil {
				return "", "", err
			}
			checksum = minted
			return identifier, minted, nil
		})
		if err != nil {
			return nil, err
		}
	}

	record := &models.Record{ID: id, Version: 1, Checksum: checksum, Fields: fields, Verified: true}
	unique, _ := fields[schema.Unique].(string)

	if err := s.appendAudit(ctx, record, models.ActionCreate, user); err != nil {
		return nil, err
	}
	s.metrics.RecordOperations.WithLabelValues(schema.Table, models.ActionCreate).Inc()
	s.logger.Info("record created", "table", schema.Table, "record", unique, "user", user)
	return record, nil
}

// Update rewrites a record under the optimistic version guard and writes its
// Update audit entry. The unique value is immutable; minted identifiers and
// user-chosen keys both survive every update.
func (s *recordService) Update(ctx context.Context, user, unique string, form models.RecordForm) (*models.Record, error) {
	if err := validate(form); err != nil {
		return nil, err
	}
	current, err := s.records.GetByUnique(ctx, unique)
	if err != nil {
		return nil, err
	}
	schema := s.Schema()

	fields := form.Fields()
	fields[schema.Unique] = current.Fields[schema.Unique]

	version := current.Version + 1
	checksum, err := s.recordChecksum(fields, version)
	if err != nil {
		return nil, err
	}
	if err := s.records.Update(ctx, unique, fields, current.Version, checksum); err != nil {
		return nil, err
	}

	record := &models.Record{ID: current.ID, Version: version, Checksum: checksum, Fields: fields, Verified: true}
	if err := s.appendAudit(ctx, record, models.ActionUpdate, user); err != nil {
		return nil, err
	}
	s.metrics.RecordOperations.WithLabelValues(schema.Table, models.ActionUpdate).Inc()
	s.logger.Info("record updated", "table", schema.Table, "record", unique, "user", user, "version", version)
	return record, nil
}

// Delete captures the record, removes it and writes its Delete audit entry
// with the captured values. Dynamic attributes of the record are removed and
// logged; the audit trail itself is never touched.
func (s *recordService) Delete(ctx context.Context, user, unique string) error {
	schema := s.Schema()
	current, err := s.records.GetByUnique(ctx, unique)
	if err != nil {
		return err
	}

	if err := s.records.Delete(ctx, unique); err != nil {
		return err
	}

	if s.attrs != nil {
		attrs, err := s.attrs.ListByRef(ctx, current.ID)
		if err != nil {
			return err
		}
		if err := s.attrs.DeleteByRef(ctx, current.ID); err != nil {
			return err
		}
		for _, attr := range attrs {
			if err := s.logAttribute(ctx, attr.IDRef, attr.Name, attr.Value, models.ActionDelete, user); err != nil {
				return err
			}
		}
	}

	if err := s.appendAudit(ctx, current, models.ActionDelete, user); err != nil {
		return err
	}
	s.metrics.RecordOperations.WithLabelValues(schema.Table, models.ActionDelete).Inc()
	s.logger.Info("record deleted", "table", schema.Table, "record", unique, "user", user)
	return nil
}

// DeleteBatch deletes a set of records best-effort and reports the per-item
// outcomes. One failing item never aborts the remainder.
func (s *recordService) DeleteBatch(ctx context.Context, user string, uniques []string) []models.Outcome {
	outcomes := make([]models.Outcome, 0, len(uniques))
	for _, unique := range uniques {
		outcome := models.Outcome{Unique: unique, OK: true, Message: "deleted"}
		if err := s.Delete(ctx, user, unique); err != nil {
			outcome.OK = false
			outcome.Message = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// AuditTrail lists the audit entries of one existing record, newest first,
// verifying each entry's checksum.
func (s *recordService) AuditTrail(ctx context.Context, unique string) ([]models.AuditEntry, error) {
	record, err := s.records.GetByUnique(ctx, unique)
	if err != nil {
		return nil, err
	}
	entries, err := s.audit.ListByRef(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	s.verifyEntries(entries)
	return entries, nil
}

// AuditLog lists the whole audit trail of the entity, including entries of
// deleted records.
func (s *recordService) AuditLog(ctx context.Context) ([]models.AuditEntry, error) {
	entries, err := s.audit.List(ctx)
	if err != nil {
		return nil, err
	}
	s.verifyEntries(entries)
	return entries, nil
}

// Attributes lists the dynamic attributes of one record, each verified
func (s *recordService) Attributes(ctx context.Context, unique string) ([]models.DynamicAttribute, error) {
	if s.attrs == nil {
		return nil, fmt.Errorf("%s has no dynamic attributes", s.Schema().Table)
	}
	record, err := s.records.GetByUnique(ctx, unique)
	if err != nil {
		return nil, err
	}
	attrs, err := s.attrs.ListByRef(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	for i := range attrs {
		attrs[i].Verified = s.verifyAttribute(&attrs[i])
	}
	return attrs, nil
}

// SetAttribute upserts one dynamic attribute. A missing attribute row is
// created as a fallback and audited as a Create, an existing one is updated.
func (s *recordService) SetAttribute(ctx context.Context, user, unique string, form *models.AttributeForm) (*models.DynamicAttribute, error) {
	if s.attrs == nil {
		return nil, fmt.Errorf("%s has no dynamic attributes", s.Schema().Table)
	}
	if messages := form.Validate(); len(messages) > 0 {
		return nil, &ValidationError{Messages: messages}
	}
	record, err := s.records.GetByUnique(ctx, unique)
	if err != nil {
		return nil, err
	}

	serial, err := attributeSerial(record.ID, form.Name, form.Value)
	if err != nil {
		return nil, err
	}
	checksum, err := s.engine.Checksum(serial)
	if err != nil {
		return nil, err
	}

	exists, err := s.attrs.Exists(ctx, record.ID, form.Name)
	if err != nil {
		return nil, err
	}

	attr := &models.DynamicAttribute{IDRef: record.ID, Name: form.Name, Value: form.Value, Checksum: checksum, Verified: true}
	action := models.ActionUpdate
	if exists {
		if err := s.attrs.Update(ctx, record.ID, form.Name, form.Value, checksum); err != nil {
			return nil, err
		}
	} else {
		action = models.ActionCreate
		attr.ID, err = s.attrs.Create(ctx, record.ID, form.Name, form.Value, checksum)
		if err != nil {
			return nil, err
		}
	}

	if err := s.logAttribute(ctx, record.ID, form.Name, form.Value, action, user); err != nil {
		return nil, err
	}
	s.logger.Info("attribute set", "table", s.Schema().Table, "record", unique, "attribute", form.Name, "user", user)
	return attr, nil
}

// DeleteAttribute removes one dynamic attribute and logs the deletion
func (s *recordService) DeleteAttribute(ctx context.Context, user, unique, name string) error {
	if s.attrs == nil {
		return fmt.Errorf("%s has no dynamic attributes", s.Schema().Table)
	}
	record, err := s.records.GetByUnique(ctx, unique)
	if err != nil {
		return err
	}
	attr, err := s.attrs.Get(ctx, record.ID, name)
	if err != nil {
		return err
	}
	if err := s.attrs.Delete(ctx, record.ID, name); err != nil {
		return err
	}
	if err := s.logAttribute(ctx, record.ID, name, attr.Value, models.ActionDelete, user); err != nil {
		return err
	}
	s.logger.Info("attribute deleted", "table", s.Schema().Table, "record", unique, "attribute", name, "user", user)
	return nil
}

func (s *recordService) recordChecksum(fields models.Fields, version int) (string, error) {
	serial, err := recordSerial(s.Schema(), fields, version)
	if err != nil {
		return "", err
	}
	return s.engine.Checksum(serial)
}

// appendAudit writes the single audit entry of a successful manipulation
func (s *recordService) appendAudit(ctx context.Context, record *models.Record, action, user string) error {
	schema := s.Schema()

	entry := &models.AuditEntry{
		EntryID:   uuid.NewString(),
		IDRef:     record.ID,
		Fields:    make(models.Fields, len(schema.AuditFieldSet())),
		Version:   record.Version,
		Action:    action,
		User:      user,
		Timestamp: timeNow(),
	}
	for _, f := range schema.AuditFieldSet() {
		entry.Fields[f.Name] = record.Fields[f.Name]
	}

	serial, err := auditSerial(schema, entry)
	if err != nil {
		return err
	}
	entry.Checksum, err = s.engine.Checksum(serial)
	if err != nil {
		return err
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return err
	}
	s.metrics.AuditEntries.WithLabelValues(schema.Table).Inc()
	return nil
}

// logAttribute appends one row to the attribute manipulation log
func (s *recordService) logAttribute(ctx context.Context, idRef int64, name, value, action, user string) error {
	fields := models.Fields{
		"id_ref": idRef, "name": name, "value": value,
		"action": action, "user": user, "timestamp": timeNow(),
	}
	serial, err := logSerial(s.attrLog.Schema(), fields)
	if err != nil {
		return err
	}
	checksum, err := s.engine.Checksum(serial)
	if err != nil {
		return err
	}
	_, err = s.attrLog.Append(ctx, fields, checksum)
	return err
}

// verifyRecord re-derives the record checksum and, when the entity has
// dynamic attributes, every attribute checksum. A verification failure is
// logged and counted but never turned into an error.
func (s *recordService) verifyRecord(ctx context.Context, record *models.Record) bool {
	schema := s.Schema()

	serial, err := recordSerial(schema, record.Fields, record.Version)
	if err != nil {
		s.logger.Warn("record serialization failed", "table", schema.Table, "id", record.ID, "error", err)
		return false
	}
	verified := s.engine.Verify(serial, record.Checksum)
	if !verified {
		s.metrics.VerifyFailures.WithLabelValues(schema.Table).Inc()
		s.logger.Warn("record checksum mismatch", "table", schema.Table, "id", record.ID)
	}

	if s.attrs != nil {
		attrs, err := s.attrs.ListByRef(ctx, record.ID)
		if err != nil {
			s.logger.Warn("attribute fetch failed during verify", "table", schema.Table, "id", record.ID, "error", err)
			return false
		}
		for i := range attrs {
			if !s.verifyAttribute(&attrs[i]) {
				verified = false
			}
		}
	}
	return verified
}

func (s *recordService) verifyAttribute(attr *models.DynamicAttribute) bool {
	serial, err := attributeSerial(attr.IDRef, attr.Name, attr.Value)
	if err != nil {
		return false
	}
	verified := s.engine.Verify(serial, attr.Checksum)
	if !verified {
		s.metrics.VerifyFailures.WithLabelValues(models.ReagentAttributeTable).Inc()
		s.logger.Warn("attribute checksum mismatch", "id_ref", attr.IDRef, "attribute", attr.Name)
	}
	return verified
}

func (s *recordService) verifyEntries(entries []models.AuditEntry) {
	schema := s.Schema()
	for i := range entries {
		serial, err := auditSerial(schema, &entries[i])
		if err != nil {
			continue
		}
		entries[i].Verified = s.engine.Verify(serial, entries[i].Checksum)
		if !entries[i].Verified {
			s.metrics.VerifyFailures.WithLabelValues(schema.AuditTable).Inc()
			s.logger.Warn("audit entry checksum mismatch", "table", schema.AuditTable, "entry", entries[i].EntryID)
		}
	}
}

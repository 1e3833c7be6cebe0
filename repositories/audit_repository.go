package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/turtlelab/labtrack/models"
)

// AuditStore defines the operations on one entity's audit trail. The trail
// is append-only: there is no update and no delete, not even when the
// audited record itself is deleted.
type AuditStore interface {
	Schema() models.Schema
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListByRef(ctx context.Context, idRef int64) ([]models.AuditEntry, error)
	List(ctx context.Context) ([]models.AuditEntry, error)
	Count(ctx context.Context) (int, error)
}

// auditStore implements AuditStore on SQLite
type auditStore struct {
	db     *sql.DB
	schema models.Schema
}

// NewAuditStore creates an audit store for one entity schema
func NewAuditStore(db *sql.DB, schema models.Schema) AuditStore {
	return &auditStore{db: db, schema: schema}
}

func (r *auditStore) Schema() models.Schema {
	return r.schema
}

// Append inserts one audit trail entry and fills in its primary key
func (r *auditStore) Append(ctx context.Context, entry *models.AuditEntry) error {
	fields := r.schema.AuditFieldSet()

	columns := make([]string, 0, len(fields)+6)
	args := make([]any, 0, len(fields)+6)
	columns = append(columns, "entry_id", "id_ref")
	args = append(args, entry.EntryID, entry.IDRef)
	for _, f := range fields {
		columns = append(columns, quote(f.Name))
		args = append(args, driverValue(f.Kind, entry.Fields[f.Name]))
	}
	columns = append(columns, "version", quote("action"), quote("user"), quote("timestamp"), "checksum")
	args = append(args, entry.Version, entry.Action, entry.User, entry.Timestamp.UTC(), entry.Checksum)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(r.schema.AuditTable), strings.Join(columns, ", "), placeholders(len(columns)))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to append %s entry: %w", r.schema.AuditTable, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get %s insert id: %w", r.schema.AuditTable, err)
	}
	entry.ID = id
	return nil
}

// ListByRef retrieves the full trail of one record, newest first
func (r *auditStore) ListByRef(ctx context.Context, idRef int64) ([]models.AuditEntry, error) {
	return r.list(ctx, " WHERE id_ref = ?", idRef)
}

// List retrieves the whole trail table, newest first. Trails outlive their
// records, so this is the only way to inspect the history of a deleted one.
func (r *auditStore) List(ctx context.Context) ([]models.AuditEntry, error) {
	return r.list(ctx, "")
}

func (r *auditStore) list(ctx context.Context, where string, args ...any) ([]models.AuditEntry, error) {
	fields := r.schema.AuditFieldSet()

	columns := make([]string, 0, len(fields)+7)
	columns = append(columns, "id", "entry_id", "id_ref")
	for _, f := range fields {
		columns = append(columns, quote(f.Name))
	}
	columns = append(columns, "version", quote("action"), quote("user"), quote("timestamp"), "checksum")

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id DESC",
		strings.Join(columns, ", "), quote(r.schema.AuditTable), where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.schema.AuditTable, err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		entry := models.AuditEntry{Fields: make(models.Fields, len(fields))}
		scanners := make([]*fieldScanner, len(fields))

		dests := make([]any, 0, len(columns))
		dests = append(dests, &entry.ID, &entry.EntryID, &entry.IDRef)
		for i, f := range fields {
			scanners[i] = &fieldScanner{kind: f.Kind}
			dests = append(dests, scanners[i].dest())
		}
		var timestamp sql.NullTime
		dests = append(dests, &entry.Version, &entry.Action, &entry.User, &timestamp, &entry.Checksum)

		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.schema.AuditTable, err)
		}
		for i, f := range fields {
			entry.Fields[f.Name] = scanners[i].value()
		}
		if timestamp.Valid {
			entry.Timestamp = timestamp.Time.UTC()
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", r.schema.AuditTable, err)
	}
	return entries, nil
}

// Count returns the total number of trail entries
func (r *auditStore) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quote(r.schema.AuditTable))

	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.schema.AuditTable, err)
	}
	return count, nil
}

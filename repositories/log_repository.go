package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/turtlelab/labtrack/models"
)

// LogStore defines the operations on one append-only event log table.
// Rows are written once and never changed; there is no version counter.
type LogStore interface {
	Schema() models.Schema
	Append(ctx context.Context, fields models.Fields, checksum string) (int64, error)
	Filter(ctx context.Context, criteria models.Fields, orderBy string) ([]models.Record, error)
	Count(ctx context.Context) (int, error)
}

// logStore implements LogStore on SQLite
type logStore struct {
	db     *sql.DB
	schema models.Schema
}

// NewLogStore creates a log store for one event log schema
func NewLogStore(db *sql.DB, schema models.Schema) LogStore {
	return &logStore{db: db, schema: schema}
}

func (r *logStore) Schema() models.Schema {
	return r.schema
}

// Append inserts one log row and returns its primary key
func (r *logStore) Append(ctx context.Context, fields models.Fields, checksum string) (int64, error) {
	columns := make([]string, 0, len(r.schema.Fields)+1)
	args := make([]any, 0, len(r.schema.Fields)+1)
	for _, f := range r.schema.Fields {
		columns = append(columns, quote(f.Name))
		args = append(args, driverValue(f.Kind, fields[f.Name]))
	}
	columns = append(columns, "checksum")
	args = append(args, checksum)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(r.schema.Table), strings.Join(columns, ", "), placeholders(len(columns)))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to append %s: %w", r.schema.Table, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get %s insert id: %w", r.schema.Table, err)
	}
	return id, nil
}

// Filter retrieves log rows matching the criteria, see RecordStore.Filter.
// Version stays zero on the returned records.
func (r *logStore) Filter(ctx context.Context, criteria models.Fields, orderBy string) ([]models.Record, error) {
	columns := make([]string, 0, len(r.schema.Fields)+2)
	columns = append(columns, "id")
	for _, f := range r.schema.Fields {
		columns = append(columns, quote(f.Name))
	}
	columns = append(columns, "checksum")

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), quote(r.schema.Table))

	where, args, err := whereClause(r.schema, criteria)
	if err != nil {
		return nil, err
	}
	query += where

	order, err := orderClause(r.schema, orderBy)
	if err != nil {
		return nil, err
	}
	query += order

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.schema.Table, err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		record := models.Record{Fields: make(models.Fields, len(r.schema.Fields))}
		scanners := make([]*fieldScanner, len(r.schema.Fields))

		dests := make([]any, 0, len(columns))
		dests = append(dests, &record.ID)
		for i, f := range r.schema.Fields {
			scanners[i] = &fieldScanner{kind: f.Kind}
			dests = append(dests, scanners[i].dest())
		}
		dests = append(dests, &record.Checksum)

		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.schema.Table, err)
		}
		for i, f := range r.schema.Fields {
			record.Fields[f.Name] = scanners[i].value()
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", r.schema.Table, err)
	}
	return records, nil
}

// Count returns the total number of log rows
func (r *logStore) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quote(r.schema.Table))

	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.schema.Table, err)
	}
	return count, nil
}

// TimesStore extends the log store for the freeze/thaw interval table. It is
// the single exception to log immutability: the duration of an interval is
// unknown until the next movement closes it, so one targeted update exists
// and it rewrites the row checksum along with the duration.
type TimesStore interface {
	LogStore
	CountByRef(ctx context.Context, idRef int64) (int, error)
	LastByRef(ctx context.Context, idRef int64) (*models.Record, error)
	CloseInterval(ctx context.Context, id int64, duration time.Duration, checksum string) error
}

// timesStore implements TimesStore on SQLite
type timesStore struct {
	logStore
}

// NewTimesStore creates the freeze/thaw interval store
func NewTimesStore(db *sql.DB) TimesStore {
	return &timesStore{logStore{db: db, schema: models.TimesSchema}}
}

// CountByRef returns the number of intervals recorded for one sample
func (r *timesStore) CountByRef(ctx context.Context, idRef int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM times WHERE id_ref = ?`, idRef).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count times for %d: %w", idRef, err)
	}
	return count, nil
}

// LastByRef returns the most recent interval of one sample, or ErrNotFound
func (r *timesStore) LastByRef(ctx context.Context, idRef int64) (*models.Record, error) {
	records, err := r.Filter(ctx, models.Fields{"id_ref": idRef}, "-id")
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

// CloseInterval fills in the duration of an open interval
func (r *timesStore) CloseInterval(ctx context.Context, id int64, duration time.Duration, checksum string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE times SET duration = ?, checksum = ? WHERE id = ?`,
		int64(duration/time.Second), checksum, id)
	if err != nil {
		return fmt.Errorf("failed to close interval %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get interval update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

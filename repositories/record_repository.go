package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/turtlelab/labtrack/models"
)

// RecordStore defines the database operations shared by every versioned
// entity table. Which table a store works on is fixed by its schema, so the
// manipulation engine stays entity-agnostic.
//
// The store never computes versions or checksums; it persists what the
// service hands it. Update is guarded by the expected version: if the stored
// version moved in the meantime, no row matches and the caller gets
// ErrVersionMismatch instead of a silent lost update.
type RecordStore interface {
	Schema() models.Schema
	Exists(ctx context.Context, unique string) (bool, error)
	GetByUnique(ctx context.Context, unique string) (*models.Record, error)
	GetByID(ctx context.Context, id int64) (*models.Record, error)
	Filter(ctx context.Context, criteria models.Fields, orderBy string) ([]models.Record, error)
	Create(ctx context.Context, fields models.Fields, version int, checksum string) (int64, error)
	CreateMinted(ctx context.Context, fields models.Fields, version int, checksum string, mint MintFunc) (int64, string, error)
	Update(ctx context.Context, unique string, fields models.Fields, expectedVersion int, checksum string) error
	Delete(ctx context.Context, unique string) error
	SetAux(ctx context.Context, unique string, column string, value any) error
	Count(ctx context.Context) (int, error)
}

// recordStore implements RecordStore on SQLite
type recordStore struct {
	db     *sql.DB
	schema models.Schema
}

// NewRecordStore creates a record store bound to one entity schema
func NewRecordStore(db *sql.DB, schema models.Schema) RecordStore {
	return &recordStore{db: db, schema: schema}
}

func (r *recordStore) Schema() models.Schema {
	return r.schema
}

// Exists reports whether a record with the given unique value is present
func (r *recordStore) Exists(ctx context.Context, unique string) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?",
		quote(r.schema.Table), quote(r.schema.Unique))

	var count int
	if err := r.db.QueryRowContext(ctx, query, unique).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check %s existence: %w", r.schema.Table, err)
	}
	return count > 0, nil
}

// GetByUnique retrieves one record by its unique business value
func (r *recordStore) GetByUnique(ctx context.Context, unique string) (*models.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		r.selectColumns(), quote(r.schema.Table), quote(r.schema.Unique))

	record, err := r.scanOne(r.db.QueryRowContext(ctx, query, unique))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %q: %w", r.schema.Table, unique, err)
	}
	return record, nil
}

// GetByID retrieves one record by its internal primary key
func (r *recordStore) GetByID(ctx context.Context, id int64) (*models.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?",
		r.selectColumns(), quote(r.schema.Table))

	record, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s id %d: %w", r.schema.Table, id, err)
	}
	return record, nil
}

// Filter retrieves all records matching the criteria (AND-combined equality
// on business fields). An empty criteria map returns the whole table.
// orderBy is a business field or "id", with a leading "-" for descending.
func (r *recordStore) Filter(ctx context.Context, criteria models.Fields, orderBy string) ([]models.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", r.selectColumns(), quote(r.schema.Table))

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
		record, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.schema.Table, err)
		}
		records = append(records, *record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", r.schema.Table, err)
	}
	return records, nil
}

// Create inserts a new record and returns its primary key
func (r *recordStore) Create(ctx context.Context, fields models.Fields, version int, checksum string) (int64, error) {
	return r.insert(ctx, r.db, fields, version, checksum)
}

// MintFunc derives the final unique value of a freshly inserted record from
// its primary key and returns it with the checksum recomputed over it.
type MintFunc func(id int64) (unique string, checksum string, err error)

// CreateMinted inserts a record and rewrites its unique value and checksum
// inside one transaction, for entities whose identifier derives from the
// primary key. A failure at any step rolls the insert back, so no
// placeholder row survives a failed mint.
func (r *recordStore) CreateMinted(ctx context.Context, fields models.Fields, version int, checksum string, mint MintFunc) (int64, string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, "", fmt.Errorf("failed to begin %s create: %w", r.schema.Table, err)
	}
	defer tx.Rollback()

	id, err := r.insert(ctx, tx, fields, version, checksum)
	if err != nil {
		return 0, "", err
	}
	unique, minted, err := mint(id)
	if err != nil {
		return 0, "", err
	}

	query := fmt.Sprintf("UPDATE %s SET %s = ?, checksum = ? WHERE id = ?",
		quote(r.schema.Table), quote(r.schema.Unique))
	if _, err := tx.ExecContext(ctx, query, unique, minted, id); err != nil {
		return 0, "", fmt.Errorf("failed to assign %s identifier: %w", r.schema.Table, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, "", fmt.Errorf("failed to commit %s create: %w", r.schema.Table, err)
	}
	return id, unique, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *recordStore) insert(ctx context.Context, ex execer, fields models.Fields, version int, checksum string) (int64, error) {
	columns := make([]string, 0, len(r.schema.Fields)+2)
	args := make([]any, 0, len(r.schema.Fields)+2)
	for _, f := range r.schema.Fields {
		columns = append(columns, quote(f.Name))
		args = append(args, driverValue(f.Kind, fields[f.Name]))
	}
	columns = append(columns, "version", "checksum")
	args = append(args, version, checksum)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(r.schema.Table), strings.Join(columns, ", "), placeholders(len(columns)))

	result, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to create %s: %w", r.schema.Table, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get %s insert id: %w", r.schema.Table, err)
	}
	return id, nil
}

// Update rewrites a record's fields, version and checksum, guarded by the
// version the caller read. Zero affected rows means either the record is
// gone or its version moved; the caller distinguishes via Exists.
func (r *recordStore) Update(ctx context.Context, unique string, fields models.Fields, expectedVersion int, checksum string) error {
	sets := make([]string, 0, len(r.schema.Fields)+2)
	args := make([]any, 0, len(r.schema.Fields)+4)
	for _, f := range r.schema.Fields {
		sets = append(sets, quote(f.Name)+" = ?")
		args = append(args, driverValue(f.Kind, fields[f.Name]))
	}
	sets = append(sets, "version = ?", "checksum = ?")
	args = append(args, expectedVersion+1, checksum)
	args = append(args, unique, expectedVersion)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ? AND version = ?",
		quote(r.schema.Table), strings.Join(sets, ", "), quote(r.schema.Unique))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %q: %w", r.schema.Table, unique, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get %s update result: %w", r.schema.Table, err)
	}
	if affected == 0 {
		exists, err := r.Exists(ctx, unique)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionMismatch
	}
	return nil
}

// Delete removes a record by its unique value
func (r *recordStore) Delete(ctx context.Context, unique string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		quote(r.schema.Table), quote(r.schema.Unique))

	result, err := r.db.ExecContext(ctx, query, unique)
	if err != nil {
		return fmt.Errorf("failed to delete %s %q: %w", r.schema.Table, unique, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get %s delete result: %w", r.schema.Table, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAux writes one auxiliary column. Aux columns sit outside the checksum
// and version coverage, so no guard or recompute applies.
func (r *recordStore) SetAux(ctx context.Context, unique string, column string, value any) error {
	var field models.Field
	found := false
	for _, f := range r.schema.Aux {
		if f.Name == column {
			field = f
			found = true
		}
	}
	if !found {
		return fmt.Errorf("unknown aux column %q for %s", column, r.schema.Table)
	}

	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		quote(r.schema.Table), quote(column), quote(r.schema.Unique))

	result, err := r.db.ExecContext(ctx, query, driverValue(field.Kind, value), unique)
	if err != nil {
		return fmt.Errorf("failed to set %s.%s: %w", r.schema.Table, column, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get %s aux result: %w", r.schema.Table, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of records
func (r *recordStore) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quote(r.schema.Table))

	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.schema.Table, err)
	}
	return count, nil
}

func (r *recordStore) selectColumns() string {
	columns := make([]string, 0, len(r.schema.Fields)+len(r.schema.Aux)+3)
	columns = append(columns, "id")
	for _, f := range r.schema.Fields {
		columns = append(columns, quote(f.Name))
	}
	columns = append(columns, "version", "checksum")
	for _, f := range r.schema.Aux {
		columns = append(columns, quote(f.Name))
	}
	return strings.Join(columns, ", ")
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *recordStore) scanOne(row rowScanner) (*models.Record, error) {
	record := &models.Record{Fields: make(models.Fields, len(r.schema.Fields)+len(r.schema.Aux))}
	scanners := make([]*fieldScanner, len(r.schema.Fields))
	auxScanners := make([]*fieldScanner, len(r.schema.Aux))

	dests := make([]any, 0, len(r.schema.Fields)+len(r.schema.Aux)+3)
	dests = append(dests, &record.ID)
	for i, f := range r.schema.Fields {
		scanners[i] = &fieldScanner{kind: f.Kind}
		dests = append(dests, scanners[i].dest())
	}
	dests = append(dests, &record.Version, &record.Checksum)
	for i, f := range r.schema.Aux {
		auxScanners[i] = &fieldScanner{kind: f.Kind}
		dests = append(dests, auxScanners[i].dest())
	}

	if err := row.Scan(dests...); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	for i, f := range r.schema.Fields {
		record.Fields[f.Name] = scanners[i].value()
	}
	for i, f := range r.schema.Aux {
		if v := auxScanners[i].value(); v != nil {
			record.Fields[f.Name] = v
		}
	}
	return record, nil
}

// fieldScanner scans one nullable business column by kind and converts the
// database representation back to the canonical in-memory one.
type fieldScanner struct {
	kind models.Kind
	s    sql.NullString
	i    sql.NullInt64
	b    sql.NullBool
	t    sql.NullTime
}

func (fs *fieldScanner) dest() any {
	switch fs.kind {
	case models.Int, models.Duration:
		return &fs.i
	case models.Bool:
		return &fs.b
	case models.Time:
		return &fs.t
	default:
		return &fs.s
	}
}

func (fs *fieldScanner) value() any {
	switch fs.kind {
	case models.Int:
		if !fs.i.Valid {
			return nil
		}
		return fs.i.Int64
	case models.Duration:
		if !fs.i.Valid {
			return nil
		}
		return time.Duration(fs.i.Int64) * time.Second
	case models.Bool:
		if !fs.b.Valid {
			return nil
		}
		return fs.b.Bool
	case models.Time:
		if !fs.t.Valid {
			return nil
		}
		return fs.t.Time.UTC()
	default:
		if !fs.s.Valid {
			return nil
		}
		return fs.s.String
	}
}

// driverValue converts an in-memory field value to its stored form.
// Durations are persisted as whole seconds.
func driverValue(kind models.Kind, v any) any {
	if v == nil {
		return nil
	}
	if kind == models.Duration {
		if d, ok := v.(time.Duration); ok {
			return int64(d / time.Second)
		}
	}
	if kind == models.Time {
		if t, ok := v.(time.Time); ok {
			return t.UTC()
		}
	}
	return v
}

func quote(name string) string {
	return `"` + name + `"`
}

func placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	return strings.Join(marks, ", ")
}

// whereClause builds an AND-combined equality filter over business fields.
// Field names are validated against the schema, values are bound parameters.
func whereClause(schema models.Schema, criteria models.Fields) (string, []any, error) {
	if len(criteria) == 0 {
		return "", nil, nil
	}
	// Deterministic clause order keeps queries stable for the planner.
	clauses := make([]string, 0, len(criteria))
	args := make([]any, 0, len(criteria))
	for _, f := range schema.Fields {
		v, ok := criteria[f.Name]
		if !ok {
			continue
		}
		clauses = append(clauses, quote(f.Name)+" = ?")
		args = append(args, driverValue(f.Kind, v))
	}
	if len(clauses) != len(criteria) {
		for name := range criteria {
			if _, ok := schema.FieldByName(name); !ok {
				return "", nil, fmt.Errorf("unknown filter field %q for %s", name, schema.Table)
			}
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// orderClause translates "field" / "-field" into an ORDER BY clause.
func orderClause(schema models.Schema, orderBy string) (string, error) {
	if orderBy == "" {
		return "", nil
	}
	column := orderBy
	desc := false
	if strings.HasPrefix(orderBy, "-") {
		column = orderBy[1:]
		desc = true
	}
	if column != "id" {
		if _, ok := schema.FieldByName(column); !ok {
			return "", fmt.Errorf("unknown order field %q for %s", column, schema.Table)
		}
	}
	clause := " ORDER BY " + quote(column)
	if desc {
		clause += " DESC"
	}
	return clause, nil
}

package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/turtlelab/labtrack/models"
)

// DynamicStore defines the operations on the reagent attribute side table.
// An attribute row is keyed by (owning record id, attribute name) and
// carries its own checksum; it has no version counter, its history lives in
// the attribute log instead.
type DynamicStore interface {
	Get(ctx context.Context, idRef int64, name string) (*models.DynamicAttribute, error)
	ListByRef(ctx context.Context, idRef int64) ([]models.DynamicAttribute, error)
	Exists(ctx context.Context, idRef int64, name string) (bool, error)
	Create(ctx context.Context, idRef int64, name, value, checksum string) (int64, error)
	Update(ctx context.Context, idRef int64, name, value, checksum string) error
	Delete(ctx context.Context, idRef int64, name string) error
	DeleteByRef(ctx context.Context, idRef int64) error
}

// dynamicStore implements DynamicStore on SQLite
type dynamicStore struct {
	db *sql.DB
}

// NewDynamicStore creates the reagent attribute store
func NewDynamicStore(db *sql.DB) DynamicStore {
	return &dynamicStore{db: db}
}

// Get retrieves one attribute of a record by name
func (r *dynamicStore) Get(ctx context.Context, idRef int64, name string) (*models.DynamicAttribute, error) {
	query := `SELECT id, id_ref, name, value, checksum FROM reagent_attributes
		WHERE id_ref = ? AND name = ?`

	var attr models.DynamicAttribute
	var value sql.NullString
	err := r.db.QueryRowContext(ctx, query, idRef, name).Scan(
		&attr.ID, &attr.IDRef, &attr.Name, &value, &attr.Checksum)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get attribute %q of %d: %w", name, idRef, err)
	}
	attr.Value = value.String
	return &attr, nil
}

// ListByRef retrieves all attributes of one record, ordered by name
func (r *dynamicStore) ListByRef(ctx context.Context, idRef int64) ([]models.DynamicAttribute, error) {
	query := `SELECT id, id_ref, name, value, checksum FROM reagent_attributes
		WHERE id_ref = ? ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, idRef)
	if err != nil {
		return nil, fmt.Errorf("failed to query attributes of %d: %w", idRef, err)
	}
	defer rows.Close()

	var attrs []models.DynamicAttribute
	for rows.Next() {
		var attr models.DynamicAttribute
		var value sql.NullString
		if err := rows.Scan(&attr.ID, &attr.IDRef, &attr.Name, &value, &attr.Checksum); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		attr.Value = value.String
		attrs = append(attrs, attr)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attributes: %w", err)
	}
	return attrs, nil
}

// Exists reports whether a record has an attribute with the given name
func (r *dynamicStore) Exists(ctx context.Context, idRef int64, name string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reagent_attributes WHERE id_ref = ? AND name = ?`,
		idRef, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check attribute existence: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new attribute row
func (r *dynamicStore) Create(ctx context.Context, idRef int64, name, value, checksum string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO reagent_attributes (id_ref, name, value, checksum) VALUES (?, ?, ?, ?)`,
		idRef, name, value, checksum)
	if err != nil {
		return 0, fmt.Errorf("failed to create attribute %q of %d: %w", name, idRef, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get attribute insert id: %w", err)
	}
	return id, nil
}

// Update rewrites an attribute's value and checksum
func (r *dynamicStore) Update(ctx context.Context, idRef int64, name, value, checksum string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reagent_attributes SET value = ?, checksum = ? WHERE id_ref = ? AND name = ?`,
		value, checksum, idRef, name)
	if err != nil {
		return fmt.Errorf("failed to update attribute %q of %d: %w", name, idRef, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get attribute update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one attribute row
func (r *dynamicStore) Delete(ctx context.Context, idRef int64, name string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reagent_attributes WHERE id_ref = ? AND name = ?`, idRef, name)
	if err != nil {
		return fmt.Errorf("failed to delete attribute %q of %d: %w", name, idRef, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get attribute delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByRef removes all attributes of one record, used when the owning
// record is deleted. Zero rows is not an error here.
func (r *dynamicStore) DeleteByRef(ctx context.Context, idRef int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM reagent_attributes WHERE id_ref = ?`, idRef)
	if err != nil {
		return fmt.Errorf("failed to delete attributes of %d: %w", idRef, err)
	}
	return nil
}

package models

import "time"

// Fields is an entity's business field values keyed by field name.
type Fields map[string]any

// Clone returns a shallow copy so callers can capture a snapshot before
// mutating.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Record is one row of an entity table as fetched from the record store.
// Verified is the read-time integrity signal: it never blocks the read, a
// failing row is surfaced and flagged.
type Record struct {
	ID       int64  `json:"id"`
	Version  int    `json:"version"`
	Checksum string `json:"checksum"`
	Fields   Fields `json:"fields"`
	Verified bool   `json:"verified"`
}

// Audit trail actions. Every successful create/update/delete writes exactly
// one entry with one of these.
const (
	ActionCreate = "Create"
	ActionUpdate = "Update"
	ActionDelete = "Delete"
)

// AuditEntry is an immutable snapshot of a record at the moment of an action.
// Entries are append-only: never updated, never deleted. EntryID is an
// external reference id and is not covered by the checksum.
type AuditEntry struct {
	ID        int64     `json:"id"`
	EntryID   string    `json:"entry_id"`
	IDRef     int64     `json:"id_ref"`
	Fields    Fields    `json:"fields"`
	Version   int       `json:"version"`
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
	Checksum  string    `json:"checksum"`
	Verified  bool      `json:"verified"`
}

// DynamicAttribute is one type-configurable extra column of a record,
// modeled as a side-table row keyed by (owning id, attribute name) with its
// own checksum. A composite record only verifies if the main row and every
// attribute row verify.
type DynamicAttribute struct {
	ID       int64  `json:"id"`
	IDRef    int64  `json:"id_ref"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Checksum string `json:"checksum"`
	Verified bool   `json:"verified"`
}

// Outcome reports one item of a batch operation. Batch deletes are
// best-effort: a failing item never aborts the rest, callers get the
// per-item result instead of a single aggregate boolean.
type Outcome struct {
	Unique  string `json:"unique"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// RecordForm is implemented by the per-entity HTTP forms.
type RecordForm interface {
	Validate() []string
	Fields() Fields
}

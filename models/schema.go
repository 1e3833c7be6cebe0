package models

// Kind describes how a business field is stored and canonically serialized.
type Kind int

const (
	Text Kind = iota
	Int
	Bool
	Time
	Duration
)

// Field is a single business column of an entity.
type Field struct {
	Name string
	Kind Kind
}

// Schema is the fixed definition of one entity table. The checksum field
// order is the order of Fields; it must never change once checksums have
// been stored, because the canonical serialization is derived from it.
type Schema struct {
	// Table is the record table name.
	Table string
	// AuditTable is the paired audit trail table, empty for append-only logs.
	AuditTable string
	// Unique names the business field used to address records externally.
	// The internal primary key is only used for audit linkage and
	// identifier minting. Empty for append-only logs.
	Unique string
	// Prefix is the one-character identifier prefix for entities whose
	// unique value is minted from the primary key ("" for user-chosen keys).
	Prefix string
	// Versioned records carry a monotonic version counter; append-only logs
	// do not.
	Versioned bool
	// Fields lists all business fields in checksum order.
	Fields []Field
	// AuditFields overrides the field set captured in audit trail entries.
	// Nil means audit entries snapshot all business fields. Users exclude
	// the password hash from their audit snapshots.
	AuditFields []Field
	// Aux lists columns stored on the row but outside the checksum and
	// version coverage, such as the users' last_login timestamp. They are
	// read with the record and written through RecordStore.SetAux only.
	Aux []Field
}

// FieldOrder returns the checksum field order for record serialization.
func (s Schema) FieldOrder() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// AuditFieldSet returns the fields snapshotted into audit trail entries.
func (s Schema) AuditFieldSet() []Field {
	if s.AuditFields != nil {
		return s.AuditFields
	}
	return s.Fields
}

// AuditFieldOrder returns the audit checksum field order.
func (s Schema) AuditFieldOrder() []string {
	fields := s.AuditFieldSet()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// FieldByName looks a business field up by name.
func (s Schema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Tables lists every schema for migrations and export tooling.
func Tables() []Schema {
	return []Schema{
		ConditionSchema,
		LocationSchema,
		BoxSchema,
		SampleSchema,
		ReagentSchema,
		AccountSchema,
		RoleSchema,
		UserSchema,
		LoginLogSchema,
		MovementLogSchema,
		LabelLogSchema,
		BoxingLogSchema,
		TimesSchema,
	}
}

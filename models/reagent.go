package models

// ReagentSchema describes reagents. The unique value is minted from the
// primary key with prefix "P" after creation. Reagent types are configurable,
// so type-specific columns live in the reagent_attributes side table as
// dynamic attributes rather than schema columns.
var ReagentSchema = Schema{
	Table:      "reagents",
	AuditTable: "reagents_audit_trail",
	Unique:     "reagent",
	Prefix:     "P",
	Versioned:  true,
	Fields: []Field{
		{Name: "reagent", Kind: Text},
		{Name: "name", Kind: Text},
		{Name: "type", Kind: Text},
	},
}

// ReagentAttributeTable is the side table holding one row per
// (owning reagent id, attribute name) pair.
const ReagentAttributeTable = "reagent_attributes"

// ReagentAttributeLogSchema is the append-only audit log for dynamic
// attribute manipulations. Attribute rows carry no version, so their audit
// records are plain checksummed log entries.
var ReagentAttributeLogSchema = Schema{
	Table: "reagent_attribute_log",
	Fields: []Field{
		{Name: "id_ref", Kind: Int},
		{Name: "name", Kind: Text},
		{Name: "value", Kind: Text},
		{Name: "action", Kind: Text},
		{Name: "user", Kind: Text},
		{Name: "timestamp", Kind: Time},
	},
}

// ReagentForm represents form data for creating/updating reagents
type ReagentForm struct {
	Reagent string `json:"reagent,omitempty"`
	Name    string `json:"name"`
	Type    string `json:"type"`
}

// Validate validates the reagent form data
func (f *ReagentForm) Validate() []string {
	var errors []string
	if f.Name == "" {
		errors = append(errors, "Name is required")
	}
	if f.Type == "" {
		errors = append(errors, "Type is required")
	}
	return errors
}

// Fields returns the form values keyed for the manipulation engine
func (f *ReagentForm) Fields() Fields {
	return Fields{
		"reagent": f.Reagent,
		"name":    f.Name,
		"type":    f.Type,
	}
}

// AttributeForm represents form data for setting a dynamic attribute
type AttributeForm struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Validate validates the attribute form data
func (f *AttributeForm) Validate() []string {
	var errors []string
	if f.Name == "" {
		errors = append(errors, "Attribute name is required")
	}
	if len(f.Name) > 50 {
		errors = append(errors, "Attribute name must be less than 50 characters")
	}
	return errors
}

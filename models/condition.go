package models

// ConditionSchema describes storage conditions (e.g. "-80", "RT"). The
// condition name is both the unique field and the only business field.
var ConditionSchema = Schema{
	Table:      "conditions",
	AuditTable: "conditions_audit_trail",
	Unique:     "condition",
	Versioned:  true,
	Fields: []Field{
		{Name: "condition", Kind: Text},
	},
}

// ConditionForm represents form data for creating/updating conditions
type ConditionForm struct {
	Condition string `json:"condition"`
}

// Validate validates the condition form data
func (f *ConditionForm) Validate() []string {
	var errors []string
	if f.Condition == "" {
		errors = append(errors, "Condition is required")
	}
	if len(f.Condition) > 50 {
		errors = append(errors, "Condition must be less than 50 characters")
	}
	return errors
}

// Fields returns the form values keyed for the manipulation engine
func (f *ConditionForm) Fields() Fields {
	return Fields{"condition": f.Condition}
}

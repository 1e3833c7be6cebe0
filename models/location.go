package models

// LocationSchema describes storage locations (freezers, shelves). The unique
// value is minted from the primary key with prefix "L" after creation.
var LocationSchema = Schema{
	Table:      "locations",
	AuditTable: "locations_audit_trail",
	Unique:     "location",
	Prefix:     "L",
	Versioned:  true,
	Fields: []Field{
		{Name: "location", Kind: Text},
		{Name: "name", Kind: Text},
		{Name: "condition", Kind: Text},
		{Name: "max_boxes", Kind: Int},
	},
}

// LocationForm represents form data for creating/updating locations
type LocationForm struct {
	Location  string `json:"location,omitempty"`
	Name      string `json:"name"`
	Condition string `json:"condition"`
	MaxBoxes  int    `json:"max_boxes"`
}

// Validate validates the location form data
func (f *LocationForm) Validate() []string {
	var errors []string
	if f.Name == "" {
		errors = append(errors, "Name is required")
	}
	if f.Condition == "" {
		errors = append(errors, "Condition is required")
	}
	if f.MaxBoxes < 0 {
		errors = append(errors, "Max boxes must not be negative")
	}
	return errors
}

// Fields returns the form values keyed for the manipulation engine. The
// location identifier is minted after create, so new records pass it empty.
func (f *LocationForm) Fields() Fields {
	return Fields{
		"location":  f.Location,
		"name":      f.Name,
		"condition": f.Condition,
		"max_boxes": f.MaxBoxes,
	}
}

package models

// Box alignment and type choices, matching the label printing conventions.
var (
	BoxAlignments = []string{"Horizontal", "Vertical"}
	BoxTypes      = []string{"Numeric", "Alphabetic"}
	BoxOrigins    = []string{"Top Left", "Top Right", "Bottom Left", "Bottom Right"}
)

// BoxSchema describes sample boxes. The unique value is minted from the
// primary key with prefix "B" after creation.
var BoxSchema = Schema{
	Table:      "boxes",
	AuditTable: "boxes_audit_trail",
	Unique:     "box",
	Prefix:     "B",
	Versioned:  true,
	Fields: []Field{
		{Name: "box", Kind: Text},
		{Name: "name", Kind: Text},
		{Name: "alignment", Kind: Text},
		{Name: "row_type", Kind: Text},
		{Name: "rows", Kind: Int},
		{Name: "column_type", Kind: Text},
		{Name: "columns", Kind: Int},
		{Name: "origin", Kind: Text},
	},
}

// BoxForm represents form data for creating/updating boxes
type BoxForm struct {
	Box        string `json:"box,omitempty"`
	Name       string `json:"name"`
	Alignment  string `json:"alignment"`
	RowType    string `json:"row_type"`
	Rows       int    `json:"rows"`
	ColumnType string `json:"column_type"`
	Columns    int    `json:"columns"`
	Origin     string `json:"origin"`
}

// Validate validates the box form data
func (f *BoxForm) Validate() []string {
	var errors []string
	if f.Name == "" {
		errors = append(errors, "Name is required")
	}
	if !contains(BoxAlignments, f.Alignment) {
		errors = append(errors, "Alignment must be Horizontal or Vertical")
	}
	if !contains(BoxTypes, f.RowType) {
		errors = append(errors, "Row type must be Numeric or Alphabetic")
	}
	if !contains(BoxTypes, f.ColumnType) {
		errors = append(errors, "Column type must be Numeric or Alphabetic")
	}
	if f.Rows <= 0 {
		errors = append(errors, "Rows must be positive")
	}
	if f.Columns <= 0 {
		errors = append(errors, "Columns must be positive")
	}
	if !contains(BoxOrigins, f.Origin) {
		errors = append(errors, "Origin is invalid")
	}
	return errors
}

// Fields returns the form values keyed for the manipulation engine
func (f *BoxForm) Fields() Fields {
	return Fields{
		"box":         f.Box,
		"name":        f.Name,
		"alignment":   f.Alignment,
		"row_type":    f.RowType,
		"rows":        f.Rows,
		"column_type": f.ColumnType,
		"columns":     f.Columns,
		"origin":      f.Origin,
	}
}

// contains checks if a string slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

package models

// Sample type and volume unit choices.
var (
	SampleTypes = []string{"Internal", "External"}
	VolumeUnits = []string{"ml", "ul", "g", "mg", "pieces"}
)

// SampleSchema describes samples. The unique value is minted from the
// primary key with prefix "S" after creation.
var SampleSchema = Schema{
	Table:      "samples",
	AuditTable: "samples_audit_trail",
	Unique:     "sample",
	Prefix:     "S",
	Versioned:  true,
	Fields: []Field{
		{Name: "sample", Kind: Text},
		{Name: "name", Kind: Text},
		{Name: "account", Kind: Text},
		{Name: "type", Kind: Text},
		{Name: "volume", Kind: Text},
		{Name: "uom", Kind: Text},
	},
}

// SampleForm represents form data for creating/updating samples
type SampleForm struct {
	Sample  string `json:"sample,omitempty"`
	Name    string `json:"name"`
	Account string `json:"account"`
	Type    string `json:"type"`
	Volume  string `json:"volume"`
	UOM     string `json:"uom"`
}

// Validate validates the sample form data
func (f *SampleForm) Validate() []string {
	var errors []string
	if f.Name == "" {
		errors = append(errors, "Name is required")
	}
	if f.Account == "" {
		errors = append(errors, "Freeze-thaw account is required")
	}
	if !contains(SampleTypes, f.Type) {
		errors = append(errors, "Type must be Internal or External")
	}
	if f.UOM != "" && !contains(VolumeUnits, f.UOM) {
		errors = append(errors, "Unit of measurement is invalid")
	}
	return errors
}

// Fields returns the form values keyed for the manipulation engine
func (f *SampleForm) Fields() Fields {
	return Fields{
		"sample":  f.Sample,
		"name":    f.Name,
		"account": f.Account,
		"type":    f.Type,
		"volume":  f.Volume,
		"uom":     f.UOM,
	}
}

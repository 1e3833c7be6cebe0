package models

import "time"

// TimeUnits are the accepted units for freeze and thaw durations.
var TimeUnits = []string{"d", "h", "min", "s"}

// AccountSchema describes freeze-thaw accounts: the policy attached to a
// sample that says under which condition it counts as frozen or thawed, for
// how long, and how many thaw cycles it survives. Durations serialize as
// whole seconds.
var AccountSchema = Schema{
	Table:      "freeze_thaw_accounts",
	AuditTable: "freeze_thaw_accounts_audit_trail",
	Unique:     "account",
	Versioned:  true,
	Fields: []Field{
		{Name: "account", Kind: Text},
		{Name: "freeze_condition", Kind: Text},
		{Name: "freeze_time", Kind: Duration},
		{Name: "freeze_uom", Kind: Text},
		{Name: "thaw_condition", Kind: Text},
		{Name: "thaw_time", Kind: Duration},
		{Name: "thaw_uom", Kind: Text},
		{Name: "thaw_count", Kind: Int},
	},
}

// AccountForm represents form data for creating/updating freeze-thaw
// accounts. Times are given as integer durations in the chosen unit.
type AccountForm struct {
	Account         string `json:"account"`
	FreezeCondition string `json:"freeze_condition"`
	FreezeTime      int    `json:"freeze_time"`
	FreezeUOM       string `json:"freeze_uom"`
	ThawCondition   string `json:"thaw_condition"`
	ThawTime        int    `json:"thaw_time"`
	ThawUOM         string `json:"thaw_uom"`
	ThawCount       int    `json:"thaw_count"`
}

// Validate validates the account form data
func (f *AccountForm) Validate() []string {
	var errors []string
	if f.Account == "" {
		errors = append(errors, "Account is required")
	}
	if f.FreezeCondition == "" {
		errors = append(errors, "Freeze condition is required")
	}
	if f.ThawCondition == "" {
		errors = append(errors, "Thaw condition is required")
	}
	if !contains(TimeUnits, f.FreezeUOM) {
		errors = append(errors, "Freeze unit must be d, h, min or s")
	}
	if !contains(TimeUnits, f.ThawUOM) {
		errors = append(errors, "Thaw unit must be d, h, min or s")
	}
	if f.FreezeTime < 0 || f.ThawTime < 0 {
		errors = append(errors, "Times must not be negative")
	}
	if f.ThawCount < 0 {
		errors = append(errors, "Thaw count must not be negative")
	}
	return errors
}

// Fields returns the form values keyed for the manipulation engine
func (f *AccountForm) Fields() Fields {
	return Fields{
		"account":          f.Account,
		"freeze_condition": f.FreezeCondition,
		"freeze_time":      UnitDuration(f.FreezeUOM, f.FreezeTime),
		"freeze_uom":       f.FreezeUOM,
		"thaw_condition":   f.ThawCondition,
		"thaw_time":        UnitDuration(f.ThawUOM, f.ThawTime),
		"thaw_uom":         f.ThawUOM,
		"thaw_count":       f.ThawCount,
	}
}

// UnitDuration converts an integer amount in the given unit to a duration.
// Unknown units fall back to seconds.
func UnitDuration(uom string, amount int) time.Duration {
	switch uom {
	case "d":
		return time.Duration(amount) * 24 * time.Hour
	case "h":
		return time.Duration(amount) * time.Hour
	case "min":
		return time.Duration(amount) * time.Minute
	default:
		return time.Duration(amount) * time.Second
	}
}

// DurationInUnit converts a duration back to an integer amount in the given
// unit, for display alongside the stored unit of measurement.
func DurationInUnit(uom string, d time.Duration) int {
	switch uom {
	case "d":
		return int(d / (24 * time.Hour))
	case "h":
		return int(d / time.Hour)
	case "min":
		return int(d / time.Minute)
	default:
		return int(d / time.Second)
	}
}

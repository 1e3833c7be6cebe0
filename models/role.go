package models

import "strings"

// Permissions lists every grantable permission code, grouped by area. A
// role stores its grants as a comma-joined string of codes.
var Permissions = map[string][]string{
	"accounts":   {"ac_r", "ac_w", "ac_d"},
	"boxes":      {"bo_r", "bo_w", "bo_d", "bo_l"},
	"conditions": {"co_r", "co_w", "co_d"},
	"locations":  {"lo_r", "lo_w", "lo_d", "lo_l"},
	"reagents":   {"re_r", "re_w", "re_d"},
	"samples":    {"sa_r", "sa_w", "sa_d", "sa_l"},
	"home":       {"home", "bo", "mo"},
	"logs":       {"log_mo", "log_lo", "log_la", "log_bo"},
	"roles":      {"ro_r", "ro_w", "ro_d"},
	"users":      {"us_r", "us_w", "us_a", "us_p"},
}

// RoleSchema describes roles: a unique name plus the comma-joined
// permission codes.
var RoleSchema = Schema{
	Table:      "roles",
	AuditTable: "roles_audit_trail",
	Unique:     "role",
	Versioned:  true,
	Fields: []Field{
		{Name: "role", Kind: Text},
		{Name: "permissions", Kind: Text},
	},
}

// RoleAll is the wildcard role granting every permission.
const RoleAll = "all"

// HasPermission reports whether a comma-joined permission string grants the
// given code.
func HasPermission(permissions, code string) bool {
	for _, p := range strings.Split(permissions, ",") {
		if strings.TrimSpace(p) == code {
			return true
		}
	}
	return false
}

// ValidPermission reports whether a code is a known permission.
func ValidPermission(code string) bool {
	for _, group := range Permissions {
		if contains(group, code) {
			return true
		}
	}
	return false
}

// RoleForm represents form data for creating/updating roles
type RoleForm struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// Validate validates the role form data
func (f *RoleForm) Validate() []string {
	var errors []string
	if f.Role == "" {
		errors = append(errors, "Role is required")
	}
	for _, code := range f.Permissions {
		if !ValidPermission(code) {
			errors = append(errors, "Unknown permission: "+code)
		}
	}
	return errors
}

// Fields returns the form values keyed for the manipulation engine
func (f *RoleForm) Fields() Fields {
	return Fields{
		"role":        f.Role,
		"permissions": strings.Join(f.Permissions, ","),
	}
}

package models

import "time"

// UserSchema describes application users. The password field holds the slow
// profile credential hash and is covered by the record checksum, but it is
// excluded from audit trail snapshots.
var UserSchema = Schema{
	Table:      "users",
	AuditTable: "users_audit_trail",
	Unique:     "username",
	Versioned:  true,
	Fields: []Field{
		{Name: "username", Kind: Text},
		{Name: "first_name", Kind: Text},
		{Name: "last_name", Kind: Text},
		{Name: "role", Kind: Text},
		{Name: "is_active", Kind: Bool},
		{Name: "initial_password", Kind: Bool},
		{Name: "password", Kind: Text},
	},
	AuditFields: []Field{
		{Name: "username", Kind: Text},
		{Name: "first_name", Kind: Text},
		{Name: "last_name", Kind: Text},
		{Name: "role", Kind: Text},
		{Name: "is_active", Kind: Bool},
		{Name: "initial_password", Kind: Bool},
	},
	Aux: []Field{
		{Name: "last_login", Kind: Time},
	},
}

// User is the typed view of a user record used by login and permission
// checks.
type User struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Role            string `json:"role"`
	IsActive        bool   `json:"is_active"`
	InitialPassword bool   `json:"initial_password"`
	Password        string     `json:"-"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	Version         int        `json:"version"`
	Verified        bool       `json:"verified"`
}

// UserFromRecord maps a generic record onto the typed user view.
func UserFromRecord(r *Record) *User {
	u := &User{ID: r.ID, Version: r.Version, Verified: r.Verified}
	u.Username, _ = r.Fields["username"].(string)
	u.FirstName, _ = r.Fields["first_name"].(string)
	u.LastName, _ = r.Fields["last_name"].(string)
	u.Role, _ = r.Fields["role"].(string)
	u.IsActive, _ = r.Fields["is_active"].(bool)
	u.InitialPassword, _ = r.Fields["initial_password"].(bool)
	u.Password, _ = r.Fields["password"].(string)
	if t, ok := r.Fields["last_login"].(time.Time); ok {
		u.LastLogin = &t
	}
	return u
}

// UserForm represents form data for creating/updating users. The username is
// generated from first and last name when left empty. Password is only
// consumed on create and password-change operations.
type UserForm struct {
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	Password  string `json:"password,omitempty"`
}

// Validate validates the user form data
func (f *UserForm) Validate() []string {
	var errors []string
	if f.FirstName == "" {
		errors = append(errors, "First name is required")
	}
	if f.LastName == "" {
		errors = append(errors, "Last name is required")
	}
	if f.Role == "" {
		errors = append(errors, "Role is required")
	}
	return errors
}

// Fields returns the form values keyed for the manipulation engine. The
// password hash and initial_password flag are filled in by the user service.
func (f *UserForm) Fields() Fields {
	return Fields{
		"username":   f.Username,
		"first_name": f.FirstName,
		"last_name":  f.LastName,
		"role":       f.Role,
		"is_active":  f.IsActive,
	}
}

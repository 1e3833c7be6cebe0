package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchemaFieldOrderIsStable(t *testing.T) {
	// The checksum serialization derives from this order; changing it
	// invalidates every stored checksum.
	assert.Equal(t,
		[]string{"account", "freeze_condition", "freeze_time", "freeze_uom",
			"thaw_condition", "thaw_time", "thaw_uom", "thaw_count"},
		AccountSchema.FieldOrder())
	assert.Equal(t, []string{"condition"}, ConditionSchema.FieldOrder())
}

func TestUserAuditFieldsExcludePassword(t *testing.T) {
	for _, name := range UserSchema.AuditFieldOrder() {
		assert.NotEqual(t, "password", name)
	}
	// The record checksum still covers the credential hash.
	_, ok := UserSchema.FieldByName("password")
	assert.True(t, ok)
}

func TestTablesCoverEveryEntity(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range Tables() {
		assert.False(t, seen[s.Table], "duplicate table %s", s.Table)
		seen[s.Table] = true
		if s.Versioned {
			assert.NotEmpty(t, s.AuditTable, "versioned table %s needs an audit table", s.Table)
			assert.NotEmpty(t, s.Unique, "versioned table %s needs a unique field", s.Table)
			_, ok := s.FieldByName(s.Unique)
			assert.True(t, ok, "unique field of %s must be a business field", s.Table)
		} else {
			assert.Empty(t, s.AuditTable, "log table %s must not have an audit table", s.Table)
		}
	}
	assert.True(t, seen["samples"])
	assert.True(t, seen["login_log"])
}

func TestIdentifierPrefixes(t *testing.T) {
	assert.Equal(t, "S", SampleSchema.Prefix)
	assert.Equal(t, "B", BoxSchema.Prefix)
	assert.Equal(t, "L", LocationSchema.Prefix)
	assert.Equal(t, "P", ReagentSchema.Prefix)
	assert.Empty(t, ConditionSchema.Prefix, "user-chosen unique values are not minted")
	assert.Empty(t, UserSchema.Prefix)
}

func TestConditionFormValidation(t *testing.T) {
	valid := ConditionForm{Condition: "-80"}
	assert.Empty(t, valid.Validate())

	invalid := ConditionForm{}
	assert.Len(t, invalid.Validate(), 1)
}

func TestBoxFormValidation(t *testing.T) {
	valid := BoxForm{
		Name: "Box 1", Alignment: "Horizontal", RowType: "Numeric", Rows: 9,
		ColumnType: "Alphabetic", Columns: 9, Origin: "Top Left",
	}
	assert.Empty(t, valid.Validate())

	invalid := BoxForm{Name: "", Alignment: "Diagonal", RowType: "Numeric",
		Rows: 0, ColumnType: "Alphabetic", Columns: 9, Origin: "Top Left"}
	assert.GreaterOrEqual(t, len(invalid.Validate()), 3)
}

func TestSampleFormValidation(t *testing.T) {
	valid := SampleForm{Name: "Plasma A", Account: "acc-1", Type: "Internal", Volume: "500", UOM: "ul"}
	assert.Empty(t, valid.Validate())
	external := SampleForm{Name: "Plasma B", Account: "acc-1", Type: "External", Volume: "500", UOM: "ul"}
	assert.Empty(t, external.Validate())

	// Internal and External are the only sample types.
	invalid := SampleForm{Name: "Plasma C", Account: "acc-1", Type: "Plasma", Volume: "500", UOM: "ul"}
	assert.Len(t, invalid.Validate(), 1)
}

func TestRoleFormJoinsPermissions(t *testing.T) {
	form := RoleForm{Role: "operator", Permissions: []string{"sa_r", "sa_w"}}
	assert.Empty(t, form.Validate())
	assert.Equal(t, "sa_r,sa_w", form.Fields()["permissions"])

	unknown := RoleForm{Role: "operator", Permissions: []string{"nope"}}
	assert.Len(t, unknown.Validate(), 1)
}

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission("sa_r,sa_w", "sa_w"))
	assert.False(t, HasPermission("sa_r,sa_w", "sa_d"))
	assert.False(t, HasPermission("", "sa_r"))
}

func TestUnitDurationRoundTrip(t *testing.T) {
	cases := []struct {
		uom    string
		amount int
		want   time.Duration
	}{
		{"d", 2, 48 * time.Hour},
		{"h", 3, 3 * time.Hour},
		{"min", 90, 90 * time.Minute},
		{"s", 30, 30 * time.Second},
	}
	for _, tc := range cases {
		d := UnitDuration(tc.uom, tc.amount)
		assert.Equal(t, tc.want, d)
		assert.Equal(t, tc.amount, DurationInUnit(tc.uom, d))
	}
}

func TestAccountFormFieldsConvertDurations(t *testing.T) {
	form := AccountForm{
		Account: "acc-1", FreezeCondition: "-80", FreezeTime: 30, FreezeUOM: "d",
		ThawCondition: "RT", ThawTime: 2, ThawUOM: "h", ThawCount: 3,
	}
	assert.Empty(t, form.Validate())
	fields := form.Fields()
	assert.Equal(t, 30*24*time.Hour, fields["freeze_time"])
	assert.Equal(t, 2*time.Hour, fields["thaw_time"])
}

func TestUserFromRecord(t *testing.T) {
	record := &Record{
		ID: 7, Version: 3, Verified: true,
		Fields: Fields{
			"username": "doej", "first_name": "Jane", "last_name": "Doe",
			"role": "operator", "is_active": true, "initial_password": false,
			"password": "$argon2id$...",
		},
	}
	u := UserFromRecord(record)
	assert.Equal(t, "doej", u.Username)
	assert.Equal(t, "operator", u.Role)
	assert.True(t, u.IsActive)
	assert.False(t, u.InitialPassword)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, 3, u.Version)
	assert.True(t, u.Verified)
}

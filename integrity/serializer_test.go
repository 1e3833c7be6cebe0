package integrity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeOrdersBySchema(t *testing.T) {
	values := map[string]any{
		"name":      "Frozen",
		"condition": "-80",
		"active":    true,
	}

	out, err := Serialize([]string{"condition", "name", "active"}, values)
	require.NoError(t, err)
	assert.Equal(t, "condition:-80;name:Frozen;active:true;", out)

	// Same values, different schema order: a different canonical string.
	reordered, err := Serialize([]string{"name", "condition", "active"}, values)
	require.NoError(t, err)
	assert.NotEqual(t, out, reordered)
}

func TestSerializeMissingFieldIsFatal(t *testing.T) {
	_, err := Serialize([]string{"condition", "name"}, map[string]any{"condition": "-80"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFieldMissing)
	assert.Contains(t, err.Error(), "name")
}

func TestSerializeNilRendersEmpty(t *testing.T) {
	out, err := Serialize([]string{"location"}, map[string]any{"location": nil})
	require.NoError(t, err)
	assert.Equal(t, "location:;", out)
}

func TestCanonicalForms(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, "", Canonical(nil))
	assert.Equal(t, "A-12", Canonical("A-12"))
	assert.Equal(t, "true", Canonical(true))
	assert.Equal(t, "false", Canonical(false))
	assert.Equal(t, "42", Canonical(42))
	assert.Equal(t, "42", Canonical(int64(42)))
	assert.Equal(t, "7200", Canonical(2*time.Hour))
	assert.Equal(t, "2024-03-01T11:30:00Z", Canonical(ts))
	assert.Equal(t, "", Canonical((*time.Time)(nil)))
	assert.Equal(t, "2024-03-01T11:30:00Z", Canonical(&ts))
	assert.Equal(t, "", Canonical(time.Time{}))
}

func TestCanonicalTimeIsZoneStable(t *testing.T) {
	utc := time.Date(2024, 3, 1, 11, 30, 0, 500, time.UTC)
	cet := utc.In(time.FixedZone("CET", 3600))
	assert.Equal(t, Canonical(utc), Canonical(cet))
}

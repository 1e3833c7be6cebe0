package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierFormat(t *testing.T) {
	cases := []struct {
		prefix string
		id     any
		want   string
	}{
		{"S", 6, "S000006"},
		{"P", 534667, "P534667"},
		{"P", "534667", "P534667"},
		{"B", int64(42), "B000042"},
		{"L", 999999, "L999999"},
	}
	for _, tc := range cases {
		got, err := Identifier(tc.prefix, tc.id)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestIdentifierRejectsBadInput(t *testing.T) {
	_, err := Identifier("SA", 6)
	assert.Error(t, err, "prefix longer than one character")

	_, err = Identifier("", 6)
	assert.Error(t, err, "empty prefix")

	_, err = Identifier("S", 1234567)
	assert.Error(t, err, "id longer than six digits")

	_, err = Identifier("S", "1234567")
	assert.Error(t, err, "string id longer than six digits")

	_, err = Identifier("S", -1)
	assert.Error(t, err, "negative id")

	_, err = Identifier("S", "12a4")
	assert.Error(t, err, "non-decimal id")

	_, err = Identifier("S", 3.14)
	assert.Error(t, err, "unsupported id type")
}

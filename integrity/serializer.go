package integrity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrFieldMissing indicates that a field required by the schema was not
// present in the supplied value mapping. This is a configuration error:
// the schema and the caller disagree about the field set, and any checksum
// computed from a partial mapping would be silently wrong.
var ErrFieldMissing = fmt.Errorf("required field missing")

// Serialize builds the canonical string over which checksums are computed.
// The field order must come from the entity schema, never from map iteration,
// so that the write path and the verify path always produce identical input.
// The output is byte-stable for the lifetime of stored checksums.
func Serialize(order []string, values map[string]any) (string, error) {
	var b strings.Builder
	for _, name := range order {
		value, ok := values[name]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrFieldMissing, name)
		}
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(Canonical(value))
		b.WriteByte(';')
	}
	return b.String(), nil
}

// Canonical renders a single field value in its canonical string form.
// Absent values render as the empty string. Timestamps render in UTC
// RFC3339Nano and durations as whole seconds; both forms are applied
// uniformly on the write and verify paths.
func Canonical(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Duration:
		return strconv.FormatInt(int64(v/time.Second), 10)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return ""
		}
		return Canonical(*v)
	default:
		return fmt.Sprint(v)
	}
}

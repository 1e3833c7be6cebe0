package integrity

import (
	"fmt"
	"strconv"
	"strings"
)

// Identifier mints a human-readable record identifier from a one-character
// type prefix and a numeric primary key, zero-padded to six digits:
// ("S", 6) -> "S000006", ("P", 534667) -> "P534667". The id may be passed as
// an int, int64 or decimal string.
func Identifier(prefix string, id any) (string, error) {
	if len(prefix) != 1 {
		return "", fmt.Errorf("identifier prefix must be exactly one character, got %q", prefix)
	}
	var digits string
	switch v := id.(type) {
	case int:
		digits = strconv.Itoa(v)
	case int64:
		digits = strconv.FormatInt(v, 10)
	case string:
		digits = v
	default:
		return "", fmt.Errorf("identifier id must be int or string, got %T", id)
	}
	if _, err := strconv.ParseUint(digits, 10, 64); err != nil {
		return "", fmt.Errorf("identifier id %q is not a decimal number", digits)
	}
	if len(digits) > 6 {
		return "", fmt.Errorf("identifier id %q exceeds six digits", digits)
	}
	return prefix + strings.Repeat("0", 6-len(digits)) + digits, nil
}

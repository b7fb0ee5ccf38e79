package request

import (
	"errors"
	"strings"
)

var (
	ErrNotString = errors.New("value is not a string")
	ErrEmpty     = errors.New("string is empty")
	ErrNotNumber = errors.New("value is not a number")
)

// ReadString trims a decoded JSON string and rejects empty or non-string values.
func ReadString(value interface{}) (string, error) {
	v, ok := value.(string)
	if !ok {
		return "", ErrNotString
	}
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return "", ErrEmpty
	}
	return trimmed, nil
}

// ReadFloat converts decoded JSON numbers to float64.
func ReadFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, ErrNotNumber
	}
}

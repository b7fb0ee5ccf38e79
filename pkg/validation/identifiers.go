package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/maxmaster/portal-server-go/pkg/nip"
)

var postalCodeRegex = regexp.MustCompile(`^\d{2}-\d{3}$`)

// NormalizeTaxID returns the normalized NIP or an error describing why it is invalid.
// The returned error wraps the nip error kind.
func NormalizeTaxID(value string) (string, error) {
	if err := nip.Check(value); err != nil {
		return "", fmt.Errorf("%s: %w", TaxIDMessage(err), err)
	}
	return nip.Normalize(value), nil
}

// TaxIDMessage maps a nip error kind to a client-facing message.
func TaxIDMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, nip.ErrEmpty):
		return "tax id is required"
	case errors.Is(err, nip.ErrNonDigit):
		return "tax id may contain only digits, spaces and hyphens"
	case errors.Is(err, nip.ErrLength):
		return "tax id must have exactly 10 digits"
	case errors.Is(err, nip.ErrChecksum):
		return "tax id checksum is invalid"
	default:
		return "invalid tax id"
	}
}

// NormalizePostalCode accepts dd-ddd or ddddd and returns dd-ddd.
func NormalizePostalCode(value string) (string, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), " ", "")
	if len(trimmed) == 5 && !strings.Contains(trimmed, "-") {
		trimmed = trimmed[:2] + "-" + trimmed[2:]
	}
	if !postalCodeRegex.MatchString(trimmed) {
		return "", fmt.Errorf("invalid postal code. Use the XX-XXX format")
	}
	return trimmed, nil
}

// NormalizeEmail trims and lowercases an email address and checks its syntax.
func NormalizeEmail(value string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "", fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", fmt.Errorf("invalid email address")
	}
	return normalized, nil
}

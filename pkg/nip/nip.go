// Package nip normalizes, validates and formats Polish tax identification
// numbers (NIP). Every function is total: malformed input yields false, an
// error kind or the untouched input, never a panic.
package nip

import (
	"errors"
	"strings"
	"unicode"
)

const (
	// Length is the number of digits in a normalized NIP.
	Length = 10
	// Modulus is the base of the check digit computation.
	Modulus = 11
	// Separator joins the display groups.
	Separator = '-'
)

// weights pair with the first nine digits.
var weights = [Length - 1]int{6, 5, 7, 2, 3, 4, 5, 6, 7}

// groups is the 3-3-2-2 display layout.
var groups = [...]int{3, 3, 2, 2}

var (
	ErrEmpty    = errors.New("nip is empty")
	ErrLength   = errors.New("nip must have exactly 10 digits")
	ErrNonDigit = errors.New("nip may contain only digits")
	ErrChecksum = errors.New("nip checksum mismatch")
)

// Normalize removes every whitespace character and every hyphen.
func Normalize(raw string) string {
	return strings.Map(func(r rune) rune {
		if isSeparator(r) {
			return -1
		}
		return r
	}, raw)
}

// Validate reports whether raw is a NIP with a correct check digit.
func Validate(raw string) bool {
	return Check(raw) == nil
}

// Check is Validate with a reason. It returns nil for a valid NIP or one of
// ErrEmpty, ErrLength, ErrNonDigit, ErrChecksum.
func Check(raw string) error {
	normalized := Normalize(raw)
	if normalized == "" {
		return ErrEmpty
	}
	if !isDigits(normalized) {
		return ErrNonDigit
	}
	if len(normalized) != Length {
		return ErrLength
	}

	expected, ok := CheckDigit(normalized[:Length-1])
	if !ok || expected != int(normalized[Length-1]-'0') {
		return ErrChecksum
	}
	return nil
}

// CheckDigit computes the check value for the first nine digits of a NIP.
// ok is false when digits is not nine ASCII digits or when the weighted sum
// yields 10, which no single digit can match.
func CheckDigit(digits string) (int, bool) {
	if len(digits) != Length-1 || !isDigits(digits) {
		return 0, false
	}

	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}

	check := sum % Modulus
	if check == 10 {
		return check, false
	}
	return check, true
}

// Format renders raw as ddd-ddd-dd-dd. Input that does not normalize to ten
// ASCII digits is returned unchanged, so ten letters stay as they are. The
// checksum is not verified.
func Format(raw string) string {
	normalized := Normalize(raw)
	if len(normalized) != Length || !isDigits(normalized) {
		return raw
	}

	var b strings.Builder
	b.Grow(Length + len(groups) - 1)

	pos := 0
	for i, size := range groups {
		if i > 0 {
			b.WriteByte(Separator)
		}
		b.WriteString(normalized[pos : pos+size])
		pos += size
	}
	return b.String()
}

// isSeparator matches unicode whitespace, the byte order mark and the ASCII
// hyphen.
func isSeparator(r rune) bool {
	return r == '-' || r == '\uFEFF' || unicode.IsSpace(r)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

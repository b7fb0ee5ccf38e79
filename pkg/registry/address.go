package registry

import (
	"regexp"
	"strings"
)

var (
	postalCityRegex = regexp.MustCompile(`(\d{2}-\d{3})\s+(\S+)`)
	streetRegex     = regexp.MustCompile(`(?i)^(?:ul\.\s*)?([^,\d]+)\s*(\d+[A-Za-z]?(?:/\d+)?)?`)
)

// Address holds the components extracted from a one-line Polish address.
type Address struct {
	Street          string
	StreetNumber    string
	ApartmentNumber string
	City            string
	PostalCode      string
}

// ParseAddress splits strings like "ul. Długa 5/3, 00-238 Warszawa".
// Components that cannot be recognised are left empty.
func ParseAddress(address string) Address {
	var result Address

	address = strings.TrimSpace(address)
	if address == "" {
		return result
	}

	if m := postalCityRegex.FindStringSubmatch(address); m != nil {
		result.PostalCode = m[1]
		result.City = strings.TrimRight(m[2], ",;")
	}

	if m := streetRegex.FindStringSubmatch(address); m != nil {
		result.Street = strings.TrimSpace(m[1])
		number := m[2]
		if idx := strings.IndexByte(number, '/'); idx != -1 {
			result.ApartmentNumber = number[idx+1:]
			number = number[:idx]
		}
		result.StreetNumber = number
	}

	return result
}

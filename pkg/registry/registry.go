// Package registry resolves a validated NIP to public company data through a
// chain of registry providers.
package registry

import (
	"context"
	"errors"
)

var (
	ErrMalformedInput = errors.New("malformed tax id")
	ErrNotFound       = errors.New("company not found in registry")
	ErrAlreadyKnown   = errors.New("company already registered")
	ErrTransient      = errors.New("registry temporarily unavailable")
)

// DefaultCountry is assigned to every record returned by the Polish registries.
const DefaultCountry = "Polska"

// Company is a registry record keyed by normalized NIP.
type Company struct {
	NIP              string `json:"nip"`
	REGON            string `json:"regon,omitempty"`
	KRS              string `json:"krs,omitempty"`
	Name             string `json:"name"`
	Street           string `json:"street"`
	StreetNumber     string `json:"streetNumber"`
	ApartmentNumber  string `json:"apartmentNumber,omitempty"`
	City             string `json:"city"`
	PostalCode       string `json:"postalCode"`
	Voivodeship      string `json:"voivodeship,omitempty"`
	County           string `json:"county,omitempty"`
	Commune          string `json:"commune,omitempty"`
	Country          string `json:"country"`
	Phone            string `json:"phone,omitempty"`
	Email            string `json:"email,omitempty"`
	Website          string `json:"website,omitempty"`
	LegalForm        string `json:"legalForm,omitempty"`
	StartDate        string `json:"startDate,omitempty"`
	MainActivityCode string `json:"mainActivityCode,omitempty"`
	MainActivityName string `json:"mainActivityName,omitempty"`
	Source           string `json:"source"`
}

// Provider looks a company up in one registry. Implementations return
// ErrNotFound when the registry has no record and wrap ErrTransient for
// failures that may succeed on retry.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, nip string) (Company, error)
}

// KnownChecker reports whether the caller already stores a company with the NIP.
type KnownChecker interface {
	IsKnown(ctx context.Context, nip string) (bool, error)
}

// KnownCheckerFunc adapts a function to KnownChecker.
type KnownCheckerFunc func(ctx context.Context, nip string) (bool, error)

// IsKnown calls f.
func (f KnownCheckerFunc) IsKnown(ctx context.Context, nip string) (bool, error) {
	return f(ctx, nip)
}

// outcome is the metrics label for a provider result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "found"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maxmaster/portal-server-go/pkg/config"
)

const userAgent = "Portal-Server-Go/1.0.0"

// httpClient is shared plumbing for the JSON registry APIs.
type httpClient struct {
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
}

func newHTTPClient(baseURL string, timeout time.Duration) httpClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return httpClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		headers:    map[string]string{},
	}
}

// getJSON issues a GET and decodes a 200 response into dest. 404 maps to
// ErrNotFound; every other failure wraps ErrTransient.
func (c httpClient) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: registry rejected credentials (status=%d)", ErrTransient, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: registry rate limit exceeded", ErrTransient)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status=%d, body=%s", ErrTransient, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrTransient, err)
	}
	return nil
}

// RejestrIOProvider queries the rejestr.io organisation API.
type RejestrIOProvider struct {
	client httpClient
}

// NewRejestrIOProvider creates a rejestr.io provider.
func NewRejestrIOProvider(baseURL string, timeout time.Duration) *RejestrIOProvider {
	return &RejestrIOProvider{client: newHTTPClient(baseURL, timeout)}
}

// Name returns the provider name.
func (p *RejestrIOProvider) Name() string { return "rejestr.io" }

// Lookup fetches the organisation by NIP.
func (p *RejestrIOProvider) Lookup(ctx context.Context, nip string) (Company, error) {
	var payload struct {
		NIP     string `json:"nip"`
		REGON   string `json:"regon"`
		KRS     string `json:"krs"`
		Name    string `json:"name"`
		Address string `json:"address"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		PKD     string `json:"pkd"`
		PKDName string `json:"pkd_name"`
	}

	if err := p.client.getJSON(ctx, "/api/v2/org?"+url.Values{"nip": {nip}}.Encode(), &payload); err != nil {
		return Company{}, err
	}
	if strings.TrimSpace(payload.Name) == "" {
		return Company{}, ErrNotFound
	}

	addr := ParseAddress(payload.Address)
	return Company{
		NIP:              firstNonEmpty(payload.NIP, nip),
		REGON:            payload.REGON,
		KRS:              payload.KRS,
		Name:             strings.TrimSpace(payload.Name),
		Street:           addr.Street,
		StreetNumber:     addr.StreetNumber,
		ApartmentNumber:  addr.ApartmentNumber,
		City:             addr.City,
		PostalCode:       addr.PostalCode,
		Country:          DefaultCountry,
		Email:            payload.Email,
		Phone:            payload.Phone,
		MainActivityCode: payload.PKD,
		MainActivityName: payload.PKDName,
		Source:           p.Name(),
	}, nil
}

// KRSProvider queries the National Court Register open API.
type KRSProvider struct {
	client httpClient
}

// NewKRSProvider creates a KRS provider.
func NewKRSProvider(baseURL string, timeout time.Duration) *KRSProvider {
	return &KRSProvider{client: newHTTPClient(baseURL, timeout)}
}

// Name returns the provider name.
func (p *KRSProvider) Name() string { return "krs" }

// Lookup fetches the current register extract for the NIP.
func (p *KRSProvider) Lookup(ctx context.Context, nip string) (Company, error) {
	var payload struct {
		Extract *struct {
			Entity struct {
				REGON     string `json:"regon"`
				Name      string `json:"nazwa"`
				CEIDGName string `json:"firmaCeidg"`
				LegalForm string `json:"formaPrawna"`
				KRS       string `json:"numerKRS"`
				Address   struct {
					Street      string `json:"ulica"`
					HouseNumber string `json:"nrDomu"`
					Apartment   string `json:"nrLokalu"`
					City        string `json:"miejscowosc"`
					PostalCode  string `json:"kodPocztowy"`
					Voivodeship string `json:"wojewodztwo"`
					County      string `json:"powiat"`
					Commune     string `json:"gmina"`
				} `json:"adres"`
			} `json:"danePodmiotu"`
		} `json:"odppisDzialalnosciGospodarczej"`
	}

	if err := p.client.getJSON(ctx, "/api/krs/OdsijS/"+url.PathEscape(nip), &payload); err != nil {
		return Company{}, err
	}
	if payload.Extract == nil {
		return Company{}, ErrNotFound
	}

	entity := payload.Extract.Entity
	name := firstNonEmpty(entity.Name, entity.CEIDGName)
	if name == "" {
		return Company{}, ErrNotFound
	}

	return Company{
		NIP:             nip,
		REGON:           entity.REGON,
		KRS:             entity.KRS,
		Name:            name,
		Street:          entity.Address.Street,
		StreetNumber:    entity.Address.HouseNumber,
		ApartmentNumber: entity.Address.Apartment,
		City:            entity.Address.City,
		PostalCode:      entity.Address.PostalCode,
		Voivodeship:     entity.Address.Voivodeship,
		County:          entity.Address.County,
		Commune:         entity.Address.Commune,
		Country:         DefaultCountry,
		LegalForm:       entity.LegalForm,
		Source:          p.Name(),
	}, nil
}

// CEIDGProvider queries the sole-proprietorship register.
type CEIDGProvider struct {
	client httpClient
}

// NewCEIDGProvider creates a CEIDG provider.
func NewCEIDGProvider(baseURL string, timeout time.Duration) *CEIDGProvider {
	return &CEIDGProvider{client: newHTTPClient(baseURL, timeout)}
}

// Name returns the provider name.
func (p *CEIDGProvider) Name() string { return "ceidg" }

type ceidgAddress struct {
	Street     string `json:"ulica"`
	Building   string `json:"budynek"`
	Apartment  string `json:"lokal"`
	City       string `json:"miasto"`
	PostalCode string `json:"kod"`
	Commune    string `json:"gmina"`
	County     string `json:"powiat"`
	Province   string `json:"wojewodztwo"`
}

// Lookup fetches the first matching business entry.
func (p *CEIDGProvider) Lookup(ctx context.Context, nip string) (Company, error) {
	var payload struct {
		Firms []struct {
			REGON         string        `json:"regon"`
			Name          string        `json:"nazwa"`
			Email         string        `json:"email"`
			Phone         string        `json:"telefon"`
			Website       string        `json:"www"`
			StartDate     string        `json:"dataRozpoczecia"`
			Business      *ceidgAddress `json:"adresDzialalnosci"`
			Correspondent *ceidgAddress `json:"adresKorespondencyjny"`
		} `json:"firma"`
	}

	if err := p.client.getJSON(ctx, "/api/ceidg/v2/firma?"+url.Values{"nip": {nip}}.Encode(), &payload); err != nil {
		return Company{}, err
	}
	if len(payload.Firms) == 0 || strings.TrimSpace(payload.Firms[0].Name) == "" {
		return Company{}, ErrNotFound
	}

	firm := payload.Firms[0]
	addr := firm.Business
	if addr == nil {
		addr = firm.Correspondent
	}
	if addr == nil {
		addr = &ceidgAddress{}
	}

	return Company{
		NIP:             nip,
		REGON:           firm.REGON,
		Name:            strings.TrimSpace(firm.Name),
		Street:          addr.Street,
		StreetNumber:    addr.Building,
		ApartmentNumber: addr.Apartment,
		City:            addr.City,
		PostalCode:      addr.PostalCode,
		Voivodeship:     addr.Province,
		County:          addr.County,
		Commune:         addr.Commune,
		Country:         DefaultCountry,
		Email:           firm.Email,
		Phone:           firm.Phone,
		Website:         firm.Website,
		StartDate:       firm.StartDate,
		Source:          p.Name(),
	}, nil
}

// DataPortProvider queries the commercial dataport.pl API. It needs an API key.
type DataPortProvider struct {
	client httpClient
}

// NewDataPortProvider creates a DataPort provider authenticated with apiKey.
func NewDataPortProvider(baseURL, apiKey string, timeout time.Duration) *DataPortProvider {
	client := newHTTPClient(baseURL, timeout)
	client.headers["X-API-Key"] = strings.TrimSpace(apiKey)
	return &DataPortProvider{client: client}
}

// Name returns the provider name.
func (p *DataPortProvider) Name() string { return "dataport" }

// Lookup fetches the full company profile.
func (p *DataPortProvider) Lookup(ctx context.Context, nip string) (Company, error) {
	// The API mixes camelCase and snake_case field names between versions.
	var payload struct {
		Name            string `json:"nazwa"`
		FullName        string `json:"nazwa_pelna"`
		Street          string `json:"ulica"`
		Number          string `json:"nrNieruchomosci"`
		NumberAlt       string `json:"nr_nieruchomosci"`
		Apartment       string `json:"nrLokalu"`
		ApartmentAlt    string `json:"nr_lokalu"`
		PostalCode      string `json:"kodPocztowy"`
		PostalCodeAlt   string `json:"kod_pocztowy"`
		City            string `json:"miejscowosc"`
		Voivodeship     string `json:"wojewodztwo"`
		REGON           string `json:"regon"`
		KRS             string `json:"krs"`
		LegalForm       string `json:"formaPrawna"`
		LegalFormAlt    string `json:"forma_prawna"`
		StartDate       string `json:"dataRozpoczeciaDzialalnosci"`
		StartDateAlt    string `json:"data_rozpoczecia"`
		MainActivity    string `json:"pkdGlowny"`
		MainActivityAlt string `json:"pkd_glowny"`
		Email           string `json:"email"`
		Phone           string `json:"telefon"`
		Website         string `json:"www"`
	}

	endpoint := "/api/v1/company/" + url.PathEscape(nip) + "?format=full"
	if err := p.client.getJSON(ctx, endpoint, &payload); err != nil {
		return Company{}, err
	}

	name := firstNonEmpty(payload.Name, payload.FullName)
	if name == "" {
		return Company{}, ErrNotFound
	}

	return Company{
		NIP:              nip,
		REGON:            payload.REGON,
		KRS:              payload.KRS,
		Name:             name,
		Street:           payload.Street,
		StreetNumber:     firstNonEmpty(payload.Number, payload.NumberAlt),
		ApartmentNumber:  firstNonEmpty(payload.Apartment, payload.ApartmentAlt),
		City:             payload.City,
		PostalCode:       firstNonEmpty(payload.PostalCode, payload.PostalCodeAlt),
		Voivodeship:      payload.Voivodeship,
		Country:          DefaultCountry,
		Email:            payload.Email,
		Phone:            payload.Phone,
		Website:          payload.Website,
		LegalForm:        firstNonEmpty(payload.LegalForm, payload.LegalFormAlt),
		StartDate:        firstNonEmpty(payload.StartDate, payload.StartDateAlt),
		MainActivityCode: firstNonEmpty(payload.MainActivity, payload.MainActivityAlt),
		Source:           p.Name(),
	}, nil
}

// MockProvider returns fixed sample data for any NIP. Development only.
type MockProvider struct{}

// Name returns the provider name.
func (MockProvider) Name() string { return "mock" }

// Lookup returns the sample company.
func (MockProvider) Lookup(ctx context.Context, nip string) (Company, error) {
	return Company{
		NIP:              nip,
		REGON:            "123456789",
		Name:             "Przykładowa Firma Sp. z o.o.",
		Street:           "ul. Testowa",
		StreetNumber:     "123",
		ApartmentNumber:  "4A",
		City:             "Warszawa",
		PostalCode:       "00-001",
		Voivodeship:      "mazowieckie",
		Country:          DefaultCountry,
		Phone:            "+48 22 123 45 67",
		Email:            "kontakt@firma.pl",
		MainActivityCode: "62.01.Z",
		MainActivityName: "Działalność związana z oprogramowaniem",
		Source:           "mock",
	}, nil
}

// ProvidersFromConfig builds the provider chain in lookup order. DataPort is
// only included when an API key is configured; the mock provider replaces the
// chain entirely.
func ProvidersFromConfig(cfg config.RegistryConfig) []Provider {
	if cfg.Mock {
		return []Provider{MockProvider{}}
	}

	var providers []Provider
	if cfg.DataPortAPIKey != "" {
		providers = append(providers, NewDataPortProvider(cfg.DataPortURL, cfg.DataPortAPIKey, cfg.Timeout))
	}
	providers = append(providers,
		NewRejestrIOProvider(cfg.RejestrURL, cfg.Timeout),
		NewKRSProvider(cfg.KRSURL, cfg.Timeout),
		NewCEIDGProvider(cfg.CEIDGURL, cfg.Timeout),
	)
	return providers
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxmaster/portal-server-go/pkg/config"
)

func newRegistryServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestRejestrIOProviderLookup(t *testing.T) {
	srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/org", r.URL.Path)
		assert.Equal(t, "5261040828", r.URL.Query().Get("nip"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"nip": "5261040828",
			"regon": "000331501",
			"name": "  Główny Urząd Statystyczny ",
			"address": "ul. Niepodległości 208, 00-925 Warszawa",
			"pkd": "84.11.Z"
		}`))
	})

	company, err := NewRejestrIOProvider(srv.URL, time.Second).Lookup(context.Background(), "5261040828")
	require.NoError(t, err)

	assert.Equal(t, "Główny Urząd Statystyczny", company.Name)
	assert.Equal(t, "000331501", company.REGON)
	assert.Equal(t, "Niepodległości", company.Street)
	assert.Equal(t, "208", company.StreetNumber)
	assert.Equal(t, "00-925", company.PostalCode)
	assert.Equal(t, "Warszawa", company.City)
	assert.Equal(t, DefaultCountry, company.Country)
	assert.Equal(t, "84.11.Z", company.MainActivityCode)
	assert.Equal(t, "rejestr.io", company.Source)
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, `{}`, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, `{}`, ErrTransient},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrTransient},
		{"server error", http.StatusInternalServerError, `boom`, ErrTransient},
		{"bad json", http.StatusOK, `{"name":`, ErrTransient},
		{"empty record", http.StatusOK, `{"name":""}`, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := NewRejestrIOProvider(srv.URL, time.Second).Lookup(context.Background(), "5261040828")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewKRSProvider(url, time.Second).Lookup(context.Background(), "5261040828")
	assert.ErrorIs(t, err, ErrTransient)
}

func TestKRSProviderLookup(t *testing.T) {
	srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/krs/OdsijS/5261040828", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"odppisDzialalnosciGospodarczej": {
				"danePodmiotu": {
					"regon": "000331501",
					"nazwa": "Spółka Testowa S.A.",
					"formaPrawna": "SPÓŁKA AKCYJNA",
					"numerKRS": "0000012345",
					"adres": {
						"ulica": "Prosta",
						"nrDomu": "20",
						"nrLokalu": "1",
						"miejscowosc": "Warszawa",
						"kodPocztowy": "00-850",
						"wojewodztwo": "mazowieckie"
					}
				}
			}
		}`))
	})

	company, err := NewKRSProvider(srv.URL, time.Second).Lookup(context.Background(), "5261040828")
	require.NoError(t, err)

	assert.Equal(t, "Spółka Testowa S.A.", company.Name)
	assert.Equal(t, "0000012345", company.KRS)
	assert.Equal(t, "Prosta", company.Street)
	assert.Equal(t, "20", company.StreetNumber)
	assert.Equal(t, "1", company.ApartmentNumber)
	assert.Equal(t, "mazowieckie", company.Voivodeship)
	assert.Equal(t, "SPÓŁKA AKCYJNA", company.LegalForm)
	assert.Equal(t, "krs", company.Source)
}

func TestKRSProviderMissingExtract(t *testing.T) {
	srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := NewKRSProvider(srv.URL, time.Second).Lookup(context.Background(), "5261040828")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCEIDGProviderFallsBackToCorrespondenceAddress(t *testing.T) {
	srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ceidg/v2/firma", r.URL.Path)
		assert.Equal(t, "5261040828", r.URL.Query().Get("nip"))
		_, _ = w.Write([]byte(`{
			"firma": [{
				"nazwa": "Jan Kowalski Usługi",
				"email": "jan@example.pl",
				"dataRozpoczecia": "2015-03-01",
				"adresKorespondencyjny": {"ulica": "Polna", "budynek": "3", "miasto": "Gdańsk", "kod": "80-001"}
			}]
		}`))
	})

	company, err := NewCEIDGProvider(srv.URL, time.Second).Lookup(context.Background(), "5261040828")
	require.NoError(t, err)

	assert.Equal(t, "Jan Kowalski Usługi", company.Name)
	assert.Equal(t, "Polna", company.Street)
	assert.Equal(t, "3", company.StreetNumber)
	assert.Equal(t, "Gdańsk", company.City)
	assert.Equal(t, "2015-03-01", company.StartDate)
	assert.Equal(t, "jan@example.pl", company.Email)
}

func TestCEIDGProviderEmptyList(t *testing.T) {
	srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"firma": []}`))
	})

	_, err := NewCEIDGProvider(srv.URL, time.Second).Lookup(context.Background(), "5261040828")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDataPortProviderSendsAPIKey(t *testing.T) {
	srv := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "/api/v1/company/5261040828", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(`{
			"nazwa_pelna": "Firma Pełna Sp. z o.o.",
			"ulica": "Krótka",
			"nr_nieruchomosci": "9",
			"kod_pocztowy": "60-101",
			"miejscowosc": "Poznań",
			"pkd_glowny": "62.01.Z"
		}`))
	})

	company, err := NewDataPortProvider(srv.URL, " secret-key ", time.Second).Lookup(context.Background(), "5261040828")
	require.NoError(t, err)

	assert.Equal(t, "Firma Pełna Sp. z o.o.", company.Name)
	assert.Equal(t, "9", company.StreetNumber)
	assert.Equal(t, "60-101", company.PostalCode)
	assert.Equal(t, "62.01.Z", company.MainActivityCode)
	assert.Equal(t, "dataport", company.Source)
}

func TestProvidersFromConfig(t *testing.T) {
	names := func(providers []Provider) []string {
		out := make([]string, 0, len(providers))
		for _, p := range providers {
			out = append(out, p.Name())
		}
		return out
	}

	assert.Equal(t, []string{"mock"}, names(ProvidersFromConfig(config.RegistryConfig{Mock: true, DataPortAPIKey: "k"})))
	assert.Equal(t, []string{"rejestr.io", "krs", "ceidg"}, names(ProvidersFromConfig(config.RegistryConfig{})))
	assert.Equal(t, []string{"dataport", "rejestr.io", "krs", "ceidg"}, names(ProvidersFromConfig(config.RegistryConfig{DataPortAPIKey: "k"})))
}

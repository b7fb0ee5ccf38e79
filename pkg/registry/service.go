package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maxmaster/portal-server-go/pkg/cache"
	"github.com/maxmaster/portal-server-go/pkg/metrics"
	"github.com/maxmaster/portal-server-go/pkg/nip"
)

const cacheKeyPrefix = "registry:nip:"

// DefaultCacheTTL is used when NewService is given a non-positive TTL.
const DefaultCacheTTL = 24 * time.Hour

// Service resolves NIPs through an ordered provider chain backed by a cache.
type Service struct {
	providers []Provider
	cache     cache.Client
	ttl       time.Duration
	known     KnownChecker
	logger    *slog.Logger
}

// NewService creates a lookup service. A nil cache disables caching.
func NewService(providers []Provider, c cache.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		providers: providers,
		cache:     c,
		ttl:       ttl,
		logger:    logger,
	}
}

// WithKnownChecker makes Lookup reject NIPs the caller already stores.
func (s *Service) WithKnownChecker(k KnownChecker) *Service {
	s.known = k
	return s
}

// Providers returns the provider names in lookup order.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}

// CacheKey returns the cache key for a normalized NIP.
func CacheKey(normalized string) string {
	return cacheKeyPrefix + normalized
}

// Lookup validates raw, rejects already-known companies and resolves the
// record from cache or the provider chain.
func (s *Service) Lookup(ctx context.Context, raw string) (Company, error) {
	normalized, err := checkInput(raw)
	if err != nil {
		return Company{}, err
	}

	if s.known != nil {
		known, err := s.known.IsKnown(ctx, normalized)
		if err != nil {
			return Company{}, fmt.Errorf("failed to check existing company: %w", err)
		}
		if known {
			return Company{}, ErrAlreadyKnown
		}
	}

	if company, ok := s.cached(ctx, normalized); ok {
		return company, nil
	}

	return s.resolve(ctx, normalized)
}

// Refresh bypasses the known check and the cache read. A successful result
// replaces the cached record; a not-found result drops it.
func (s *Service) Refresh(ctx context.Context, raw string) (Company, error) {
	normalized, err := checkInput(raw)
	if err != nil {
		return Company{}, err
	}

	company, err := s.resolve(ctx, normalized)
	if errors.Is(err, ErrNotFound) {
		if delErr := s.Invalidate(ctx, normalized); delErr != nil {
			s.logger.Warn("registry cache delete failed", slog.String("nip", normalized), slog.String("error", delErr.Error()))
		}
	}
	return company, err
}

// Invalidate drops the cached record for raw, if any.
func (s *Service) Invalidate(ctx context.Context, raw string) error {
	normalized, err := checkInput(raw)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, CacheKey(normalized))
}

func checkInput(raw string) (string, error) {
	if err := nip.Check(raw); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	return nip.Normalize(raw), nil
}

func (s *Service) cached(ctx context.Context, normalized string) (Company, bool) {
	if s.cache == nil {
		return Company{}, false
	}

	var company Company
	err := cache.GetJSON(ctx, s.cache, CacheKey(normalized), &company)
	switch {
	case err == nil:
		return company, true
	case errors.Is(err, cache.ErrMiss):
	default:
		s.logger.Warn("registry cache read failed", "nip", normalized, "error", err)
	}
	return Company{}, false
}

func (s *Service) resolve(ctx context.Context, normalized string) (Company, error) {
	var transient error

	for _, p := range s.providers {
		start := time.Now()
		company, err := p.Lookup(ctx, normalized)
		metrics.RecordRegistryLookup(p.Name(), outcome(err), time.Since(start))

		if err == nil {
			if company.NIP == "" {
				company.NIP = normalized
			}
			if company.Country == "" {
				company.Country = DefaultCountry
			}
			if company.Source == "" {
				company.Source = p.Name()
			}
			s.store(ctx, normalized, company)
			return company, nil
		}

		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("registry provider has no record", "provider", p.Name(), "nip", normalized)
			continue
		}

		s.logger.Warn("registry provider failed", "provider", p.Name(), "nip", normalized, "error", err)
		if transient == nil {
			transient = fmt.Errorf("%s: %w", p.Name(), err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	if transient != nil {
		if !errors.Is(transient, ErrTransient) {
			transient = fmt.Errorf("%w: %w", ErrTransient, transient)
		}
		return Company{}, transient
	}
	return Company{}, ErrNotFound
}

func (s *Service) store(ctx context.Context, normalized string, company Company) {
	if s.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, CacheKey(normalized), company, s.ttl); err != nil {
		s.logger.Warn("registry cache write failed", "nip", normalized, "error", err)
	}
}

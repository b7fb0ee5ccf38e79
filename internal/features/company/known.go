package company

import (
	"context"

	"gorm.io/gorm"

	"github.com/maxmaster/portal-server-go/pkg/registry"
)

// KnownChecker lets the registry service reject NIPs that are already registered.
func KnownChecker(db *gorm.DB) registry.KnownChecker {
	return registry.KnownCheckerFunc(func(ctx context.Context, taxID string) (bool, error) {
		return TaxIDExists(db.WithContext(ctx), taxID)
	})
}

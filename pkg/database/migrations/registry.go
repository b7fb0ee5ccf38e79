// Package migrations holds schema changes that AutoMigrate cannot express,
// such as CHECK constraints. Feature packages register them from init.
package migrations

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Func applies one schema change. It must be safe to run repeatedly.
type Func func(*gorm.DB) error

type namedMigration struct {
	name string
	fn   Func
}

var (
	registryMu sync.RWMutex
	registry   []namedMigration
)

// Register appends a migration. Registering the same name twice panics.
func Register(name string, fn Func) {
	registryMu.Lock()
	defer registryMu.Unlock()

	for _, m := range registry {
		if m.name == name {
			panic(fmt.Sprintf("migrations: %q registered twice", name))
		}
	}
	registry = append(registry, namedMigration{name: name, fn: fn})
}

// Names returns the registered migration names in run order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for _, m := range registry {
		names = append(names, m.name)
	}
	return names
}

// Run executes registered migrations in registration order, stopping at the first failure.
func Run(db *gorm.DB, log *slog.Logger) error {
	registryMu.RLock()
	pending := make([]namedMigration, len(registry))
	copy(pending, registry)
	registryMu.RUnlock()

	for _, m := range pending {
		start := time.Now()
		if err := m.fn(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
		if log != nil {
			log.Info("migration applied", slog.String("name", m.name), slog.Duration("elapsed", time.Since(start)))
		}
	}

	return nil
}

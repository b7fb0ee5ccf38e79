package company

import (
	"gorm.io/gorm"

	"github.com/maxmaster/portal-server-go/pkg/database/migrations"
)

const taxIDCheckConstraint = "companies_tax_id_digits_check"

func init() {
	migrations.Register("companies: tax_id digits check", addTaxIDCheck)
}

// addTaxIDCheck makes PostgreSQL reject tax ids that are not stored normalized.
func addTaxIDCheck(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if db.Migrator().HasConstraint(&Company{}, taxIDCheckConstraint) {
		return nil
	}
	return db.Exec(`ALTER TABLE companies ADD CONSTRAINT ` + taxIDCheckConstraint + ` CHECK (tax_id ~ '^[0-9]{10}$')`).Error
}

package types

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserType represents user role levels carried in access tokens.
type UserType string

const (
	UserTypeEmployee     UserType = "employee"
	UserTypeHR           UserType = "hr"
	UserTypeCompanyAdmin UserType = "company_admin"
	UserTypeAdmin        UserType = "admin"
	UserTypeSuperAdmin   UserType = "superadmin"
)

// Valid reports whether the role is one of the known values.
func (u UserType) Valid() bool {
	switch u {
	case UserTypeEmployee, UserTypeHR, UserTypeCompanyAdmin, UserTypeAdmin, UserTypeSuperAdmin:
		return true
	}
	return false
}

// CompanyStatus represents the lifecycle state of a registered company.
type CompanyStatus string

const (
	CompanyStatusTrial   CompanyStatus = "trial"
	CompanyStatusActive  CompanyStatus = "active"
	CompanyStatusBlocked CompanyStatus = "blocked"
)

// Valid reports whether the status is one of the known values.
func (s CompanyStatus) Valid() bool {
	switch s {
	case CompanyStatusTrial, CompanyStatusActive, CompanyStatusBlocked:
		return true
	}
	return false
}

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// BeforeCreate assigns an ID so inserts don't depend on a database-side generator.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Money wraps decimal.Decimal for money values
type Money decimal.Decimal

// NewMoney creates Money from float64
func NewMoney(value float64) Money {
	return Money(decimal.NewFromFloat(value))
}

// NewMoneyFromString creates Money from string
func NewMoneyFromString(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, err
	}
	return Money(d), nil
}

// Float64 returns the float64 representation
func (m Money) Float64() float64 {
	return decimal.Decimal(m).InexactFloat64()
}

// String returns string representation
func (m Money) String() string {
	return decimal.Decimal(m).StringFixed(2)
}

// Add adds two Money values
func (m Money) Add(other Money) Money {
	return Money(decimal.Decimal(m).Add(decimal.Decimal(other)))
}

// IsNegative returns true if value is below zero
func (m Money) IsNegative() bool {
	return decimal.Decimal(m).IsNegative()
}

// Value implements driver.Valuer for database serialization
func (m Money) Value() (driver.Value, error) {
	return decimal.Decimal(m).Value()
}

// Scan implements sql.Scanner for database deserialization
func (m *Money) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return decimal.Decimal(m).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

package company

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/maxmaster/portal-server-go/pkg/nip"
	"github.com/maxmaster/portal-server-go/pkg/pagination"
	"github.com/maxmaster/portal-server-go/pkg/registry"
	"github.com/maxmaster/portal-server-go/pkg/types"
	"github.com/maxmaster/portal-server-go/pkg/validation"
)

// DefaultCountry is stored when no country is given.
const DefaultCountry = "PL"

// Company is an organisation registered on the platform, keyed by its NIP.
type Company struct {
	types.BaseModel

	Name                string              `gorm:"type:varchar(255);not null" json:"name"`
	LegalName           string              `gorm:"type:varchar(255);column:legal_name" json:"legalName,omitempty"`
	TaxID               string              `gorm:"type:varchar(10);not null;uniqueIndex;column:tax_id" json:"taxId"`
	REGON               string              `gorm:"type:varchar(14);column:regon" json:"regon,omitempty"`
	KRS                 string              `gorm:"type:varchar(10);column:krs" json:"krs,omitempty"`
	AddressStreet       string              `gorm:"type:varchar(255);column:address_street" json:"addressStreet,omitempty"`
	AddressStreetNumber string              `gorm:"type:varchar(20);column:address_street_number" json:"addressStreetNumber,omitempty"`
	AddressApartment    string              `gorm:"type:varchar(20);column:address_apartment" json:"addressApartment,omitempty"`
	AddressCity         string              `gorm:"type:varchar(120);column:address_city" json:"addressCity,omitempty"`
	AddressPostalCode   string              `gorm:"type:varchar(6);column:address_postal_code" json:"addressPostalCode,omitempty"`
	AddressCountry      string              `gorm:"type:varchar(64);not null;default:PL;column:address_country" json:"addressCountry"`
	ContactEmail        string              `gorm:"type:varchar(255);column:contact_email" json:"contactEmail,omitempty"`
	ContactPhone        string              `gorm:"type:varchar(32);column:contact_phone" json:"contactPhone,omitempty"`
	BillingEmail        string              `gorm:"type:varchar(255);column:billing_email" json:"billingEmail,omitempty"`
	Industry            string              `gorm:"type:varchar(120);column:industry" json:"industry,omitempty"`
	ActivityCodes       pq.StringArray      `gorm:"type:text[];column:activity_codes" json:"activityCodes"`
	Status              types.CompanyStatus `gorm:"type:varchar(16);not null;default:trial;index" json:"status"`
	BonusBalance        types.Money         `gorm:"type:numeric(10,2);not null;default:0;column:bonus_balance" json:"bonusBalance"`
	Slug                string              `gorm:"type:varchar(10);not null;uniqueIndex" json:"slug"`
	RegistrySource      string              `gorm:"type:varchar(32);column:registry_source" json:"registrySource,omitempty"`
	RegistrySyncedAt    *time.Time          `gorm:"column:registry_synced_at;index" json:"registrySyncedAt,omitempty"`
}

// TableName overrides the default table name.
func (Company) TableName() string { return "companies" }

// MarshalJSON adds the display form of the tax id.
func (c Company) MarshalJSON() ([]byte, error) {
	type alias Company
	activityCodes := c.ActivityCodes
	if activityCodes == nil {
		activityCodes = pq.StringArray{}
	}
	out := alias(c)
	out.ActivityCodes = activityCodes
	return json.Marshal(struct {
		alias
		TaxIDFormatted string `json:"taxIdFormatted"`
	}{
		alias:          out,
		TaxIDFormatted: nip.Format(c.TaxID),
	})
}

// CreateInput carries data for creating a new company.
type CreateInput struct {
	Name                string
	LegalName           string
	TaxID               string
	REGON               string
	KRS                 string
	AddressStreet       string
	AddressStreetNumber string
	AddressApartment    string
	AddressCity         string
	AddressPostalCode   string
	AddressCountry      string
	ContactEmail        string
	ContactPhone        string
	BillingEmail        string
	Industry            string
	ActivityCodes       []string
	Status              types.CompanyStatus
}

// UpdateInput captures mutable company fields. Nil means unchanged.
type UpdateInput struct {
	Name                *string
	LegalName           *string
	TaxID               *string
	REGON               *string
	KRS                 *string
	AddressStreet       *string
	AddressStreetNumber *string
	AddressApartment    *string
	AddressCity         *string
	AddressPostalCode   *string
	AddressCountry      *string
	ContactEmail        *string
	ContactPhone        *string
	BillingEmail        *string
	Industry            *string
	ActivityCodes       *[]string
	Status              *types.CompanyStatus
	BonusBalance        *types.Money
}

// ListFilter narrows List results.
type ListFilter struct {
	Status types.CompanyStatus
	Search string
}

// List returns a page of companies, newest first.
func List(db *gorm.DB, filter ListFilter, params pagination.Params) ([]Company, int64, error) {
	query := db.Model(&Company{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		if digits := nip.Normalize(search); digits != "" && isDigits(digits) {
			query = query.Where("LOWER(name) LIKE ? OR tax_id LIKE ?", like, "%"+digits+"%")
		} else {
			query = query.Where("LOWER(name) LIKE ?", like)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var companies []Company
	if err := query.Order("created_at DESC").Offset(params.Skip).Limit(params.Limit).Find(&companies).Error; err != nil {
		return nil, 0, err
	}

	return companies, total, nil
}

// Get retrieves a company by ID.
func Get(db *gorm.DB, id uuid.UUID) (Company, error) {
	var company Company
	if err := db.First(&company, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return company, ErrCompanyNotFound
		}
		return company, err
	}
	return company, nil
}

// GetByTaxID retrieves a company by NIP given in any accepted formatting.
func GetByTaxID(db *gorm.DB, raw string) (Company, error) {
	taxID, err := normalizeTaxID(raw)
	if err != nil {
		return Company{}, err
	}

	var company Company
	if err := db.First(&company, "tax_id = ?", taxID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return company, ErrCompanyNotFound
		}
		return company, err
	}
	return company, nil
}

// TaxIDExists reports whether a company with the normalized NIP is stored.
func TaxIDExists(db *gorm.DB, taxID string) (bool, error) {
	var count int64
	if err := db.Model(&Company{}).Where("tax_id = ?", taxID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create validates and inserts a new company.
func Create(db *gorm.DB, input CreateInput) (Company, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Company{}, ErrNameRequired
	}

	taxID, err := normalizeTaxID(input.TaxID)
	if err != nil {
		return Company{}, err
	}

	contactEmail, err := optionalEmail(input.ContactEmail)
	if err != nil {
		return Company{}, err
	}
	billingEmail, err := optionalEmail(input.BillingEmail)
	if err != nil {
		return Company{}, err
	}
	if billingEmail == "" {
		billingEmail = contactEmail
	}

	postalCode, err := optionalPostalCode(input.AddressPostalCode)
	if err != nil {
		return Company{}, err
	}

	status := input.Status
	if status == "" {
		status = types.CompanyStatusTrial
	}
	if !status.Valid() {
		return Company{}, ErrInvalidStatus
	}

	country := strings.TrimSpace(input.AddressCountry)
	if country == "" {
		country = DefaultCountry
	}

	exists, err := TaxIDExists(db, taxID)
	if err != nil {
		return Company{}, err
	}
	if exists {
		return Company{}, ErrTaxIDTaken
	}

	company := Company{
		Name:                name,
		LegalName:           strings.TrimSpace(input.LegalName),
		TaxID:               taxID,
		REGON:               strings.TrimSpace(input.REGON),
		KRS:                 strings.TrimSpace(input.KRS),
		AddressStreet:       strings.TrimSpace(input.AddressStreet),
		AddressStreetNumber: strings.TrimSpace(input.AddressStreetNumber),
		AddressApartment:    strings.TrimSpace(input.AddressApartment),
		AddressCity:         strings.TrimSpace(input.AddressCity),
		AddressPostalCode:   postalCode,
		AddressCountry:      country,
		ContactEmail:        contactEmail,
		ContactPhone:        strings.TrimSpace(input.ContactPhone),
		BillingEmail:        billingEmail,
		Industry:            strings.TrimSpace(input.Industry),
		ActivityCodes:       cleanCodes(input.ActivityCodes),
		Status:              status,
		BonusBalance:        types.NewMoney(0),
		Slug:                taxID,
	}

	if err := db.Create(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Company{}, ErrTaxIDTaken
		}
		return Company{}, err
	}

	return company, nil
}

// Update modifies an existing company.
func Update(db *gorm.DB, id uuid.UUID, input UpdateInput) (Company, error) {
	company, err := Get(db, id)
	if err != nil {
		return company, err
	}

	updates := map[string]interface{}{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return company, ErrNameRequired
		}
		updates["name"] = name
	}

	if input.TaxID != nil {
		taxID, err := normalizeTaxID(*input.TaxID)
		if err != nil {
			return company, err
		}
		if taxID != company.TaxID {
			var count int64
			if err := db.Model(&Company{}).Where("tax_id = ? AND id <> ?", taxID, id).Count(&count).Error; err != nil {
				return company, err
			}
			if count > 0 {
				return company, ErrTaxIDTaken
			}
			updates["tax_id"] = taxID
			updates["slug"] = taxID
		}
	}

	if input.ContactEmail != nil {
		email, err := optionalEmail(*input.ContactEmail)
		if err != nil {
			return company, err
		}
		updates["contact_email"] = email
	}
	if input.BillingEmail != nil {
		email, err := optionalEmail(*input.BillingEmail)
		if err != nil {
			return company, err
		}
		updates["billing_email"] = email
	}
	if input.AddressPostalCode != nil {
		code, err := optionalPostalCode(*input.AddressPostalCode)
		if err != nil {
			return company, err
		}
		updates["address_postal_code"] = code
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return company, ErrInvalidStatus
		}
		updates["status"] = *input.Status
	}
	if input.BonusBalance != nil {
		if input.BonusBalance.IsNegative() {
			return company, ErrNegativeBalance
		}
		updates["bonus_balance"] = *input.BonusBalance
	}
	if input.ActivityCodes != nil {
		updates["activity_codes"] = cleanCodes(*input.ActivityCodes)
	}
	if input.AddressCountry != nil {
		country := strings.TrimSpace(*input.AddressCountry)
		if country == "" {
			country = DefaultCountry
		}
		updates["address_country"] = country
	}

	for column, value := range map[string]*string{
		"legal_name":            input.LegalName,
		"regon":                 input.REGON,
		"krs":                   input.KRS,
		"address_street":        input.AddressStreet,
		"address_street_number": input.AddressStreetNumber,
		"address_apartment":     input.AddressApartment,
		"address_city":          input.AddressCity,
		"contact_phone":         input.ContactPhone,
		"industry":              input.Industry,
	} {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}

	if len(updates) > 0 {
		if err := db.Model(&Company{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return company, ErrTaxIDTaken
			}
			return company, err
		}
	}

	return Get(db, id)
}

// Delete removes a company.
func Delete(db *gorm.DB, id uuid.UUID) error {
	result := db.Delete(&Company{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

// ApplyRegistry fills blank fields from a registry record and stamps the sync.
// Values already stored are never overwritten.
func ApplyRegistry(db *gorm.DB, id uuid.UUID, record registry.Company, syncedAt time.Time) (Company, error) {
	company, err := Get(db, id)
	if err != nil {
		return company, err
	}

	updates := map[string]interface{}{
		"registry_source":    record.Source,
		"registry_synced_at": syncedAt,
	}

	fill := func(column, current, value string) {
		if strings.TrimSpace(current) == "" && strings.TrimSpace(value) != "" {
			updates[column] = strings.TrimSpace(value)
		}
	}

	fill("legal_name", company.LegalName, record.Name)
	fill("regon", company.REGON, record.REGON)
	fill("krs", company.KRS, record.KRS)
	fill("address_street", company.AddressStreet, record.Street)
	fill("address_street_number", company.AddressStreetNumber, record.StreetNumber)
	fill("address_apartment", company.AddressApartment, record.ApartmentNumber)
	fill("address_city", company.AddressCity, record.City)
	fill("contact_phone", company.ContactPhone, record.Phone)

	if company.AddressPostalCode == "" {
		if code, err := validation.NormalizePostalCode(record.PostalCode); err == nil {
			updates["address_postal_code"] = code
		}
	}
	if company.ContactEmail == "" {
		if email, err := validation.NormalizeEmail(record.Email); err == nil {
			updates["contact_email"] = email
			if company.BillingEmail == "" {
				updates["billing_email"] = email
			}
		}
	}
	if len(company.ActivityCodes) == 0 && record.MainActivityCode != "" {
		updates["activity_codes"] = pq.StringArray{record.MainActivityCode}
	}

	if err := db.Model(&Company{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return company, err
	}

	return Get(db, id)
}

// TouchSynced records a sync attempt that found nothing to apply.
func TouchSynced(db *gorm.DB, id uuid.UUID, syncedAt time.Time) error {
	return db.Model(&Company{}).Where("id = ?", id).Update("registry_synced_at", syncedAt).Error
}

// ListStale returns companies never synced or last synced before cutoff.
func ListStale(db *gorm.DB, cutoff time.Time, limit int) ([]Company, error) {
	var companies []Company
	err := db.Where("registry_synced_at IS NULL OR registry_synced_at < ?", cutoff).
		Order("registry_synced_at ASC NULLS FIRST").
		Limit(limit).
		Find(&companies).Error
	return companies, err
}

// Helper functions

func normalizeTaxID(raw string) (string, error) {
	taxID, err := validation.NormalizeTaxID(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTaxID, err)
	}
	return taxID, nil
}

func optionalEmail(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	email, err := validation.NormalizeEmail(value)
	if err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func optionalPostalCode(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	code, err := validation.NormalizePostalCode(value)
	if err != nil {
		return "", ErrInvalidPostalCode
	}
	return code, nil
}

func cleanCodes(codes []string) pq.StringArray {
	out := pq.StringArray{}
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

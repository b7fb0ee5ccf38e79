package company

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maxmaster/portal-server-go/pkg/nip"
	"github.com/maxmaster/portal-server-go/pkg/pagination"
	"github.com/maxmaster/portal-server-go/pkg/registry"
	"github.com/maxmaster/portal-server-go/pkg/request"
	"github.com/maxmaster/portal-server-go/pkg/response"
	"github.com/maxmaster/portal-server-go/pkg/types"
	"github.com/maxmaster/portal-server-go/pkg/validation"
)

// RegistryLookup resolves NIPs against the public registries.
type RegistryLookup interface {
	Lookup(ctx context.Context, raw string) (registry.Company, error)
	Refresh(ctx context.Context, raw string) (registry.Company, error)
}

// WelcomeSender sends the onboarding email after self-registration.
type WelcomeSender interface {
	SendCompanyWelcome(to, companyName, taxID string) error
}

// Handler processes company HTTP requests.
type Handler struct {
	db       *gorm.DB
	logger   *slog.Logger
	registry RegistryLookup
	mailer   WelcomeSender
	now      func() time.Time
}

// NewHandler constructs a company handler instance. mailer may be nil.
func NewHandler(db *gorm.DB, logger *slog.Logger, lookup RegistryLookup, mailer WelcomeSender) *Handler {
	return &Handler{
		db:       db,
		logger:   logger,
		registry: lookup,
		mailer:   mailer,
		now:      time.Now,
	}
}

type companyRequest struct {
	Name                string   `json:"name"`
	LegalName           string   `json:"legalName"`
	TaxID               string   `json:"taxId"`
	REGON               string   `json:"regon"`
	KRS                 string   `json:"krs"`
	AddressStreet       string   `json:"addressStreet"`
	AddressStreetNumber string   `json:"addressStreetNumber"`
	AddressApartment    string   `json:"addressApartment"`
	AddressCity         string   `json:"addressCity"`
	AddressPostalCode   string   `json:"addressPostalCode"`
	AddressCountry      string   `json:"addressCountry"`
	ContactEmail        string   `json:"contactEmail"`
	ContactPhone        string   `json:"contactPhone"`
	BillingEmail        string   `json:"billingEmail"`
	Industry            string   `json:"industry"`
	ActivityCodes       []string `json:"activityCodes"`
	Status              string   `json:"status"`
}

func (r companyRequest) toInput() CreateInput {
	return CreateInput{
		Name:                r.Name,
		LegalName:           r.LegalName,
		TaxID:               r.TaxID,
		REGON:               r.REGON,
		KRS:                 r.KRS,
		AddressStreet:       r.AddressStreet,
		AddressStreetNumber: r.AddressStreetNumber,
		AddressApartment:    r.AddressApartment,
		AddressCity:         r.AddressCity,
		AddressPostalCode:   r.AddressPostalCode,
		AddressCountry:      r.AddressCountry,
		ContactEmail:        r.ContactEmail,
		ContactPhone:        r.ContactPhone,
		BillingEmail:        r.BillingEmail,
		Industry:            r.Industry,
		ActivityCodes:       r.ActivityCodes,
		Status:              types.CompanyStatus(strings.ToLower(strings.TrimSpace(r.Status))),
	}
}

// List returns a paginated list of companies.
func (h *Handler) List(c *gin.Context) {
	params := pagination.Extract(c)
	filter := ListFilter{
		Status: types.CompanyStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Search: c.Query("search"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		h.respondError(c, ErrInvalidStatus, "failed to list companies")
		return
	}

	companies, total, err := List(h.db.WithContext(c.Request.Context()), filter, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to list companies", err)
		return
	}

	response.Success(c, http.StatusOK, companies, "", pagination.MetadataFrom(total, params))
}

// GetByID fetches a single company.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := h.companyID(c)
	if !ok {
		return
	}

	company, err := Get(h.db.WithContext(c.Request.Context()), id)
	if err != nil {
		h.respondError(c, err, "failed to load company")
		return
	}

	response.Success(c, http.StatusOK, company, "", nil)
}

// GetByTaxID fetches a company by NIP in any accepted formatting.
func (h *Handler) GetByTaxID(c *gin.Context) {
	company, err := GetByTaxID(h.db.WithContext(c.Request.Context()), c.Param("taxId"))
	if err != nil {
		h.respondError(c, err, "failed to load company")
		return
	}

	response.Success(c, http.StatusOK, company, "", nil)
}

// Create inserts a new company on behalf of an administrator.
func (h *Handler) Create(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid company payload", err)
		return
	}

	company, err := Create(h.db.WithContext(c.Request.Context()), req.toInput())
	if err != nil {
		h.respondError(c, err, "failed to create company")
		return
	}

	response.Created(c, company, "Company created.")
}

// Register handles public self-registration. New companies always start in trial.
func (h *Handler) Register(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid registration payload", err)
		return
	}
	if strings.TrimSpace(req.ContactEmail) == "" {
		response.Error(c, http.StatusBadRequest, "contactEmail is required", nil)
		return
	}

	input := req.toInput()
	input.Status = types.CompanyStatusTrial

	company, err := Create(h.db.WithContext(c.Request.Context()), input)
	if err != nil {
		h.respondError(c, err, "failed to register company")
		return
	}

	if h.mailer != nil {
		if err := h.mailer.SendCompanyWelcome(company.ContactEmail, company.Name, nip.Format(company.TaxID)); err != nil {
			h.logger.Warn("failed to send welcome email",
				slog.String("company_id", company.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	response.Created(c, company, "Company registered.")
}

// Update applies a partial update.
func (h *Handler) Update(c *gin.Context) {
	id, ok := h.companyID(c)
	if !ok {
		return
	}

	body := map[string]interface{}{}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid company payload", err)
		return
	}

	input, err := parseUpdate(body)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	company, err := Update(h.db.WithContext(c.Request.Context()), id, input)
	if err != nil {
		h.respondError(c, err, "failed to update company")
		return
	}

	response.Success(c, http.StatusOK, company, "Company updated.", nil)
}

// Delete removes a company.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.companyID(c)
	if !ok {
		return
	}

	if err := Delete(h.db.WithContext(c.Request.Context()), id); err != nil {
		h.respondError(c, err, "failed to delete company")
		return
	}

	response.Success(c, http.StatusOK, true, "Company deleted.", nil)
}

type lookupRequest struct {
	TaxID string `json:"taxId"`
}

type lookupResponse struct {
	registry.Company
	NIPFormatted string `json:"nipFormatted"`
}

// Lookup resolves a NIP against the public registries for the registration form.
func (h *Handler) Lookup(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid lookup payload", err)
		return
	}

	record, err := h.registry.Lookup(c.Request.Context(), req.TaxID)
	if err != nil {
		h.respondRegistryError(c, err)
		return
	}

	response.Success(c, http.StatusOK, lookupResponse{Company: record, NIPFormatted: nip.Format(record.NIP)}, "", nil)
}

// Sync refreshes a stored company from the registries.
func (h *Handler) Sync(c *gin.Context) {
	id, ok := h.companyID(c)
	if !ok {
		return
	}

	db := h.db.WithContext(c.Request.Context())
	company, err := Get(db, id)
	if err != nil {
		h.respondError(c, err, "failed to load company")
		return
	}

	record, err := h.registry.Refresh(c.Request.Context(), company.TaxID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			if touchErr := TouchSynced(db, id, h.now()); touchErr != nil {
				h.logger.Warn("failed to record registry sync", slog.String("company_id", id.String()), slog.String("error", touchErr.Error()))
			}
		}
		h.respondRegistryError(c, err)
		return
	}

	updated, err := ApplyRegistry(db, id, record, h.now())
	if err != nil {
		h.respondError(c, err, "failed to apply registry data")
		return
	}

	response.Success(c, http.StatusOK, updated, "Company synced with registry.", nil)
}

func (h *Handler) companyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid company id", err)
		return uuid.Nil, false
	}
	return id, true
}

func parseUpdate(body map[string]interface{}) (UpdateInput, error) {
	input := UpdateInput{}

	stringFields := map[string]**string{
		"name":                &input.Name,
		"legalName":           &input.LegalName,
		"taxId":               &input.TaxID,
		"regon":               &input.REGON,
		"krs":                 &input.KRS,
		"addressStreet":       &input.AddressStreet,
		"addressStreetNumber": &input.AddressStreetNumber,
		"addressApartment":    &input.AddressApartment,
		"addressCity":         &input.AddressCity,
		"addressPostalCode":   &input.AddressPostalCode,
		"addressCountry":      &input.AddressCountry,
		"contactEmail":        &input.ContactEmail,
		"contactPhone":        &input.ContactPhone,
		"billingEmail":        &input.BillingEmail,
		"industry":            &input.Industry,
	}

	for key, target := range stringFields {
		value, ok := body[key]
		if !ok {
			continue
		}
		if value == nil {
			empty := ""
			*target = &empty
			continue
		}
		str, ok := value.(string)
		if !ok {
			return input, errors.New(key + " must be a string")
		}
		*target = &str
	}

	if value, ok := body["status"]; ok {
		str, err := request.ReadString(value)
		if err != nil {
			return input, errors.New("status must be a string")
		}
		status := types.CompanyStatus(strings.ToLower(str))
		input.Status = &status
	}

	if value, ok := body["activityCodes"]; ok {
		items, ok := value.([]interface{})
		if !ok && value != nil {
			return input, errors.New("activityCodes must be an array of strings")
		}
		codes := make([]string, 0, len(items))
		for _, item := range items {
			code, ok := item.(string)
			if !ok {
				return input, errors.New("activityCodes must be an array of strings")
			}
			codes = append(codes, code)
		}
		input.ActivityCodes = &codes
	}

	if value, ok := body["bonusBalance"]; ok {
		amount, err := request.ReadFloat(value)
		if err != nil {
			return input, errors.New("bonusBalance must be a number")
		}
		balance := types.NewMoney(amount)
		input.BonusBalance = &balance
	}

	return input, nil
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	message := fallback

	switch {
	case errors.Is(err, ErrCompanyNotFound):
		status = http.StatusNotFound
		message = "Company not found."
	case errors.Is(err, ErrTaxIDTaken):
		status = http.StatusConflict
		message = "A company with this tax ID already exists."
	case errors.Is(err, ErrInvalidTaxID):
		status = http.StatusBadRequest
		message = validation.TaxIDMessage(err)
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidPostalCode),
		errors.Is(err, ErrNegativeBalance):
		status = http.StatusBadRequest
		message = err.Error()
	}

	response.ErrorWithLog(h.logger, c, status, message, err)
}

func (h *Handler) respondRegistryError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Registry lookup failed."

	switch {
	case errors.Is(err, registry.ErrMalformedInput):
		status = http.StatusBadRequest
		message = validation.TaxIDMessage(err)
	case errors.Is(err, registry.ErrAlreadyKnown):
		status = http.StatusConflict
		message = "A company with this tax ID is already registered."
	case errors.Is(err, registry.ErrNotFound):
		status = http.StatusNotFound
		message = "Company not found in registry."
	case errors.Is(err, registry.ErrTransient):
		status = http.StatusServiceUnavailable
		message = "Registry is temporarily unavailable. Please try again later."
	}

	response.ErrorWithLog(h.logger, c, status, message, err)
}

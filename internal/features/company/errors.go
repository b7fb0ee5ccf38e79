package company

import (
	"errors"
)

var (
	ErrCompanyNotFound   = errors.New("company not found")
	ErrTaxIDTaken        = errors.New("company with this tax id already exists")
	ErrInvalidTaxID      = errors.New("invalid tax id")
	ErrNameRequired      = errors.New("company name is required")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrInvalidStatus     = errors.New("invalid company status")
	ErrInvalidPostalCode = errors.New("invalid postal code")
	ErrNegativeBalance   = errors.New("bonus balance cannot be negative")
)

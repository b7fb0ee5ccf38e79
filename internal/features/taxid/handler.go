package taxid

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxmaster/portal-server-go/pkg/apperrors"
	"github.com/maxmaster/portal-server-go/pkg/metrics"
	"github.com/maxmaster/portal-server-go/pkg/nip"
	"github.com/maxmaster/portal-server-go/pkg/response"
	"github.com/maxmaster/portal-server-go/pkg/validation"
)

// Result describes a tax id as the client typed it.
type Result struct {
	Input      string `json:"input"`
	Valid      bool   `json:"valid"`
	Normalized string `json:"normalized"`
	Formatted  string `json:"formatted"`
	Reason     string `json:"reason,omitempty"`
	Code       string `json:"code,omitempty"`
}

// Evaluate runs the NIP checks on raw and never fails.
func Evaluate(raw string) Result {
	err := nip.Check(raw)
	return Result{
		Input:      raw,
		Valid:      err == nil,
		Normalized: nip.Normalize(raw),
		Formatted:  nip.Format(raw),
		Reason:     validation.TaxIDMessage(err),
		Code:       reasonCode(err),
	}
}

func reasonCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, nip.ErrEmpty):
		return "empty"
	case errors.Is(err, nip.ErrNonDigit):
		return "non_digit"
	case errors.Is(err, nip.ErrLength):
		return "length"
	case errors.Is(err, nip.ErrChecksum):
		return "checksum"
	default:
		return "invalid"
	}
}

// Handler serves tax id validation requests.
type Handler struct {
	logger *slog.Logger
}

// NewHandler constructs a tax id handler instance.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

type validateRequest struct {
	TaxID *string `json:"taxId"`
}

// Validate checks the tax id sent in the request body.
func (h *Handler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid validation payload", err)
		return
	}
	if req.TaxID == nil {
		response.AppError(h.logger, c, apperrors.New("taxId is required", http.StatusBadRequest, apperrors.ErrValidation, nil).
			WithFields(map[string]string{"taxId": "required"}))
		return
	}

	h.respond(c, *req.TaxID, 0)
}

// Get checks the tax id given in the path.
func (h *Handler) Get(c *gin.Context) {
	h.respond(c, c.Param("taxId"), resultMaxAge)
}

// Results depend only on the input, so GET responses may be cached.
const resultMaxAge = 86400

func (h *Handler) respond(c *gin.Context, raw string, maxAge int) {
	result := Evaluate(raw)

	label := "valid"
	if !result.Valid {
		label = result.Code
	}
	metrics.RecordTaxIDValidation(label)

	if maxAge > 0 {
		response.SuccessWithCache(c, http.StatusOK, result, "", maxAge)
		return
	}
	response.SuccessNoCache(c, http.StatusOK, result, "")
}

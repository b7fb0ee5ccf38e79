package taxid

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires tax id endpoints into the API group. Both endpoints are public.
func RegisterRoutes(api *gin.RouterGroup, logger *slog.Logger) {
	handler := NewHandler(logger)

	taxIDs := api.Group("/tax-ids")
	taxIDs.POST("/validate", handler.Validate)
	taxIDs.GET("/:taxId", handler.Get)
}
